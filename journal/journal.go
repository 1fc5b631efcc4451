// Package journal keeps a local history of batch operations in SQLite:
// which operation ran, over which folders, how many files it touched and
// how it ended. Entries are persisted asynchronously so recording never
// stalls a running batch.
package journal

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Schema for the operations table. Call Journal.Init() or apply manually.
const Schema = `
CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	op TEXT NOT NULL,
	input_dir TEXT,
	output_dir TEXT,
	files INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT,
	started INTEGER NOT NULL,
	finished INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started);
CREATE INDEX IF NOT EXISTS idx_operations_run ON operations(run_id);
`

// Outcome labels for Entry.Outcome.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Entry is one finished operation.
type Entry struct {
	RunID     string // assigned on record when empty
	Op        string // split, recognize, merge
	InputDir  string
	OutputDir string
	Files     int
	Outcome   string
	Detail    string // error text or summary line
	Started   time.Time
	Finished  time.Time
}

// Journal persists operation entries to SQLite asynchronously.
type Journal struct {
	db   *sql.DB
	ch   chan *Entry
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	closed bool
}

// New creates a journal backed by the given database connection.
func New(db *sql.DB) *Journal {
	j := &Journal{
		db:   db,
		ch:   make(chan *Entry, 256),
		done: make(chan struct{}),
	}
	go j.flushLoop()
	return j
}

// Init creates the operations table if it doesn't exist.
func (j *Journal) Init() error {
	_, err := j.db.Exec(Schema)
	return err
}

// RecordAsync queues an entry for async persistence. Non-blocking; drops
// if the buffer is full or the journal is already closed.
func (j *Journal) RecordAsync(e *Entry) {
	if e.RunID == "" {
		e.RunID = uuid.NewString()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	select {
	case j.ch <- e:
	default:
	}
}

// Close drains the buffer and stops the flush goroutine.
func (j *Journal) Close() error {
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		j.mu.Unlock()
		close(j.ch)
		<-j.done
	})
	return nil
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(limit int) ([]*Entry, error) {
	rows, err := j.db.Query(`SELECT run_id, op, input_dir, output_dir, files, outcome, detail, started, finished
		FROM operations ORDER BY started DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.RunID, &e.Op, &e.InputDir, &e.OutputDir,
			&e.Files, &e.Outcome, &e.Detail, &started, &finished); err != nil {
			return nil, err
		}
		e.Started = time.UnixMilli(started)
		e.Finished = time.UnixMilli(finished)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (j *Journal) flushLoop() {
	defer close(j.done)

	batch := make([]*Entry, 0, 32)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-j.ch:
			if !ok {
				j.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 32 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *Journal) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}

	tx, err := j.db.Begin()
	if err != nil {
		slog.Error("journal: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO operations (run_id, op, input_dir, output_dir, files, outcome, detail, started, finished)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Error("journal: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.RunID, e.Op, e.InputDir, e.OutputDir,
			e.Files, e.Outcome, e.Detail, e.Started.UnixMilli(), e.Finished.UnixMilli()); err != nil {
			slog.Error("journal: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("journal: commit", "error", err)
	}
}
