package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// OpenDB opens the journal database at path with the pragmas a
// single-writer desktop journal wants: WAL for readers during a run, a
// busy timeout instead of immediate SQLITE_BUSY, relaxed sync. Parent
// directories are created. The caller must blank-import a driver
// registering as "sqlite":
//
//	import _ "modernc.org/sqlite"
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", p, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	return db, nil
}

// Open opens the database at path, applies the schema and returns a
// running journal over it. Closing the journal does not close the
// database.
func Open(path string) (*Journal, *sql.DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, nil, err
	}
	j := New(db)
	if err := j.Init(); err != nil {
		j.Close()
		db.Close()
		return nil, nil, err
	}
	return j, db, nil
}
