// Package worker runs one long operation at a time on a background
// goroutine and feeds its progress, log lines and terminal outcome to the
// caller over channels. Starting a new operation first cancels the running
// one and waits, with a bound, for it to wind down.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Factiosi/qManager/journal"
	"github.com/Factiosi/qManager/kit"
)

// DefaultAwait bounds how long Start waits for a cancelled predecessor
// before abandoning it and launching the new operation.
const DefaultAwait = 3 * time.Second

// Progress is one progress update.
type Progress struct {
	Current int
	Total   int
}

// Outcome is the terminal signal of one operation. Cancellation is not a
// failure: a cancelled run has Cancelled set and a nil Err.
type Outcome struct {
	Err       error
	Cancelled bool
}

// Op is one cancellable operation. It reports through sinks and must
// return promptly once ctx is cancelled.
type Op func(ctx context.Context, sinks kit.Sinks) error

// Handle exposes a running operation's channels. Progress and Log close
// when the operation finishes; Done then delivers exactly one Outcome.
type Handle struct {
	Progress <-chan Progress
	Log      <-chan string
	Done     <-chan Outcome
}

// Runner launches operations, enforcing that at most one runs at a time.
// The zero value is ready to use.
type Runner struct {
	// Await overrides DefaultAwait when positive.
	Await time.Duration
	// Logger for lifecycle messages.
	Logger *slog.Logger
	// Journal, when set, records every finished run.
	Journal *journal.Journal

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) await() time.Duration {
	if r.Await > 0 {
		return r.Await
	}
	return DefaultAwait
}

// Running reports whether an operation is currently active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != nil && !closed(r.done)
}

// Stop requests cancellation of the running operation, if any, without
// starting a new one. It does not wait.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Start cancels any running operation, waits for it within the Await
// bound, then launches op on a fresh goroutine and returns its Handle.
// A predecessor that does not stop in time is abandoned; its channels are
// already closed to their consumer by then. name labels the run in logs
// and the journal.
func (r *Runner) Start(name string, op Op) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		if r.done != nil {
			select {
			case <-r.done:
			case <-time.After(r.await()):
				r.logger().Warn("previous operation did not stop in time")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	progress := make(chan Progress, 1)
	logs := make(chan string, 64)
	outcome := make(chan Outcome, 1)

	sinks := kit.Sinks{
		Log: func(line string) {
			select {
			case logs <- line:
			default: // consumer fell behind, drop the line
			}
		},
		Progress: func(current, total int) {
			// Keep only the freshest update.
			select {
			case progress <- Progress{Current: current, Total: total}:
			default:
				select {
				case <-progress:
				default:
				}
				select {
				case progress <- Progress{Current: current, Total: total}:
				default:
				}
			}
		},
	}

	go func() {
		defer close(done)
		started := time.Now()
		err := op(ctx, sinks)
		close(progress)
		close(logs)

		var out Outcome
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			r.logger().Debug("operation cancelled", "op", name)
			out.Cancelled = true
		default:
			out.Err = err
		}
		r.record(name, started, out)
		outcome <- out
	}()

	return &Handle{Progress: progress, Log: logs, Done: outcome}
}

func (r *Runner) record(name string, started time.Time, out Outcome) {
	if r.Journal == nil {
		return
	}
	e := &journal.Entry{
		Op:       name,
		Outcome:  journal.OutcomeOK,
		Started:  started,
		Finished: time.Now(),
	}
	switch {
	case out.Cancelled:
		e.Outcome = journal.OutcomeCancelled
	case out.Err != nil:
		e.Outcome = journal.OutcomeError
		e.Detail = out.Err.Error()
	}
	r.Journal.RecordAsync(e)
}

func closed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
