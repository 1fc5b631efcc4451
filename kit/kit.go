// Package kit defines the feedback surface every core operation accepts from
// its caller: a log-line sink and a progress sink. Both are optional; nil
// sinks are silently ignored so library code never has to guard the calls.
//
// Cancellation is not part of this surface — operations take a
// context.Context and return ctx.Err() when it fires.
package kit

import "fmt"

// LogFunc receives a human-readable operation log line.
type LogFunc func(msg string)

// ProgressFunc receives a (current, total) progress update.
type ProgressFunc func(current, total int)

// Sinks bundles the caller-supplied feedback channels for one operation.
// The zero value discards everything.
type Sinks struct {
	Log      LogFunc
	Progress ProgressFunc
}

// Logf formats and emits a log line. No-op when no log sink is set.
func (s Sinks) Logf(format string, args ...any) {
	if s.Log == nil {
		return
	}
	if len(args) == 0 {
		s.Log(format)
		return
	}
	s.Log(fmt.Sprintf(format, args...))
}

// Step emits a progress update. No-op when no progress sink is set.
func (s Sinks) Step(current, total int) {
	if s.Progress == nil {
		return
	}
	s.Progress(current, total)
}
