// Package deadline implements the absolute-deadline primitive (spec
// §4.3): every external I/O call races against a single deadline
// computed once at operation start, never refreshed per-read, so a
// slow drip of small reads cannot outlive the overall budget.
package deadline

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// New derives a context carrying an absolute deadline timeoutMS from
// now, plus its cancel function. Callers must always call cancel (via
// defer) on every path, success or failure, to release the timer.
func New(parent context.Context, timeoutMS uint32) (context.Context, context.CancelFunc) {
	if timeoutMS == 0 {
		timeoutMS = 10000
	}
	return context.WithTimeout(parent, time.Duration(timeoutMS)*time.Millisecond)
}

// Run races fn against ctx's deadline. If the deadline fires first, Run
// returns result.Timeout() without waiting for fn to unwind; fn is
// expected to observe ctx.Done() (or have its own socket deadline set
// from ctx, see internal/transport) and return promptly on its own.
func Run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return result.Timeout("deadline exceeded: %v", ctx.Err())
	}
}

// Deadline returns the absolute time.Time ctx will expire at, suitable
// for net.Conn.SetDeadline, and whether one is actually set.
func Deadline(ctx context.Context) (time.Time, bool) {
	return ctx.Deadline()
}
