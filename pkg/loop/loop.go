package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a task returns.
type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// Continue the loop after sleeping for interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break the loop. Pass nil to break without error.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is a unit of work repeated by Start.
//
// It receives the value returned by the last run (or the initial value),
// and returns the value for the next run and what to do next.
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task repeatedly until it breaks or ctx is done.
//
// The first run happens immediately. Zero value of Next (= Continue(0)) means "go next ASAP".
//
// # Args
//
// - ctx: when it is done, the loop stops with ctx.Err().
//
// - init: value passed to the first run of task.
//
// - task: the task.
//
// - options: options for each run.
//
// # Returns
//
// - T: the last value task returned. It is returned even with non-nil error.
//
// - error: error in Break(error), or ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T], options ...Option) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		rc := &runConfig{ctx: ctx}
		for _, opt := range options {
			rc = opt(rc)
		}

		v, n := func() (T, Next) {
			if rc.deferred != nil {
				defer rc.deferred()
			}
			return task(rc.ctx, value)
		}()

		if n.err != nil {
			return v, n.err
		}
		if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down comes first.
			if !timer.Stop() {
				<-timer.C
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

// Every runs f with interval until ctx is done.
//
// Unlike Start, the first run happens after interval has passed.
// It returns the number of runs.
func Every(ctx context.Context, interval time.Duration, f func(context.Context)) uint64 {
	first := true
	count, _ := Start(ctx, uint64(0), func(ctx context.Context, c uint64) (uint64, Next) {
		if first {
			first = false
			return c, Continue(interval)
		}
		f(ctx)
		return c + 1, Continue(interval)
	})
	return count
}

type runConfig struct {
	ctx      context.Context
	deferred func()
}

// Option modifies how each run of a task is made.
type Option func(*runConfig) *runConfig

// WithTimeout sets timeout for each run.
//
// The timeout applies to the context passed to the task.
func WithTimeout(d time.Duration) Option {
	return func(rc *runConfig) *runConfig {
		ctx, cancel := context.WithTimeout(rc.ctx, d)
		return &runConfig{
			ctx: ctx,
			deferred: func() {
				if rc.deferred != nil {
					defer rc.deferred()
				}
				cancel()
			},
		}
	}
}
