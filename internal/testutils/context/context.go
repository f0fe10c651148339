package context

import (
	"context"
	"testing"
	"time"
)

// WithTest returns a context for t.
//
// It is done 1 second before the deadline of t, to be able to clean-up resources,
// and when t ends.
func WithTest(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if deadline, ok := t.Deadline(); ok {
		ctx, cancel = context.WithDeadline(context.Background(), deadline.Add(-time.Second))
	}
	t.Cleanup(cancel)
	return ctx
}
