// Package filewatch cancels contexts on file modification.
package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ModifiedError is the cause of cancellation by UntilModified.
type ModifiedError struct {
	Path string
	Op   fsnotify.Op
}

func (e *ModifiedError) Error() string {
	return fmt.Sprintf("%s is modified (%s)", e.Path, e.Op)
}

// UntilModified returns a context which is cancelled when any of paths
// is written, created, removed or renamed.
// Mode changes are not modifications.
//
// The cause of the cancellation, available with context.Cause,
// is a *ModifiedError.
//
// When it fails to watch paths, it returns an error with a nil context.
func UntilModified(ctx context.Context, paths ...string) (context.Context, context.CancelFunc, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(err)
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}
				cancel(&ModifiedError{Path: ev.Name, Op: ev.Op})
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
