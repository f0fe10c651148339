// Package audit records outcomes of mutating operations.
//
// Recording is fire-and-forget from the caller's point of view:
// a failure to record never changes the outcome of the operation itself.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Operations recorded.
const (
	OpApply        = "apply"
	OpDryRun       = "dry_run"
	OpRollback     = "rollback"
	OpBatch        = "batch"
	OpCacheClear   = "cache_clear"
	OpCacheRefresh = "cache_refresh"
)

type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	Resource  string         `json:"resource"`
	Actor     string         `json:"actor"`
	Success   bool           `json:"success"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// NewEntry creates an Entry with a new ID, timestamped now.
func NewEntry(operation string, resource string, actor string, success bool, detail map[string]any) Entry {
	return Entry{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Operation: operation,
		Resource:  resource,
		Actor:     actor,
		Success:   success,
		Detail:    detail,
	}
}

type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// LoggerSink writes entries to a logger, as JSON lines.
type LoggerSink struct {
	logger *log.Logger
}

var _ Sink = &LoggerSink{}

func NewLoggerSink(logger *log.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) Record(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.logger.Printf("audit: %s", b)
	return nil
}

// Multi records to all sinks. It returns the first error, after trying all.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Record(ctx context.Context, e Entry) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Send records e in background, and reports failure to logger.
//
// ctx is detached from cancellation of the caller, but its values are kept.
// It returns a channel closed when recording is done.
func Send(ctx context.Context, sink Sink, e Entry, timeout time.Duration, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := sink.Record(ctx, e); err != nil {
			logger.Printf("audit: failed to record %s (%s on %s): %v", e.ID, e.Operation, e.Resource, err)
		}
	}()
	return done
}
