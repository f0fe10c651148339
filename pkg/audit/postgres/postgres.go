// Package postgres is an audit sink storing entries in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/opst/wlconf/pkg/audit"
	xe "github.com/opst/wlconf/pkg/errors"
	"github.com/opst/wlconf/pkg/loop"
)

// ErrNoTable is returned when the audit table does not exist. Call Init to create it.
var ErrNoTable = errors.New("audit table does not exist")

// subset of pgxpool.Pool
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS "audit_log" (
	"id" uuid PRIMARY KEY,
	"timestamp" timestamptz NOT NULL,
	"operation" varchar NOT NULL,
	"resource" varchar NOT NULL,
	"actor" varchar NOT NULL,
	"success" boolean NOT NULL,
	"detail" jsonb
)`

const insert = `
INSERT INTO "audit_log"
	("id", "timestamp", "operation", "resource", "actor", "success", "detail")
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type Sink struct {
	db    Execer
	close func()
}

var _ audit.Sink = &Sink{}

// New creates a sink over db.
func New(db Execer) *Sink {
	return &Sink{db: db, close: func() {}}
}

// Connect creates a sink with a new connection pool to url.
func Connect(ctx context.Context, url string) (*Sink, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return &Sink{db: pool, close: pool.Close}, nil
}

// Init creates the audit table if not exists.
func (s *Sink) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// WaitInit calls Init until it succeeds, waiting interval between tries.
//
// Each try is bounded by timeout. After attempts failures, it returns the last error.
func (s *Sink) WaitInit(ctx context.Context, attempts int, interval time.Duration, timeout time.Duration) error {
	_, err := loop.Start(ctx, 1, func(ctx context.Context, n int) (int, loop.Next) {
		err := s.Init(ctx)
		if err == nil {
			return n, loop.Break(nil)
		}
		if attempts <= n {
			return n, loop.Break(err)
		}
		return n + 1, loop.Continue(interval)
	}, loop.WithTimeout(timeout))
	return err
}

func (s *Sink) Record(ctx context.Context, e audit.Entry) error {
	detail := pgtype.JSONB{Status: pgtype.Null}
	if e.Detail != nil {
		if err := detail.Set(e.Detail); err != nil {
			return xe.Wrap(err)
		}
	}

	if _, err := s.db.Exec(
		ctx, insert,
		e.ID.String(), e.Timestamp, e.Operation, e.Resource, e.Actor, e.Success, &detail,
	); err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UndefinedTable {
			return xe.WrapWithNote(err.Error(), ErrNoTable)
		}
		return xe.Wrap(err)
	}
	return nil
}

// Close releases the connection pool, if the sink owns it.
func (s *Sink) Close() {
	s.close()
}
