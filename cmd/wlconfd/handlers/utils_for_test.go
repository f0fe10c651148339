package handlers_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opst/wlconf/cmd/wlconfd/handlers"
	"github.com/opst/wlconf/pkg/audit"
	"github.com/opst/wlconf/pkg/auth"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	"github.com/opst/wlconf/pkg/engine"
	"github.com/opst/wlconf/pkg/rollback"
)

type mockConfigurations struct {
	Impl struct {
		Fetch                 func(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error)
		Apply                 func(ctx context.Context, req engine.ApplyRequest) (domain.Result, error)
		Rollback              func(ctx context.Context, kind domain.Kind, namespace string, name string, rollbackKey string, actor string) (domain.Result, error)
		Rollbacks             func(kind domain.Kind, namespace string, name string) []rollback.Record
		List                  func(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error)
		Refresh               func(ctx context.Context, kind domain.Kind, namespace string) ([]conftree.Tree, error)
		ValidateConfiguration func(kind domain.Kind, proposed conftree.Tree) ([]string, error)
		Diff                  func(original, updated conftree.Tree) []conftree.Change
	}
	Called struct {
		Fetch   int
		Apply   int
		Refresh int
	}
}

var _ handlers.Configurations = &mockConfigurations{}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *mockConfigurations) Fetch(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error) {
	m.Called.Fetch += 1
	if m.Impl.Fetch == nil {
		return nil, errNotImplemented
	}
	return m.Impl.Fetch(ctx, kind, namespace, name)
}

func (m *mockConfigurations) Apply(ctx context.Context, req engine.ApplyRequest) (domain.Result, error) {
	m.Called.Apply += 1
	if m.Impl.Apply == nil {
		return domain.Result{}, errNotImplemented
	}
	return m.Impl.Apply(ctx, req)
}

func (m *mockConfigurations) Rollback(ctx context.Context, kind domain.Kind, namespace string, name string, rollbackKey string, actor string) (domain.Result, error) {
	if m.Impl.Rollback == nil {
		return domain.Result{}, errNotImplemented
	}
	return m.Impl.Rollback(ctx, kind, namespace, name, rollbackKey, actor)
}

func (m *mockConfigurations) Rollbacks(kind domain.Kind, namespace string, name string) []rollback.Record {
	if m.Impl.Rollbacks == nil {
		return nil
	}
	return m.Impl.Rollbacks(kind, namespace, name)
}

func (m *mockConfigurations) List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error) {
	if m.Impl.List == nil {
		return nil, errNotImplemented
	}
	return m.Impl.List(ctx, kind, namespace, labelSelector)
}

func (m *mockConfigurations) Refresh(ctx context.Context, kind domain.Kind, namespace string) ([]conftree.Tree, error) {
	m.Called.Refresh += 1
	if m.Impl.Refresh == nil {
		return nil, errNotImplemented
	}
	return m.Impl.Refresh(ctx, kind, namespace)
}

func (m *mockConfigurations) ValidateConfiguration(kind domain.Kind, proposed conftree.Tree) ([]string, error) {
	if m.Impl.ValidateConfiguration == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ValidateConfiguration(kind, proposed)
}

func (m *mockConfigurations) Diff(original, updated conftree.Tree) []conftree.Change {
	if m.Impl.Diff == nil {
		return nil
	}
	return m.Impl.Diff(original, updated)
}

// auditTrail is an audit sink to be inspected.
type auditTrail chan audit.Entry

func (a auditTrail) Record(_ context.Context, e audit.Entry) error {
	a <- e
	return nil
}

func newAuditor() (*handlers.Auditor, auditTrail) {
	trail := make(auditTrail, 16)
	return handlers.NewAuditor(trail, time.Second, log.New(io.Discard, "", 0)), trail
}

func (a auditTrail) next(t *testing.T) audit.Entry {
	t.Helper()
	select {
	case e := <-a:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no audit entry is recorded")
	}
	return audit.Entry{}
}

// withActor calls h as authenticated with X-Actor header.
func withActor(h echo.HandlerFunc) echo.HandlerFunc {
	return auth.Middleware(nil)(h)
}

func withResource(c echo.Context, kind, namespace, name string) echo.Context {
	c.SetParamNames(handlers.ParamKind, handlers.ParamNamespace, handlers.ParamName)
	c.SetParamValues(kind, namespace, name)
	return c
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	var herr *echo.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *echo.HTTPError, but %#v", err)
	}
	return herr
}
