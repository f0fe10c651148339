package cluster

import (
	"context"
	"time"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
)

type timeout struct {
	base Collaborator
	d    time.Duration
}

// WithTimeout bounds each call to base with timeout d.
//
// Non-positive d means no bound, and base is returned as it is.
func WithTimeout(base Collaborator, d time.Duration) Collaborator {
	if d <= 0 {
		return base
	}
	return &timeout{base: base, d: d}
}

func (t *timeout) Read(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.base.Read(ctx, kind, namespace, name)
}

func (t *timeout) Write(ctx context.Context, kind domain.Kind, namespace string, name string, config conftree.Tree) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.base.Write(ctx, kind, namespace, name, config)
}

func (t *timeout) List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.base.List(ctx, kind, namespace, labelSelector)
}
