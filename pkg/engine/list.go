package engine

import (
	"context"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	xe "github.com/opst/wlconf/pkg/errors"
	"github.com/opst/wlconf/pkg/naming"
)

// List returns sanitized configurations of resources of kind.
//
// Listings are cached for a medium term, and dropped by applies on the kind.
// Empty namespace means all namespaces.
func (e *Engine) List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error) {
	if !kind.Supported() {
		return nil, unsupported(kind)
	}

	key := naming.ListKey(kind, namespace, labelSelector)
	if v, ok := e.cache.Get(key); ok {
		if items, ok := v.([]conftree.Tree); ok {
			return cloneAll(items), nil
		}
	}

	raw, err := e.cluster.List(ctx, kind, namespace, labelSelector)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	items := make([]conftree.Tree, 0, len(raw))
	for _, r := range raw {
		items = append(items, Sanitize(r))
	}
	e.cache.Set(key, items, e.listPolicy, naming.ListTags(kind, namespace)...)
	return cloneAll(items), nil
}

// Refresh drops cached listings and configurations of kind, and lists again.
func (e *Engine) Refresh(ctx context.Context, kind domain.Kind, namespace string) ([]conftree.Tree, error) {
	if !kind.Supported() {
		return nil, unsupported(kind)
	}
	n := e.cache.InvalidateByTag(naming.ListTag(kind))
	n += e.cache.InvalidateByTag(naming.KindTag(kind))
	e.logger.Printf("refresh %s: %d cache entries invalidated", kind.Plural(), n)

	return e.List(ctx, kind, namespace, "")
}

func cloneAll(items []conftree.Tree) []conftree.Tree {
	ret := make([]conftree.Tree, len(items))
	for i := range items {
		ret[i] = conftree.Clone(items[i])
	}
	return ret
}
