// Package engine manages desired configuration of workload resources.
//
// Engine reads configurations through a cache, validates and merges proposals,
// computes field-level changes, writes merged configurations to the cluster,
// and retains snapshots for rollback.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opst/wlconf/pkg/cache"
	"github.com/opst/wlconf/pkg/cluster"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	xe "github.com/opst/wlconf/pkg/errors"
	"github.com/opst/wlconf/pkg/naming"
	"github.com/opst/wlconf/pkg/rollback"
	"github.com/opst/wlconf/pkg/validation"
)

type Engine struct {
	cluster   cluster.Collaborator
	cache     *cache.Store
	rollbacks *rollback.Store

	configPolicy cache.Policy
	listPolicy   cache.Policy

	now    func() time.Time
	logger *log.Logger
}

type Option func(*Engine) *Engine

func WithClock(now func() time.Time) Option {
	return func(e *Engine) *Engine {
		e.now = now
		return e
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) *Engine {
		e.logger = logger
		return e
	}
}

// WithCachePolicy sets how long fetched configurations and listings are cached.
//
// By default, configurations are ShortTerm and listings are MediumTerm.
func WithCachePolicy(config cache.Policy, list cache.Policy) Option {
	return func(e *Engine) *Engine {
		e.configPolicy = config
		e.listPolicy = list
		return e
	}
}

// New creates an Engine.
//
// # Args
//
// - c: the cluster, where configurations are read from and written to.
//
// - store: cache of cluster reads. It may be shared with others.
//
// - rollbacks: where snapshots before applies are retained.
func New(c cluster.Collaborator, store *cache.Store, rollbacks *rollback.Store, options ...Option) *Engine {
	e := &Engine{
		cluster:   c,
		cache:     store,
		rollbacks: rollbacks,

		configPolicy: cache.ShortTerm,
		listPolicy:   cache.MediumTerm,

		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range options {
		e = opt(e)
	}
	return e
}

func unsupported(kind domain.Kind) error {
	return derr.NewUnsupported(fmt.Sprintf("unsupported resource type: %s", kind))
}

// Fetch returns the current configuration of the resource.
//
// The configuration is sanitized (see Sanitize) and cached for a short term.
// The returned tree is owned by the caller.
//
// # Returns
//
// - conftree.Tree
//
// - error: derr.ErrMissing when the resource is not found. derr.ErrUnsupported for unknown kinds.
// Other errors from the cluster are passed through.
func (e *Engine) Fetch(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error) {
	if !kind.Supported() {
		return nil, unsupported(kind)
	}

	key := naming.ConfigKey(kind, namespace, name)
	if v, ok := e.cache.Get(key); ok {
		if config, ok := v.(conftree.Tree); ok {
			return conftree.Clone(config), nil
		}
	}

	raw, err := e.cluster.Read(ctx, kind, namespace, name)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	config := Sanitize(raw)
	e.cache.Set(key, config, e.configPolicy, naming.ConfigTags(kind, namespace, name)...)
	return conftree.Clone(config), nil
}

// Validate checks spec by rules for kind. See pkg/validation.
func (e *Engine) Validate(kind domain.Kind, spec conftree.Tree) []string {
	return validation.Validate(kind, spec)
}

// Merge deep-merges patch into base. See conftree.Merge.
func (e *Engine) Merge(base, patch conftree.Tree) conftree.Tree {
	return conftree.Merge(base, patch)
}

// Diff computes changes from original to updated. See conftree.Diff.
func (e *Engine) Diff(original, updated conftree.Tree) []conftree.Change {
	return conftree.Diff(original, updated)
}

// ValidateConfiguration validates a standalone configuration.
//
// Only its `spec` is checked. Configuration without `spec` has nothing to be violated.
//
// # Returns
//
// - []string: violations. Empty when valid.
//
// - error: derr.ErrUnsupported for unknown kinds.
func (e *Engine) ValidateConfiguration(kind domain.Kind, proposed conftree.Tree) ([]string, error) {
	if !kind.Supported() {
		return nil, unsupported(kind)
	}
	proposed = conftree.NormalizeTree(proposed)
	s, ok := proposed["spec"]
	if !ok {
		return []string{}, nil
	}
	spec, ok := s.(map[string]any)
	if !ok {
		return []string{"Configuration spec must be a mapping"}, nil
	}
	return validation.Validate(kind, spec), nil
}

// Rollbacks returns snapshots retained for the resource, newest first.
func (e *Engine) Rollbacks(kind domain.Kind, namespace string, name string) []rollback.Record {
	return e.rollbacks.List(domain.Identity{Kind: kind, Namespace: namespace, Name: name})
}
