package engine

import (
	"context"
	"fmt"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	xe "github.com/opst/wlconf/pkg/errors"
	"github.com/opst/wlconf/pkg/naming"
	"github.com/opst/wlconf/pkg/validation"
)

type ApplyRequest struct {
	Kind      domain.Kind
	Namespace string
	Name      string

	// partial (or full) configuration to be merged into the current one.
	Proposed conftree.Tree

	Actor string

	// when true, changes are computed but nothing is written.
	DryRun bool
}

func (r ApplyRequest) identity() domain.Identity {
	return domain.Identity{Kind: r.Kind, Namespace: r.Namespace, Name: r.Name}
}

// Apply merges the proposed configuration into the current one and writes it to the cluster.
//
// When the proposal has `spec`, the spec to be applied (current spec merged with proposed spec)
// is validated.
// A real apply with validation errors ends with Result.Success == false and nil error,
// touching nothing.
// A dry run reports changes and validation errors, and always succeeds.
//
// A real apply retains the current configuration as a snapshot before writing,
// and after the write, invalidates cached entries of the resource and listings of its kind.
//
// # Returns
//
// - domain.Result
//
// - error: as Fetch, and derr.ErrConflict when the resource has been modified concurrently.
// A conflict is not retried; callers should fetch again and resubmit.
func (e *Engine) Apply(ctx context.Context, req ApplyRequest) (domain.Result, error) {
	id := req.identity()

	current, err := e.Fetch(ctx, req.Kind, req.Namespace, req.Name)
	if err != nil {
		e.logger.Printf("apply %s by %s: %v", id, req.Actor, err)
		return domain.Result{}, err
	}

	proposed := conftree.NormalizeTree(req.Proposed)
	result := domain.Result{
		AppliedChanges:   []conftree.Change{},
		ValidationErrors: validateProposal(req.Kind, current, proposed),
		Timestamp:        e.now(),
		Actor:            req.Actor,
		DryRun:           req.DryRun,
	}

	if len(result.ValidationErrors) != 0 && !req.DryRun {
		result.Message = fmt.Sprintf("validation failed: %d error(s)", len(result.ValidationErrors))
		e.logger.Printf("apply %s by %s: %s", id, req.Actor, result.Message)
		return result, nil
	}

	merged := conftree.Merge(current, proposed)
	result.AppliedChanges = conftree.Diff(current, merged)
	result.RollbackSnapshot = current

	if req.DryRun {
		result.Success = true
		result.Message = fmt.Sprintf("dry run: %d change(s) would be applied", len(result.AppliedChanges))
		return result, nil
	}

	rec := e.rollbacks.Put(id, current, req.Actor)

	rv, err := e.cluster.Write(ctx, req.Kind, req.Namespace, req.Name, merged)
	if err != nil {
		e.logger.Printf("apply %s by %s: write failed: %v", id, req.Actor, err)
		return domain.Result{}, xe.Wrap(err)
	}

	invalidated := e.cache.InvalidateByTag(naming.ResourceTag(req.Kind, req.Namespace, req.Name))
	invalidated += e.cache.InvalidateByTag(naming.ListTag(req.Kind))

	result.Success = true
	result.RollbackKey = rec.Key
	result.ResourceVersion = rv
	result.Message = fmt.Sprintf("configuration applied: %d change(s)", len(result.AppliedChanges))
	e.logger.Printf(
		"apply %s by %s: %s (resourceVersion=%s, rollback=%s, %d cache entries invalidated)",
		id, req.Actor, result.Message, rv, rec.Key, invalidated,
	)
	return result, nil
}

// validateProposal validates the spec which would be applied.
func validateProposal(kind domain.Kind, current, proposed conftree.Tree) []string {
	s, ok := proposed["spec"]
	if !ok {
		return []string{}
	}
	spec, ok := s.(map[string]any)
	if !ok {
		return []string{"Configuration spec must be a mapping"}
	}
	base, _ := current["spec"].(map[string]any)
	return validation.Validate(kind, conftree.Merge(base, spec))
}

// Rollback re-applies the snapshot retained under rollbackKey.
//
// The snapshot is applied as a real apply, so it is validated,
// and the rollback itself retains a snapshot.
//
// # Returns
//
// - domain.Result
//
// - error: derr.ErrMissing when rollbackKey is unknown or is not for the resource.
// Others are as Apply.
func (e *Engine) Rollback(ctx context.Context, kind domain.Kind, namespace string, name string, rollbackKey string, actor string) (domain.Result, error) {
	id := domain.Identity{Kind: kind, Namespace: namespace, Name: name}
	rec, ok := e.rollbacks.Get(rollbackKey)
	if !ok || rec.Resource != id {
		e.logger.Printf("rollback %s by %s: unknown rollback key %s", id, actor, rollbackKey)
		return domain.Result{}, derr.NewMissing(fmt.Sprintf("rollback data not found: %s", rollbackKey))
	}

	result, err := e.Apply(ctx, ApplyRequest{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		Proposed:  rec.Snapshot,
		Actor:     actor,
	})
	if err != nil {
		return result, err
	}
	if result.Success {
		result.Message = fmt.Sprintf("rolled back to %s: %d change(s)", rollbackKey, len(result.AppliedChanges))
	}
	e.logger.Printf("rollback %s by %s to %s: success=%v", id, actor, rollbackKey, result.Success)
	return result, nil
}
