// Package batch applies one operation to many resources.
//
// Targets are processed one by one, in the given order.
// Each target succeeds or fails on its own: there is no atomicity over a batch,
// and a failed target never stops the others.
package batch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	"github.com/opst/wlconf/pkg/engine"
	xe "github.com/opst/wlconf/pkg/errors"
)

type Operation string

const (
	// sets `spec.replicas` from parameter "replicas" (default: 1).
	Scale Operation = "scale"

	// merges parameter "configuration".
	UpdateConfig Operation = "update_config"
)

const defaultReplicas = 1

// Target is a resource in a batch. Kind is as written by the caller, and parsed per item.
type Target struct {
	Kind      string `json:"type" yaml:"type"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
}

type Request struct {
	Operation  Operation
	Targets    []Target
	Parameters map[string]any
}

type ItemResult struct {
	Target  Target `json:"resource"`
	Success bool   `json:"success"`
	Message string `json:"message"`

	// empty unless the item is applied.
	RollbackKey string `json:"rollback_key,omitempty"`
}

type Result struct {
	Success      bool         `json:"success"`
	Results      []ItemResult `json:"results"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Applier applies a configuration to a resource. *engine.Engine satisfies this.
type Applier interface {
	Apply(ctx context.Context, req engine.ApplyRequest) (domain.Result, error)
}

type Orchestrator struct {
	applier Applier
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Orchestrator) *Orchestrator

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) *Orchestrator {
		o.now = now
		return o
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) *Orchestrator {
		o.logger = logger
		return o
	}
}

func New(applier Applier, options ...Option) *Orchestrator {
	o := &Orchestrator{applier: applier, now: time.Now, logger: log.Default()}
	for _, opt := range options {
		o = opt(o)
	}
	return o
}

// Run applies the operation to each target in order, as actor.
//
// Failures are recorded per item. When ctx is done, the remaining items fail with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, req Request, actor string) Result {
	result := Result{Results: make([]ItemResult, 0, len(req.Targets))}

	for _, target := range req.Targets {
		var item ItemResult
		if err := ctx.Err(); err != nil {
			item = ItemResult{Target: target, Message: err.Error()}
		} else {
			item = o.runOne(ctx, req.Operation, target, req.Parameters, actor)
		}

		if item.Success {
			result.SuccessCount += 1
		} else {
			result.FailedCount += 1
		}
		result.Results = append(result.Results, item)
	}

	result.Success = result.FailedCount == 0
	result.Timestamp = o.now()
	o.logger.Printf(
		"batch %s by %s: %d succeeded, %d failed",
		req.Operation, actor, result.SuccessCount, result.FailedCount,
	)
	return result
}

func (o *Orchestrator) runOne(ctx context.Context, op Operation, target Target, params map[string]any, actor string) ItemResult {
	fail := func(message string) ItemResult {
		return ItemResult{Target: target, Message: message}
	}

	kind, err := domain.ParseKind(target.Kind)
	if err != nil {
		return fail(fmt.Sprintf("unsupported resource type: %s", target.Kind))
	}

	var proposed conftree.Tree
	switch op {
	case Scale:
		if !kind.Scalable() {
			return fail(fmt.Sprintf("scaling is not supported for %s", kind))
		}
		replicas, ok := params["replicas"]
		if !ok || replicas == nil {
			replicas = defaultReplicas
		}
		proposed = conftree.NormalizeTree(map[string]any{
			"spec": map[string]any{"replicas": replicas},
		})
	case UpdateConfig:
		c, ok := params["configuration"]
		if !ok || c == nil {
			c = map[string]any{}
		}
		config, ok := conftree.Normalize(c).(map[string]any)
		if !ok {
			return fail("configuration must be a mapping")
		}
		proposed = config
	default:
		return fail(fmt.Sprintf("unsupported operation: %s", op))
	}

	res, err := o.applier.Apply(ctx, engine.ApplyRequest{
		Kind:      kind,
		Namespace: target.Namespace,
		Name:      target.Name,
		Proposed:  proposed,
		Actor:     actor,
	})
	if err != nil {
		return fail(xe.Message(err))
	}

	message := res.Message
	if len(res.ValidationErrors) != 0 {
		message = message + ": " + strings.Join(res.ValidationErrors, "; ")
	}
	return ItemResult{
		Target:      target,
		Success:     res.Success,
		Message:     message,
		RollbackKey: res.RollbackKey,
	}
}
