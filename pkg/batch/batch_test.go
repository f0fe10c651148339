package batch_test

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/opst/wlconf/pkg/batch"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	"github.com/opst/wlconf/pkg/engine"
)

// applier records requests, and answers with the result made by respond.
type applier struct {
	requests []engine.ApplyRequest
	respond  func(engine.ApplyRequest) (domain.Result, error)
}

func (a *applier) Apply(_ context.Context, req engine.ApplyRequest) (domain.Result, error) {
	a.requests = append(a.requests, req)
	if a.respond == nil {
		return domain.Result{Success: true, Message: "ok", RollbackKey: "key-" + req.Name}, nil
	}
	return a.respond(req)
}

var now = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newOrchestrator(a *applier) *batch.Orchestrator {
	return batch.New(
		a,
		batch.WithClock(func() time.Time { return now }),
		batch.WithLogger(log.New(io.Discard, "", 0)),
	)
}

func replicasOf(t *testing.T, req engine.ApplyRequest) any {
	t.Helper()
	spec, ok := req.Proposed["spec"].(map[string]any)
	if !ok {
		t.Fatalf("proposal has no spec: %v", req.Proposed)
	}
	return spec["replicas"]
}

func TestRun_Scale(t *testing.T) {
	t.Run("deployments and statefulsets are scaled, others fail", func(t *testing.T) {
		a := &applier{}
		testee := newOrchestrator(a)

		result := testee.Run(context.Background(), batch.Request{
			Operation: batch.Scale,
			Targets: []batch.Target{
				{Kind: "deployment", Namespace: "default", Name: "web"},
				{Kind: "daemonset", Namespace: "default", Name: "agent"},
				{Kind: "StatefulSets", Namespace: "default", Name: "db"},
			},
			Parameters: map[string]any{"replicas": float64(4)},
		}, "alice")

		if result.Success || result.SuccessCount != 2 || result.FailedCount != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if !result.Timestamp.Equal(now) {
			t.Errorf("unexpected timestamp: %v", result.Timestamp)
		}
		if len(result.Results) != 3 {
			t.Fatalf("unexpected results: %+v", result.Results)
		}
		if r := result.Results[1]; r.Success || !strings.Contains(r.Message, "scaling is not supported") {
			t.Errorf("unexpected item: %+v", r)
		}
		if r := result.Results[0]; !r.Success || r.RollbackKey != "key-web" || r.Target.Name != "web" {
			t.Errorf("unexpected item: %+v", r)
		}

		if len(a.requests) != 2 {
			t.Fatalf("unexpected requests: %+v", a.requests)
		}
		for _, req := range a.requests {
			if replicasOf(t, req) != int64(4) || req.Actor != "alice" || req.DryRun {
				t.Errorf("unexpected request: %+v", req)
			}
		}
		if a.requests[1].Kind != domain.StatefulSet {
			t.Errorf("kind is not parsed: %s", a.requests[1].Kind)
		}
	})

	t.Run("replicas default to 1", func(t *testing.T) {
		a := &applier{}
		result := newOrchestrator(a).Run(context.Background(), batch.Request{
			Operation: batch.Scale,
			Targets:   []batch.Target{{Kind: "deployment", Namespace: "default", Name: "web"}},
		}, "alice")

		if !result.Success {
			t.Errorf("unexpected result: %+v", result)
		}
		if replicasOf(t, a.requests[0]) != int64(1) {
			t.Errorf("unexpected replicas: %v", a.requests[0].Proposed)
		}
	})
}

func TestRun_UpdateConfig(t *testing.T) {
	config := map[string]any{"metadata": map[string]any{"labels": map[string]any{"tier": "front"}}}
	a := &applier{
		respond: func(req engine.ApplyRequest) (domain.Result, error) {
			switch req.Name {
			case "missing":
				return domain.Result{}, derr.NewMissing("deployment/default/missing is not found")
			case "invalid":
				return domain.Result{
					Message:          "validation failed: 1 error(s)",
					ValidationErrors: []string{"Pod spec must have containers"},
				}, nil
			}
			return domain.Result{Success: true, Message: "configuration applied: 1 change(s)"}, nil
		},
	}

	result := newOrchestrator(a).Run(context.Background(), batch.Request{
		Operation: batch.UpdateConfig,
		Targets: []batch.Target{
			{Kind: "deployment", Namespace: "default", Name: "missing"},
			{Kind: "deployment", Namespace: "default", Name: "web"},
			{Kind: "deployment", Namespace: "default", Name: "invalid"},
			{Kind: "pod", Namespace: "default", Name: "p"},
		},
		Parameters: map[string]any{"configuration": config},
	}, "bob")

	if result.Success || result.SuccessCount != 1 || result.FailedCount != 3 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(a.requests) != 3 {
		t.Errorf("later targets are not processed after failure: %d", len(a.requests))
	}
	for _, req := range a.requests {
		if !conftree.Equal(req.Proposed, conftree.NormalizeTree(config)) {
			t.Errorf("unexpected proposal: %v", req.Proposed)
		}
	}

	expected := []struct {
		success bool
		message string
	}{
		{false, "deployment/default/missing is not found"},
		{true, "configuration applied: 1 change(s)"},
		{false, "validation failed: 1 error(s): Pod spec must have containers"},
		{false, "unsupported resource type: pod"},
	}
	for i, e := range expected {
		r := result.Results[i]
		if r.Success != e.success || r.Message != e.message {
			t.Errorf("#%d: unexpected item: %+v", i, r)
		}
	}
}

func TestRun_Failures(t *testing.T) {
	t.Run("unknown operation fails every item", func(t *testing.T) {
		a := &applier{}
		result := newOrchestrator(a).Run(context.Background(), batch.Request{
			Operation: batch.Operation("restart"),
			Targets: []batch.Target{
				{Kind: "deployment", Namespace: "default", Name: "web"},
				{Kind: "service", Namespace: "default", Name: "api"},
			},
		}, "alice")

		if result.Success || result.FailedCount != 2 || len(a.requests) != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.Results[0].Message != "unsupported operation: restart" {
			t.Errorf("unexpected message: %s", result.Results[0].Message)
		}
	})

	t.Run("configuration which is not a mapping fails", func(t *testing.T) {
		a := &applier{}
		result := newOrchestrator(a).Run(context.Background(), batch.Request{
			Operation:  batch.UpdateConfig,
			Targets:    []batch.Target{{Kind: "service", Namespace: "default", Name: "api"}},
			Parameters: map[string]any{"configuration": "spec: {}"},
		}, "alice")
		if result.Success || len(a.requests) != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("after cancellation, remaining items fail", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		a := &applier{}
		a.respond = func(req engine.ApplyRequest) (domain.Result, error) {
			cancel()
			return domain.Result{Success: true}, nil
		}

		result := newOrchestrator(a).Run(ctx, batch.Request{
			Operation: batch.Scale,
			Targets: []batch.Target{
				{Kind: "deployment", Namespace: "default", Name: "a"},
				{Kind: "deployment", Namespace: "default", Name: "b"},
				{Kind: "deployment", Namespace: "default", Name: "c"},
			},
		}, "alice")

		if result.SuccessCount != 1 || result.FailedCount != 2 || len(a.requests) != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.Results[2].Message != context.Canceled.Error() {
			t.Errorf("unexpected message: %s", result.Results[2].Message)
		}
	})

	t.Run("empty batch succeeds", func(t *testing.T) {
		result := newOrchestrator(&applier{}).Run(context.Background(), batch.Request{Operation: batch.Scale}, "alice")
		if !result.Success || result.Results == nil || len(result.Results) != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
	})
}
