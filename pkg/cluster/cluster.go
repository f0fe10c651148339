// Package cluster reads and writes workload resources on a Kubernetes cluster.
//
// Resources are exchanged as configuration trees (see pkg/conftree),
// converted from/to typed API objects with runtime.DefaultUnstructuredConverter.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	derr "github.com/opst/wlconf/pkg/domain/errors"
	xe "github.com/opst/wlconf/pkg/errors"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// Collaborator is the cluster as seen from the configuration engine.
type Collaborator interface {
	// Read returns current configuration of the resource.
	//
	// # Returns
	//
	// - conftree.Tree: full configuration, including metadata and status.
	//
	// - error: derr.ErrMissing when the resource is not found.
	// derr.ErrUnsupported for unknown kinds. derr.ErrCollaborator for other failures.
	Read(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error)

	// Write replaces the resource with config.
	//
	// When config has `metadata.resourceVersion`, the write is conditional on it.
	//
	// # Returns
	//
	// - string: resourceVersion after the write
	//
	// - error: derr.ErrConflict when the resource has been modified concurrently.
	// Others are as Read.
	Write(ctx context.Context, kind domain.Kind, namespace string, name string, config conftree.Tree) (string, error)

	// List returns configurations of resources of the kind.
	//
	// Empty namespace means all namespaces. Empty labelSelector matches everything.
	List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error)
}

var typeMeta = map[domain.Kind]kubeapimeta.TypeMeta{
	domain.Deployment:  {APIVersion: "apps/v1", Kind: "Deployment"},
	domain.DaemonSet:   {APIVersion: "apps/v1", Kind: "DaemonSet"},
	domain.StatefulSet: {APIVersion: "apps/v1", Kind: "StatefulSet"},
	domain.Service:     {APIVersion: "v1", Kind: "Service"},
}

type Cluster struct {
	client K8sClient
}

var _ Collaborator = &Cluster{}

func New(client K8sClient) *Cluster {
	return &Cluster{client: client}
}

func (c *Cluster) Read(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error) {
	var obj any
	var err error
	switch kind {
	case domain.Deployment:
		obj, err = c.client.GetDeployment(ctx, namespace, name)
	case domain.DaemonSet:
		obj, err = c.client.GetDaemonSet(ctx, namespace, name)
	case domain.StatefulSet:
		obj, err = c.client.GetStatefulSet(ctx, namespace, name)
	case domain.Service:
		obj, err = c.client.GetService(ctx, namespace, name)
	default:
		return nil, derr.NewUnsupported(fmt.Sprintf("unsupported resource type: %s", kind))
	}
	if err != nil {
		return nil, classify(err, domain.Identity{Kind: kind, Namespace: namespace, Name: name})
	}
	return toTree(kind, obj)
}

func (c *Cluster) Write(ctx context.Context, kind domain.Kind, namespace string, name string, config conftree.Tree) (string, error) {
	var rv string
	var err error
	switch kind {
	case domain.Deployment:
		rv, err = update(ctx, namespace, name, config, c.client.UpdateDeployment)
	case domain.DaemonSet:
		rv, err = update(ctx, namespace, name, config, c.client.UpdateDaemonSet)
	case domain.StatefulSet:
		rv, err = update(ctx, namespace, name, config, c.client.UpdateStatefulSet)
	case domain.Service:
		rv, err = update(ctx, namespace, name, config, c.client.UpdateService)
	default:
		return "", derr.NewUnsupported(fmt.Sprintf("unsupported resource type: %s", kind))
	}
	if err != nil {
		return "", classify(err, domain.Identity{Kind: kind, Namespace: namespace, Name: name})
	}
	return rv, nil
}

func (c *Cluster) List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error) {
	var trees []conftree.Tree
	var err error
	switch kind {
	case domain.Deployment:
		trees, err = list(ctx, kind, namespace, labelSelector, c.client.ListDeployments)
	case domain.DaemonSet:
		trees, err = list(ctx, kind, namespace, labelSelector, c.client.ListDaemonSets)
	case domain.StatefulSet:
		trees, err = list(ctx, kind, namespace, labelSelector, c.client.ListStatefulSets)
	case domain.Service:
		trees, err = list(ctx, kind, namespace, labelSelector, c.client.ListServices)
	default:
		return nil, derr.NewUnsupported(fmt.Sprintf("unsupported resource type: %s", kind))
	}
	if err != nil {
		return nil, classify(err, domain.Identity{Kind: kind, Namespace: namespace})
	}
	return trees, nil
}

// malformed is an error of conversion between trees and API objects.
type malformed struct {
	err error
}

func (m malformed) Error() string {
	return "malformed configuration: " + m.err.Error()
}

func (m malformed) Unwrap() error {
	return m.err
}

func update[T any, P interface {
	*T
	kubeapimeta.Object
}](
	ctx context.Context, namespace string, name string, config conftree.Tree,
	do func(context.Context, string, P) (P, error),
) (string, error) {
	obj := P(new(T))
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(config, obj); err != nil {
		return "", malformed{err: err}
	}
	obj.SetNamespace(namespace)
	obj.SetName(name)

	updated, err := do(ctx, namespace, obj)
	if err != nil {
		return "", err
	}
	return updated.GetResourceVersion(), nil
}

func list[T any](
	ctx context.Context, kind domain.Kind, namespace string, labelSelector string,
	do func(context.Context, string, string) ([]T, error),
) ([]conftree.Tree, error) {
	items, err := do(ctx, namespace, labelSelector)
	if err != nil {
		return nil, err
	}
	trees := make([]conftree.Tree, 0, len(items))
	for i := range items {
		t, err := toTree(kind, &items[i])
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

func toTree(kind domain.Kind, obj any) (conftree.Tree, error) {
	u, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, xe.Wrap(malformed{err: err})
	}
	tm := typeMeta[kind]
	u["apiVersion"] = tm.APIVersion
	u["kind"] = tm.Kind
	return conftree.NormalizeTree(u), nil
}

func classify(err error, id domain.Identity) error {
	var m malformed
	switch {
	case errors.As(err, &m):
		return xe.Wrap(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return xe.Wrap(err)
	case kubeerr.IsNotFound(err):
		return derr.NewMissingCausedBy(fmt.Sprintf("%s is not found", id), err)
	case kubeerr.IsConflict(err):
		return derr.NewConflictCausedBy(fmt.Sprintf("%s has been modified", id), err)
	}
	return derr.NewCollaboratorCausedBy(fmt.Sprintf("cluster request for %s failed", id), err)
}
