package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/opst/wlconf/pkg/cluster"
	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
)

type Collaborator struct {
	Impl struct {
		Read  func(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error)
		Write func(ctx context.Context, kind domain.Kind, namespace string, name string, config conftree.Tree) (string, error)
		List  func(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error)
	}
	Called struct {
		Read  uint64
		Write uint64
		List  uint64
	}

	mu sync.Mutex
}

// Collaborator implements cluster.Collaborator
var _ cluster.Collaborator = &Collaborator{}

func New() *Collaborator {
	return &Collaborator{}
}

func (m *Collaborator) Read(ctx context.Context, kind domain.Kind, namespace string, name string) (conftree.Tree, error) {
	m.mu.Lock()
	m.Called.Read += 1
	m.mu.Unlock()
	if m.Impl.Read == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Read(ctx, kind, namespace, name)
}

func (m *Collaborator) Write(ctx context.Context, kind domain.Kind, namespace string, name string, config conftree.Tree) (string, error) {
	m.mu.Lock()
	m.Called.Write += 1
	m.mu.Unlock()
	if m.Impl.Write == nil {
		return "", errors.New("[MOCK] not implemented")
	}
	return m.Impl.Write(ctx, kind, namespace, name, config)
}

func (m *Collaborator) List(ctx context.Context, kind domain.Kind, namespace string, labelSelector string) ([]conftree.Tree, error) {
	m.mu.Lock()
	m.Called.List += 1
	m.mu.Unlock()
	if m.Impl.List == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.List(ctx, kind, namespace, labelSelector)
}
