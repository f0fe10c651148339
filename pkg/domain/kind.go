package domain

import (
	"fmt"
	"strings"

	derr "github.com/opst/wlconf/pkg/domain/errors"
)

// Kind is a category of managed workload resources.
type Kind string

const (
	Deployment  Kind = "deployment"
	DaemonSet   Kind = "daemonset"
	StatefulSet Kind = "statefulset"
	Service     Kind = "service"
)

// Kinds lists all supported kinds.
func Kinds() []Kind {
	return []Kind{Deployment, DaemonSet, StatefulSet, Service}
}

func (k Kind) String() string {
	return string(k)
}

// Plural name of the kind, as used in listing cache keys and URLs.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Supported reports whether k is one of the recognized kinds.
func (k Kind) Supported() bool {
	switch k {
	case Deployment, DaemonSet, StatefulSet, Service:
		return true
	}
	return false
}

// Scalable reports whether the kind has `spec.replicas`.
func (k Kind) Scalable() bool {
	return k == Deployment || k == StatefulSet
}

// ParseKind parses kind name. It accepts singular and plural forms, case insensitive.
//
// # Returns
//
// - Kind
//
// - error: derr.ErrUnsupported when the name is not a recognized kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if name == string(k) || name == k.Plural() {
			return k, nil
		}
	}
	return "", derr.NewUnsupported(fmt.Sprintf("unsupported resource type: %s", s))
}

// Identity of a single managed resource.
type Identity struct {
	Kind      Kind
	Namespace string
	Name      string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Kind, id.Namespace, id.Name)
}
