// Package naming derives cache keys and tags of managed resources.
//
// Configuration entries are tagged:
//
//   - "configurations"
//   - "namespace:<namespace>"
//   - "kind:<kind>"
//   - "resource:<kind>/<namespace>/<name>"
//
// Listing entries are tagged:
//
//   - "<kind>s"
//   - "namespace:<namespace>", or "all_namespaces" for cluster-wide listing
//   - "list:<kind>"
package naming

import (
	"github.com/opst/wlconf/pkg/cache"
	"github.com/opst/wlconf/pkg/domain"
)

const (
	TagConfigurations = "configurations"
	TagAllNamespaces  = "all_namespaces"
)

func NamespaceTag(namespace string) string {
	return "namespace:" + namespace
}

func KindTag(kind domain.Kind) string {
	return "kind:" + kind.String()
}

// ResourceTag is the tag shared by all entries of the single resource.
func ResourceTag(kind domain.Kind, namespace, name string) string {
	return "resource:" + domain.Identity{Kind: kind, Namespace: namespace, Name: name}.String()
}

// ListTag is the tag shared by all listing entries of the kind.
func ListTag(kind domain.Kind) string {
	return "list:" + kind.String()
}

// ConfigKey is the cache key of configuration of a resource.
func ConfigKey(kind domain.Kind, namespace, name string) string {
	return cache.Key("config", map[string]string{
		"type":      kind.String(),
		"namespace": namespace,
		"name":      name,
	})
}

// ConfigTags are tags of the configuration entry of a resource.
func ConfigTags(kind domain.Kind, namespace, name string) []string {
	return []string{
		TagConfigurations,
		NamespaceTag(namespace),
		KindTag(kind),
		ResourceTag(kind, namespace, name),
	}
}

// ListKey is the cache key of listing resources of kind.
//
// Empty namespace means all namespaces, and empty labelSelector means no filtering.
func ListKey(kind domain.Kind, namespace, labelSelector string) string {
	return cache.Key(kind.Plural(), map[string]string{
		"namespace":     namespace,
		"labelSelector": labelSelector,
	})
}

// ListTags are tags of the listing entry.
func ListTags(kind domain.Kind, namespace string) []string {
	ns := TagAllNamespaces
	if namespace != "" {
		ns = NamespaceTag(namespace)
	}
	return []string{kind.Plural(), ns, ListTag(kind)}
}
