package engine

import "github.com/opst/wlconf/pkg/conftree"

// metadata fields set by the cluster. They are not part of desired configuration.
var readOnlyMetadata = []string{
	"uid",
	"resourceVersion",
	"generation",
	"creationTimestamp",
	"deletionTimestamp",
	"deletionGracePeriodSeconds",
	"selfLink",
	"managedFields",
}

// Sanitize returns a copy of raw without cluster-reported fields.
//
// `status` is dropped entirely, and read-only fields are dropped from `metadata`.
// raw is not modified.
func Sanitize(raw conftree.Tree) conftree.Tree {
	config := conftree.Clone(raw)
	if config == nil {
		return conftree.Tree{}
	}
	delete(config, "status")
	if meta, ok := config["metadata"].(map[string]any); ok {
		for _, f := range readOnlyMetadata {
			delete(meta, f)
		}
	}
	return config
}
