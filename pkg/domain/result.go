package domain

import (
	"time"

	"github.com/opst/wlconf/pkg/conftree"
)

// Result is the outcome of an apply or a rollback.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// field-level changes between the configuration before the apply and the merged one.
	AppliedChanges []conftree.Change `json:"applied_changes"`

	// full configuration before the apply. nil when nothing was computed.
	RollbackSnapshot conftree.Tree `json:"rollback_data,omitempty"`

	// key of the retained snapshot. Only real applies retain one.
	RollbackKey string `json:"rollback_key,omitempty"`

	ValidationErrors []string  `json:"validation_errors"`
	Timestamp        time.Time `json:"timestamp"`
	Actor            string    `json:"user"`

	// resourceVersion reported by the cluster after the write.
	ResourceVersion string `json:"resource_version,omitempty"`

	DryRun bool `json:"dry_run"`
}
