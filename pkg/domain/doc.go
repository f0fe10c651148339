package domain

// domain package contains the domain model types of workload configuration management.
//
// `domain/kind.go` defines which kinds of workload resources are managed,
// and `domain/result.go` defines what an apply (or rollback) reports to its caller.
//
// `domain/errors` has the error taxonomy shared by the engine, the cluster collaborator
// and the HTTP layer.
//
// # Entities
//
// - `Kind`: category of managed resource; deployment, daemonset, statefulset or service.
//
// - `Identity`: (kind, namespace, name) of a single managed resource.
// Cache keys, cache tags and rollback keys are all derived from it.
//
// - `Result`: outcome of an apply. It carries the field-level changes,
// the configuration before the apply (for rollback) and validation findings.
//
// Configuration itself is not a domain type but a generic tree; see `pkg/conftree`.
