// Package validation checks structural rules of resource specs.
//
// Rules are per-kind and pure: they look only at the given spec (the value of `spec` field),
// never at the cluster.
package validation

import (
	"fmt"
	"math"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Validate returns violations of rules for kind found in spec.
//
// The result is empty (not nil) when spec is valid.
// Kinds without rules (including unsupported ones) always pass.
func Validate(kind domain.Kind, spec conftree.Tree) []string {
	errs := []string{}
	if spec == nil {
		spec = conftree.Tree{}
	}

	switch kind {
	case domain.Deployment:
		errs = replicas(spec, errs)
		errs = selector("Deployment", spec, errs)
		errs = template("Deployment", spec, errs)
	case domain.DaemonSet:
		errs = selector("DaemonSet", spec, errs)
		errs = template("DaemonSet", spec, errs)
	case domain.StatefulSet:
		errs = replicas(spec, errs)
		if !has(spec, "serviceName") {
			errs = append(errs, "StatefulSet must have a serviceName")
		}
	case domain.Service:
		errs = ports(spec, errs)
	}
	return errs
}

func has(t conftree.Tree, fields ...string) bool {
	_, found, err := unstructured.NestedFieldNoCopy(t, fields...)
	return found && err == nil
}

func replicas(spec conftree.Tree, errs []string) []string {
	r, found, _ := unstructured.NestedFieldNoCopy(spec, "replicas")
	if !found {
		return errs
	}
	if n, ok := integer(r); !ok || n < 0 {
		return append(errs, "Replicas must be a non-negative integer")
	}
	return errs
}

// integer reads v as an integer. Integral float (as decoded from JSON) is accepted.
func integer(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func selector(kindName string, spec conftree.Tree, errs []string) []string {
	if !has(spec, "selector") {
		return append(errs, kindName+" must have a selector")
	}
	if !has(spec, "selector", "matchLabels") {
		return append(errs, kindName+" selector must have matchLabels")
	}
	return errs
}

func template(kindName string, spec conftree.Tree, errs []string) []string {
	t, found, _ := unstructured.NestedFieldNoCopy(spec, "template")
	if !found {
		return append(errs, kindName+" must have a pod template")
	}
	tmpl, _ := t.(map[string]any)
	return podTemplate(tmpl, errs)
}

func podTemplate(tmpl conftree.Tree, errs []string) []string {
	p, found, _ := unstructured.NestedFieldNoCopy(tmpl, "spec")
	if !found {
		return append(errs, "Pod template must have a spec")
	}
	podSpec, _ := p.(map[string]any)

	c, found, _ := unstructured.NestedFieldNoCopy(podSpec, "containers")
	containers, isList := c.([]any)
	if !found || !isList || len(containers) == 0 {
		return append(errs, "Pod spec must have containers")
	}
	for i, item := range containers {
		container, _ := item.(map[string]any)
		if !has(container, "name") {
			errs = append(errs, fmt.Sprintf("Container %d must have a name", i))
		}
		if !has(container, "image") {
			errs = append(errs, fmt.Sprintf("Container %d must have an image", i))
		}
	}
	return errs
}

func ports(spec conftree.Tree, errs []string) []string {
	p, found, _ := unstructured.NestedFieldNoCopy(spec, "ports")
	if !found {
		return errs
	}
	items, _ := p.([]any)
	for i, item := range items {
		port, _ := item.(map[string]any)
		if !has(port, "port") {
			errs = append(errs, fmt.Sprintf("Service port %d must have a port number", i))
		}
	}
	return errs
}
