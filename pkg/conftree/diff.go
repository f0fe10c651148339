package conftree

import (
	"fmt"
	"sort"
)

type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// Change is a difference found at a field.
type Change struct {
	// path to the field, like "spec.template.spec.containers[0].image"
	FieldPath string `json:"field_path"`

	// nil when ChangeType is Added
	OldValue any `json:"old_value"`

	// nil when ChangeType is Removed
	NewValue any `json:"new_value"`

	ChangeType ChangeType `json:"change_type"`
}

func (c Change) String() string {
	switch c.ChangeType {
	case Added:
		return fmt.Sprintf("+ %s: %v", c.FieldPath, c.NewValue)
	case Removed:
		return fmt.Sprintf("- %s: %v", c.FieldPath, c.OldValue)
	default:
		return fmt.Sprintf("~ %s: %v -> %v", c.FieldPath, c.OldValue, c.NewValue)
	}
}

// Diff computes field-level changes from original to updated.
//
// Mappings are compared field by field, recursively.
// Sequences are compared as order-independent collections:
// elements found in both sides (at any position) are not changes.
// Remaining elements are paired in their order and compared recursively;
// elements left unpaired are reported as removed or added.
//
// Changes are ordered deterministically: keys of mappings in lexical order.
func Diff(original Tree, updated Tree) []Change {
	changes := []Change{}
	return diffMap(changes, "", original, updated)
}

func diffMap(changes []Change, path string, a, b map[string]any) []Change {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := field(path, k)
		va, inA := a[k]
		vb, inB := b[k]
		switch {
		case inA && !inB:
			changes = append(changes, Change{FieldPath: p, OldValue: va, ChangeType: Removed})
		case !inA && inB:
			changes = append(changes, Change{FieldPath: p, NewValue: vb, ChangeType: Added})
		default:
			changes = diffValue(changes, p, va, vb)
		}
	}
	return changes
}

func diffValue(changes []Change, path string, a, b any) []Change {
	if ma, ok := a.(map[string]any); ok {
		if mb, ok := b.(map[string]any); ok {
			return diffMap(changes, path, ma, mb)
		}
	}
	if la, ok := a.([]any); ok {
		if lb, ok := b.([]any); ok {
			return diffList(changes, path, la, lb)
		}
	}
	if !Equal(a, b) {
		changes = append(changes, Change{FieldPath: path, OldValue: a, NewValue: b, ChangeType: Modified})
	}
	return changes
}

func diffList(changes []Change, path string, a, b []any) []Change {
	_, leftA, leftB := pairEquals(a, b)

	n := min(len(leftA), len(leftB))
	for i := 0; i < n; i++ {
		changes = diffValue(changes, index(path, leftB[i]), a[leftA[i]], b[leftB[i]])
	}
	for _, i := range leftA[n:] {
		changes = append(changes, Change{FieldPath: index(path, i), OldValue: a[i], ChangeType: Removed})
	}
	for _, j := range leftB[n:] {
		changes = append(changes, Change{FieldPath: index(path, j), NewValue: b[j], ChangeType: Added})
	}
	return changes
}

func field(path string, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
