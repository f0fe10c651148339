package conftree_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/opst/wlconf/pkg/conftree"
)

func deployment() conftree.Tree {
	return conftree.NormalizeTree(map[string]any{
		"metadata": map[string]any{
			"name":   "app",
			"labels": map[string]any{"app": "web"},
		},
		"spec": map[string]any{
			"replicas": 3,
			"selector": map[string]any{"matchLabels": map[string]any{"app": "web"}},
			"template": map[string]any{
				"spec": map[string]any{
					"containers": []any{
						map[string]any{"name": "web", "image": "nginx:1.25"},
						map[string]any{"name": "sidecar", "image": "envoy:1.30"},
					},
				},
			},
		},
	})
}

func TestNormalize(t *testing.T) {
	type when struct {
		value any
	}
	type then struct {
		value any
	}
	for name, testcase := range map[string]struct {
		when
		then
	}{
		"int becomes int64": {
			when: when{value: 3}, then: then{value: int64(3)},
		},
		"integral float becomes int64": {
			when: when{value: 3.0}, then: then{value: int64(3)},
		},
		"non-integral float stays float64": {
			when: when{value: 3.5}, then: then{value: 3.5},
		},
		"json.Number becomes int64": {
			when: when{value: json.Number("42")}, then: then{value: int64(42)},
		},
		"typed map becomes map[string]any": {
			when: when{value: map[string]string{"a": "b"}},
			then: then{value: map[string]any{"a": "b"}},
		},
		"typed slice becomes []any": {
			when: when{value: []int32{1, 2}},
			then: then{value: []any{int64(1), int64(2)}},
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := conftree.Normalize(testcase.when.value)
			b1, _ := json.Marshal(actual)
			b2, _ := json.Marshal(testcase.then.value)
			if string(b1) != string(b2) || !conftree.Equal(actual, testcase.then.value) {
				t.Errorf("unexpected: (actual, expected) = (%#v, %#v)", actual, testcase.then.value)
			}
			if _, isFloat := testcase.then.value.(float64); !isFloat {
				if _, ok := actual.(float64); ok {
					t.Errorf("float is left: %#v", actual)
				}
			}
		})
	}
}

func TestEqual(t *testing.T) {
	for name, testcase := range map[string]struct {
		a, b any
		then bool
	}{
		"numbers are equal by value":          {a: int64(3), b: 3.0, then: true},
		"different numbers are not equal":     {a: int64(3), b: int64(4), then: false},
		"lists in different order are equal":  {a: []any{int64(1), int64(2), int64(3)}, b: []any{int64(3), int64(2), int64(1)}, then: true},
		"lists with different count are not":  {a: []any{"a", "a"}, b: []any{"a"}, then: false},
		"lists with duplicates are multisets": {a: []any{"a", "a", "b"}, b: []any{"a", "b", "b"}, then: false},
		"maps with same entries are equal":    {a: map[string]any{"x": "y"}, b: map[string]any{"x": "y"}, then: true},
		"maps with extra key are not equal":   {a: map[string]any{"x": "y"}, b: map[string]any{"x": "y", "z": nil}, then: false},
		"nil equals nil":                      {a: nil, b: nil, then: true},
		"nil is not an empty string":          {a: nil, b: "", then: false},
		"string and number are not equal":     {a: "3", b: int64(3), then: false},
		"large integers are compared exactly": {a: int64(9007199254740993), b: int64(9007199254740992), then: false},
		"large equal integers are equal":      {a: int64(9007199254740993), b: int64(9007199254740993), then: true},
		"fractional float is not an integer":  {a: int64(3), b: 3.5, then: false},
		"float out of int64 range":            {a: int64(math.MaxInt64), b: 1e19, then: false},
		"lists of large integers":             {a: []any{int64(9007199254740993)}, b: []any{int64(9007199254740992)}, then: false},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := conftree.Equal(testcase.a, testcase.b); actual != testcase.then {
				t.Errorf("Equal(%#v, %#v) = %v, want %v", testcase.a, testcase.b, actual, testcase.then)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	t.Run("it merges nested mappings and replaces scalars", func(t *testing.T) {
		base := deployment()
		patch := conftree.NormalizeTree(map[string]any{
			"metadata": map[string]any{"labels": map[string]any{"tier": "front"}},
			"spec":     map[string]any{"replicas": 5},
		})

		actual := conftree.Merge(base, patch)

		if r := actual["spec"].(map[string]any)["replicas"]; r != int64(5) {
			t.Errorf("replicas is not replaced: %v", r)
		}
		labels := actual["metadata"].(map[string]any)["labels"].(map[string]any)
		if labels["app"] != "web" || labels["tier"] != "front" {
			t.Errorf("labels are not merged: %v", labels)
		}
		if _, ok := actual["spec"].(map[string]any)["template"]; !ok {
			t.Errorf("untouched field is lost")
		}
	})

	t.Run("it replaces lists wholesale", func(t *testing.T) {
		base := deployment()
		patch := conftree.NormalizeTree(map[string]any{
			"spec": map[string]any{"template": map[string]any{"spec": map[string]any{
				"containers": []any{map[string]any{"name": "only", "image": "busybox"}},
			}}},
		})

		actual := conftree.Merge(base, patch)
		containers := actual["spec"].(map[string]any)["template"].(map[string]any)["spec"].(map[string]any)["containers"].([]any)
		if len(containers) != 1 {
			t.Errorf("list is merged element-wise: %v", containers)
		}
	})

	t.Run("it does not mutate base nor patch", func(t *testing.T) {
		base := deployment()
		patch := conftree.NormalizeTree(map[string]any{"spec": map[string]any{"replicas": 9}})
		before := conftree.Clone(base)
		patchBefore := conftree.Clone(patch)

		merged := conftree.Merge(base, patch)
		merged["spec"].(map[string]any)["selector"].(map[string]any)["matchLabels"].(map[string]any)["app"] = "mutated"
		patch["spec"].(map[string]any)["replicas"] = int64(10)

		if !conftree.Equal(base, before) {
			t.Errorf("base is mutated: %v", base)
		}
		if merged["spec"].(map[string]any)["replicas"] != int64(9) {
			t.Errorf("merged result shares nodes with patch")
		}
		patch["spec"].(map[string]any)["replicas"] = int64(9)
		if !conftree.Equal(patch, patchBefore) {
			t.Errorf("patch is mutated: %v", patch)
		}
	})

	t.Run("it is idempotent", func(t *testing.T) {
		base := deployment()
		patch := conftree.NormalizeTree(map[string]any{
			"spec": map[string]any{
				"replicas": 7,
				"strategy": map[string]any{"type": "Recreate"},
			},
		})

		once := conftree.Merge(base, patch)
		twice := conftree.Merge(once, patch)
		if !conftree.Equal(once, twice) {
			t.Errorf("merge is not idempotent:\n%v\n%v", once, twice)
		}
	})

	t.Run("it accepts nil base", func(t *testing.T) {
		actual := conftree.Merge(nil, conftree.Tree{"a": "b"})
		if actual["a"] != "b" {
			t.Errorf("unexpected: %v", actual)
		}
	})
}

func TestDiff(t *testing.T) {
	t.Run("diff of a tree with itself is empty", func(t *testing.T) {
		a := deployment()
		if changes := conftree.Diff(a, conftree.Clone(a)); len(changes) != 0 {
			t.Errorf("unexpected changes: %v", changes)
		}
	})

	t.Run("list order is not a change", func(t *testing.T) {
		a := conftree.NormalizeTree(map[string]any{"x": []any{1, 2, 3}})
		b := conftree.NormalizeTree(map[string]any{"x": []any{3, 2, 1}})
		if changes := conftree.Diff(a, b); len(changes) != 0 {
			t.Errorf("unexpected changes: %v", changes)
		}
	})

	t.Run("containers in different order with one changed image", func(t *testing.T) {
		a := deployment()
		b := conftree.Clone(a)
		pod := b["spec"].(map[string]any)["template"].(map[string]any)["spec"].(map[string]any)
		pod["containers"] = []any{
			map[string]any{"name": "sidecar", "image": "envoy:1.30"},
			map[string]any{"name": "web", "image": "nginx:1.27"},
		}

		changes := conftree.Diff(a, b)
		if len(changes) != 1 {
			t.Fatalf("unexpected changes: %v", changes)
		}
		expected := conftree.Change{
			FieldPath:  "spec.template.spec.containers[1].image",
			OldValue:   "nginx:1.25",
			NewValue:   "nginx:1.27",
			ChangeType: conftree.Modified,
		}
		if changes[0] != expected {
			t.Errorf("unexpected change: (actual, expected) = (%v, %v)", changes[0], expected)
		}
	})

	t.Run("it reports added, removed and modified fields", func(t *testing.T) {
		a := conftree.NormalizeTree(map[string]any{
			"keep":   "same",
			"gone":   "bye",
			"change": 1,
			"nested": map[string]any{"deep": true},
			"list":   []any{"a", "b"},
		})
		b := conftree.NormalizeTree(map[string]any{
			"keep":   "same",
			"new":    "hello",
			"change": 2,
			"nested": map[string]any{"deep": false, "other": "x"},
			"list":   []any{"b", "a", "c"},
		})

		changes := conftree.Diff(a, b)
		expected := []conftree.Change{
			{FieldPath: "change", OldValue: int64(1), NewValue: int64(2), ChangeType: conftree.Modified},
			{FieldPath: "gone", OldValue: "bye", ChangeType: conftree.Removed},
			{FieldPath: "list[2]", NewValue: "c", ChangeType: conftree.Added},
			{FieldPath: "nested.deep", OldValue: true, NewValue: false, ChangeType: conftree.Modified},
			{FieldPath: "nested.other", NewValue: "x", ChangeType: conftree.Added},
			{FieldPath: "new", NewValue: "hello", ChangeType: conftree.Added},
		}
		if len(changes) != len(expected) {
			t.Fatalf("unexpected changes:\n%v", changes)
		}
		for i := range expected {
			if changes[i] != expected[i] {
				t.Errorf("#%d: (actual, expected) = (%v, %v)", i, changes[i], expected[i])
			}
		}
	})

	t.Run("numbers equal by value are not a change", func(t *testing.T) {
		a := conftree.Tree{"replicas": int64(3)}
		b := conftree.Tree{"replicas": float64(3)}
		if changes := conftree.Diff(a, b); len(changes) != 0 {
			t.Errorf("unexpected changes: %v", changes)
		}
	})

	t.Run("large integers differing beyond float precision are a change", func(t *testing.T) {
		a := conftree.Tree{"x": int64(9007199254740993)}
		b := conftree.Tree{"x": int64(9007199254740992)}
		changes := conftree.Diff(a, b)
		expected := conftree.Change{
			FieldPath:  "x",
			OldValue:   int64(9007199254740993),
			NewValue:   int64(9007199254740992),
			ChangeType: conftree.Modified,
		}
		if len(changes) != 1 || changes[0] != expected {
			t.Errorf("unexpected changes: %v", changes)
		}
	})

	t.Run("changes applied as a merge patch reproduce the updated tree", func(t *testing.T) {
		a := deployment()
		b := conftree.Merge(a, conftree.NormalizeTree(map[string]any{
			"metadata": map[string]any{"annotations": map[string]any{"note": "hi"}},
			"spec":     map[string]any{"replicas": 5, "minReadySeconds": 10},
		}))

		changes := conftree.Diff(a, b)
		patch := conftree.Tree{}
		for _, c := range changes {
			if c.ChangeType == conftree.Removed {
				t.Fatalf("unexpected removal: %v", c)
			}
			setPath(patch, c.FieldPath, c.NewValue)
		}

		if reproduced := conftree.Merge(a, patch); !conftree.Equal(reproduced, b) {
			t.Errorf("not reproduced:\n%v\n%v", reproduced, b)
		}
	})
}

func setPath(t conftree.Tree, path string, value any) {
	fields := strings.Split(path, ".")
	node := t
	for _, f := range fields[:len(fields)-1] {
		next, ok := node[f].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[f] = next
		}
		node = next
	}
	node[fields[len(fields)-1]] = value
}
