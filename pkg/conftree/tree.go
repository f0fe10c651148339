// Package conftree handles configuration trees of workload resources.
//
// A configuration tree is what `kubectl get -o json` shows, decoded generically:
// mappings are map[string]any, sequences are []any and leaves are scalars.
// Merge, Diff and validation work on trees without per-kind schemas.
//
// Trees handled here are expected to be normalized (see Normalize):
// numbers are int64 when integral, float64 otherwise.
package conftree

import (
	"encoding/json"
	"math"
	"reflect"
)

// Tree is a mapping node of configuration.
type Tree = map[string]any

// Normalize converts v into the canonical tree representation.
//
// - any integral number (Go integers, integral floats, json.Number) becomes int64
//
// - other numbers become float64
//
// - maps keyed by string become map[string]any, slices and arrays become []any
//
// Values of other types are kept as they are.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64:
		return x
	case map[string]any:
		ret := make(map[string]any, len(x))
		for k, e := range x {
			ret[k] = Normalize(e)
		}
		return ret
	case []any:
		ret := make([]any, len(x))
		for i, e := range x {
			ret[i] = Normalize(e)
		}
		return ret
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return fromUint(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return fromFloat(f)
		}
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		ret := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			ret[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return ret
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		ret := make([]any, rv.Len())
		for i := range ret {
			ret[i] = Normalize(rv.Index(i).Interface())
		}
		return ret
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return v
}

// NormalizeTree is Normalize for a mapping node. nil becomes an empty Tree.
func NormalizeTree(t map[string]any) Tree {
	if t == nil {
		return Tree{}
	}
	return Normalize(t).(map[string]any)
}

func fromUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func fromFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	if f == math.Trunc(f) && math.MinInt64 <= f && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// Clone returns a deep copy of t. nil is cloned into nil.
func Clone(t Tree) Tree {
	if t == nil {
		return nil
	}
	return cloneValue(t).(map[string]any)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		ret := make(map[string]any, len(x))
		for k, e := range x {
			ret[k] = cloneValue(e)
		}
		return ret
	case []any:
		ret := make([]any, len(x))
		for i, e := range x {
			ret[i] = cloneValue(e)
		}
		return ret
	}
	return v
}

// Equal reports whether a and b are the same configuration value.
//
// Mappings are equal when they have the same keys with equal values.
// Sequences are compared as order-independent collections.
// Numbers are compared by value, regardless of int64 or float64.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, vx := range x {
			vy, ok := y[k]
			if !ok || !Equal(vx, vy) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		_, leftA, leftB := pairEquals(x, y)
		return len(leftA) == 0 && len(leftB) == 0
	}

	if na, ok := number(a); ok {
		nb, ok := number(b)
		return ok && na.equal(nb)
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// numeric holds a scalar number as either an exact integer or a float.
type numeric struct {
	i       int64
	f       float64
	isFloat bool
}

func number(v any) (numeric, bool) {
	switch x := v.(type) {
	case int64:
		return numeric{i: x}, true
	case int:
		return numeric{i: int64(x)}, true
	case int32:
		return numeric{i: int64(x)}, true
	case float64:
		return numeric{f: x, isFloat: true}, true
	case float32:
		return numeric{f: float64(x), isFloat: true}, true
	}
	return numeric{}, false
}

func (n numeric) equal(m numeric) bool {
	switch {
	case !n.isFloat && !m.isFloat:
		return n.i == m.i
	case n.isFloat && m.isFloat:
		return n.f == m.f
	case n.isFloat:
		return intEqualsFloat(m.i, n.f)
	default:
		return intEqualsFloat(n.i, m.f)
	}
}

// intEqualsFloat is true only when f is integral, fits in int64 and equals i.
func intEqualsFloat(i int64, f float64) bool {
	if f != math.Trunc(f) || f < -(1<<63) || f >= (1<<63) {
		return false
	}
	return int64(f) == i
}

// pairEquals matches each element of a with an equal, not yet matched element of b.
//
// # Returns
//
// - pairs: matched (index of a, index of b)
//
// - leftA, leftB: indexes not matched, in ascending order.
func pairEquals(a, b []any) (pairs [][2]int, leftA []int, leftB []int) {
	used := make([]bool, len(b))
	for i, ea := range a {
		found := false
		for j, eb := range b {
			if used[j] {
				continue
			}
			if Equal(ea, eb) {
				used[j] = true
				pairs = append(pairs, [2]int{i, j})
				found = true
				break
			}
		}
		if !found {
			leftA = append(leftA, i)
		}
	}
	for j, u := range used {
		if !u {
			leftB = append(leftB, j)
		}
	}
	return pairs, leftA, leftB
}
