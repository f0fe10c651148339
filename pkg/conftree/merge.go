package conftree

// Merge deep-merges patch onto base.
//
// For each key of patch, when both base[key] and patch[key] are mappings, they are merged recursively.
// Otherwise the value in patch replaces the one in base as a whole.
// Sequences are replaced, never merged element-wise.
//
// Neither base nor patch is modified. The result shares no node with them.
func Merge(base Tree, patch Tree) Tree {
	ret := Clone(base)
	if ret == nil {
		ret = Tree{}
	}

	for k, pv := range patch {
		bv, ok := ret[k].(map[string]any)
		pm, pok := pv.(map[string]any)
		if ok && pok {
			ret[k] = Merge(bv, pm)
			continue
		}
		ret[k] = cloneValue(pv)
	}
	return ret
}
