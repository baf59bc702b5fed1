package editlogs

import (
	"reflect"
	"sort"

	"rim/internal/document"
)

type Kind string

const (
	New     Kind = "N"
	Deleted Kind = "D"
	Edited  Kind = "E"
	Array   Kind = "A"
)

// Change is one entry of a structural diff. Array changes carry the index
// and the inserted or removed element as a nested N or D item.
type Change struct {
	Kind  Kind    `bson:"kind" json:"kind"`
	Path  Path    `bson:"path,omitempty" json:"path,omitempty"`
	LHS   any     `bson:"lhs,omitempty" json:"lhs,omitempty"`
	RHS   any     `bson:"rhs,omitempty" json:"rhs,omitempty"`
	Index *int    `bson:"index,omitempty" json:"index,omitempty"`
	Item  *Change `bson:"item,omitempty" json:"item,omitempty"`
}

// Diff compares two normalized documents. Object keys are visited in sorted
// order, common array indices are compared element-wise and trailing
// elements become array changes.
func Diff(lhs, rhs map[string]any) []Change {
	var changes []Change
	diffMaps(lhs, rhs, nil, &changes)
	return changes
}

func diffValues(lhs, rhs any, path Path, changes *[]Change) {
	if lm, ok := document.AsMap(lhs); ok {
		if rm, ok := document.AsMap(rhs); ok {
			diffMaps(lm, rm, path, changes)
			return
		}
	}
	if ls, ok := document.AsSlice(lhs); ok {
		if rs, ok := document.AsSlice(rhs); ok {
			diffSlices(ls, rs, path, changes)
			return
		}
	}
	if !equalScalars(lhs, rhs) {
		*changes = append(*changes, Change{Kind: Edited, Path: path, LHS: lhs, RHS: rhs})
	}
}

func diffMaps(lhs, rhs map[string]any, path Path, changes *[]Change) {
	for _, k := range sortedKeys(lhs) {
		p := path.append(Key(k))
		rv, ok := rhs[k]
		if !ok {
			*changes = append(*changes, Change{Kind: Deleted, Path: p, LHS: lhs[k]})
			continue
		}
		diffValues(lhs[k], rv, p, changes)
	}
	for _, k := range sortedKeys(rhs) {
		if _, ok := lhs[k]; ok {
			continue
		}
		*changes = append(*changes, Change{Kind: New, Path: path.append(Key(k)), RHS: rhs[k]})
	}
}

func diffSlices(lhs, rhs []any, path Path, changes *[]Change) {
	i := 0
	for ; i < len(lhs); i++ {
		if i >= len(rhs) {
			*changes = append(*changes, arrayChange(path, i, Change{Kind: Deleted, LHS: lhs[i]}))
			continue
		}
		diffValues(lhs[i], rhs[i], path.append(Index(i)), changes)
	}
	for ; i < len(rhs); i++ {
		*changes = append(*changes, arrayChange(path, i, Change{Kind: New, RHS: rhs[i]}))
	}
}

func arrayChange(path Path, i int, item Change) Change {
	index := i
	return Change{Kind: Array, Path: path, Index: &index, Item: &item}
}

func equalScalars(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnlyTouches reports whether every change targets the given top-level field.
func OnlyTouches(changes []Change, field string) bool {
	for _, c := range changes {
		if len(c.Path) == 0 || c.Path[0].IsIndex || c.Path[0].Key != field {
			return false
		}
	}
	return true
}
