package diff

import (
	"sort"

	"github.com/bentomdb/graphchangelog/engine/model"
)

// sortedKeys returns m's keys ordered by less, so the statement order the
// splitter walks a diff bucket in never depends on Go's randomized map
// iteration order.
func sortedKeys[K comparable, V any](m map[K]V, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

func termKeyLess(a, b model.TermKey) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.Origin < b.Origin
}

func propKeyLess(a, b model.PropKey) bool {
	if a.Handle != b.Handle {
		return a.Handle < b.Handle
	}
	return a.ParentHandle < b.ParentHandle
}

func edgeKeyLess(a, b model.EdgeKey) bool {
	if a.Handle != b.Handle {
		return a.Handle < b.Handle
	}
	if a.Src != b.Src {
		return a.Src < b.Src
	}
	return a.Dst < b.Dst
}

func stringLess(a, b string) bool { return a < b }
