package mesh

import "github.com/oxcart-geo/mst3tiles/common"

// vertexIndex is an insertion-ordered, exact-bitwise-keyed dedup map for
// Vertex3 values, per §4.2's "Deduplication" rule. Each unique vertex is
// stored once and referenced by its insertion index.
type vertexIndex struct {
	order []common.Vertex3
	byKey map[[3]uint64]int
}

func newVertexIndex() *vertexIndex {
	return &vertexIndex{byKey: make(map[[3]uint64]int)}
}

// add returns the index of v in the insertion order, inserting it if this is
// the first time it has been seen.
func (vi *vertexIndex) add(v common.Vertex3) int {
	k := v.Bits()
	if i, ok := vi.byKey[k]; ok {
		return i
	}
	i := len(vi.order)
	vi.order = append(vi.order, v)
	vi.byKey[k] = i
	return i
}

// uvIndex is the Vertex2 counterpart of vertexIndex.
type uvIndex struct {
	order []common.Vertex2
	byKey map[[2]uint64]int
}

func newUVIndex() *uvIndex {
	return &uvIndex{byKey: make(map[[2]uint64]int)}
}

func (ui *uvIndex) add(v common.Vertex2) int {
	k := v.Bits()
	if i, ok := ui.byKey[k]; ok {
		return i
	}
	i := len(ui.order)
	ui.order = append(ui.order, v)
	ui.byKey[k] = i
	return i
}
