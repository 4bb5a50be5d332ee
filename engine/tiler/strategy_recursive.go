package tiler

import (
	"context"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// recursiveStrategy implements §4.6's Recursive strategy: "the
// single-axis-at-a-time binary variant of Grid — one axis split per level
// rather than three." Level L's partition is equivalent to L sequential
// binary splits, each along one axis, cycling X, Y, Z, X, Y, Z, ...; this is
// expressed directly as a non-uniform grid whose per-axis cell count is 2
// raised to however many times that axis was chosen across levels 0..L-1,
// keeping the strategy a pure function of (root, level) like Grid.
type recursiveStrategy struct{}

func (recursiveStrategy) RecursesOwnTree() bool { return false }

func (recursiveStrategy) EstimateSliceCount(level int, cfg TaskConfig) int {
	return 1 << uint(level)
}

// axisSplitCounts returns, for a chain of `level` single-axis binary splits
// cycling X, Y, Z, how many times each axis was split, as 2^count.
func axisSplitCounts(level int) (nx, ny, nz int) {
	nx, ny, nz = 1, 1, 1
	for i := 0; i < level; i++ {
		switch i % 3 {
		case 0:
			nx *= 2
		case 1:
			ny *= 2
		case 2:
			nz *= 2
		}
	}
	return nx, ny, nz
}

func (recursiveStrategy) GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	nx, ny, nz := axisSplitCounts(level)
	return nonUniformGrid(ctx, root, level, nx, ny, nz, modelBounds)
}
