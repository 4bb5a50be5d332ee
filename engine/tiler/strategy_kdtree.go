package tiler

import (
	"context"
	"fmt"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// kdTreeDepthSafetyMargin mirrors octreeDepthSafetyMargin: a defensive cap
// on recursion depth past cfg.MaxLevel, not part of §4.6.
const kdTreeDepthSafetyMargin = 20

// kdTreeStrategy implements §4.6's KdTree strategy: like Recursive, one
// binary split per level, but the split axis is chosen per node as
// whichever of its own AABB's three extents is longest, rather than
// cycling X, Y, Z. Because the axis choice depends on each node's own
// bounds, this is self-recursing like Octree rather than a pure function
// of (root, level).
type kdTreeStrategy struct{}

func (kdTreeStrategy) RecursesOwnTree() bool { return true }

func (kdTreeStrategy) EstimateSliceCount(level int, cfg TaskConfig) int {
	return 1 << uint(cfg.MaxLevel)
}

func (kdTreeStrategy) GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	if level != 0 {
		return nil, nil
	}
	var tiles []Tile
	if err := buildKdTreeNode(ctx, root, modelBounds, 0, 0, cfg, &tiles); err != nil {
		return nil, err
	}
	return tiles, nil
}

// buildKdTreeNode addresses each leaf along a single flattened coordinate
// (X in the Tile struct) since a kd-tree's binary splits don't naturally
// decompose into independent per-axis indices the way a grid's do.
func buildKdTreeNode(ctx context.Context, m mesh.IMesh, bounds common.Box3, depth, coord int, cfg TaskConfig, out *[]Tile) error {
	if m.FacesCount() == 0 {
		return nil
	}
	bounds = clampBoxForDegeneracy(bounds)

	shouldSplit := m.FacesCount() > cfg.MinTriangles || depth < cfg.MaxLevel
	if !shouldSplit || depth >= cfg.MaxLevel+kdTreeDepthSafetyMargin {
		*out = append(*out, Tile{Level: depth, X: coord, Y: 0, Z: 0, Mesh: m.RemoveUnused()})
		return nil
	}

	axis, mid, span := longestAxis(bounds)
	if span < common.EPS {
		*out = append(*out, Tile{Level: depth, X: coord, Y: 0, Z: 0, Mesh: m.RemoveUnused()})
		return nil
	}

	lo, hi, _, err := m.Split(ctx, axis, mid)
	if err != nil {
		return fmt.Errorf("tiler: kdtree split at depth %d axis %s: %w", depth, axis, err)
	}

	loBounds, hiBounds := bounds, bounds
	switch axis {
	case common.AxisX:
		loBounds.Max.X, hiBounds.Min.X = mid, mid
	case common.AxisY:
		loBounds.Max.Y, hiBounds.Min.Y = mid, mid
	default:
		loBounds.Max.Z, hiBounds.Min.Z = mid, mid
	}

	if lo.FacesCount() > 0 {
		if err := buildKdTreeNode(ctx, lo, loBounds, depth+1, coord*2, cfg, out); err != nil {
			return err
		}
	}
	if hi.FacesCount() > 0 {
		if err := buildKdTreeNode(ctx, hi, hiBounds, depth+1, coord*2+1, cfg, out); err != nil {
			return err
		}
	}
	return nil
}

// longestAxis returns whichever of bounds' three extents is longest, its
// midpoint, and its span.
func longestAxis(bounds common.Box3) (common.Axis, float64, float64) {
	dx := bounds.Max.X - bounds.Min.X
	dy := bounds.Max.Y - bounds.Min.Y
	dz := bounds.Max.Z - bounds.Min.Z

	switch {
	case dx >= dy && dx >= dz:
		return common.AxisX, (bounds.Min.X + bounds.Max.X) / 2, dx
	case dy >= dx && dy >= dz:
		return common.AxisY, (bounds.Min.Y + bounds.Max.Y) / 2, dy
	default:
		return common.AxisZ, (bounds.Min.Z + bounds.Max.Z) / 2, dz
	}
}
