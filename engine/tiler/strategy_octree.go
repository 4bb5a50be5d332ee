package tiler

import (
	"context"
	"fmt"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// octreeDepthSafetyMargin bounds recursion past cfg.MaxLevel for the rare
// case where a node's triangle count keeps exceeding MinTriangles forever
// (degenerate input); not part of §4.6, purely a recursion guard.
const octreeDepthSafetyMargin = 20

// octreeStrategy implements §4.6's default Octree strategy: at each node,
// if its triangle count exceeds cfg.MinTriangles or its depth is below
// cfg.MaxLevel, split by three midplanes (X, then Y, then Z) into 8
// children and recurse on every non-empty one.
type octreeStrategy struct{}

func (octreeStrategy) RecursesOwnTree() bool { return true }

func (octreeStrategy) EstimateSliceCount(level int, cfg TaskConfig) int {
	return 1 << uint(3*cfg.MaxLevel)
}

func (octreeStrategy) GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	if level != 0 {
		return nil, nil
	}
	var tiles []Tile
	if err := buildOctreeNode(ctx, root, modelBounds, 0, 0, 0, 0, cfg, &tiles); err != nil {
		return nil, err
	}
	return tiles, nil
}

func buildOctreeNode(ctx context.Context, m mesh.IMesh, bounds common.Box3, depth, x, y, z int, cfg TaskConfig, out *[]Tile) error {
	if m.FacesCount() == 0 {
		return nil
	}
	bounds = clampBoxForDegeneracy(bounds)

	shouldSplit := m.FacesCount() > cfg.MinTriangles || depth < cfg.MaxLevel
	tooThin := bounds.Max.X-bounds.Min.X < common.EPS ||
		bounds.Max.Y-bounds.Min.Y < common.EPS ||
		bounds.Max.Z-bounds.Min.Z < common.EPS
	if !shouldSplit || tooThin || depth >= cfg.MaxLevel+octreeDepthSafetyMargin {
		*out = append(*out, Tile{Level: depth, X: x, Y: y, Z: z, Mesh: m.RemoveUnused()})
		return nil
	}

	midX := (bounds.Min.X + bounds.Max.X) / 2
	midY := (bounds.Min.Y + bounds.Max.Y) / 2
	midZ := (bounds.Min.Z + bounds.Max.Z) / 2

	xLo, xHi, _, err := m.Split(ctx, common.AxisX, midX)
	if err != nil {
		return fmt.Errorf("tiler: octree X split at depth %d: %w", depth, err)
	}

	for xi, xPart := range []mesh.IMesh{xLo, xHi} {
		yLo, yHi, _, err := xPart.Split(ctx, common.AxisY, midY)
		if err != nil {
			return fmt.Errorf("tiler: octree Y split at depth %d: %w", depth, err)
		}
		for yi, yPart := range []mesh.IMesh{yLo, yHi} {
			zLo, zHi, _, err := yPart.Split(ctx, common.AxisZ, midZ)
			if err != nil {
				return fmt.Errorf("tiler: octree Z split at depth %d: %w", depth, err)
			}
			for zi, zPart := range []mesh.IMesh{zLo, zHi} {
				if zPart.FacesCount() == 0 {
					continue
				}
				childBounds := octreeChildBounds(bounds, midX, midY, midZ, xi, yi, zi)
				if err := buildOctreeNode(ctx, zPart, childBounds, depth+1, x*2+xi, y*2+yi, z*2+zi, cfg, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// octreeChildBounds returns the sub-box for the (xi,yi,zi) octant of
// parent, each index selecting the lower (0) or upper (1) half along its
// axis at the given midpoints.
func octreeChildBounds(parent common.Box3, midX, midY, midZ float64, xi, yi, zi int) common.Box3 {
	b := parent
	if xi == 0 {
		b.Max.X = midX
	} else {
		b.Min.X = midX
	}
	if yi == 0 {
		b.Max.Y = midY
	} else {
		b.Min.Y = midY
	}
	if zi == 0 {
		b.Max.Z = midZ
	} else {
		b.Min.Z = midZ
	}
	return b
}
