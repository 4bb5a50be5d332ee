package tiler

import (
	"context"
	"fmt"
	"math"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// adaptiveDepthSafetyMargin mirrors the other self-recursing strategies'
// defensive recursion cap, not part of §4.6.
const adaptiveDepthSafetyMargin = 20

// adaptiveVarianceThreshold is the triangle-count coefficient-of-variation
// above which a node's octants are considered unevenly populated enough to
// prefer a single longest-axis kd-split over an 8-way octree split.
const adaptiveVarianceThreshold = 0.75

// adaptiveStrategy implements §4.6's Adaptive strategy: at each node,
// estimate how evenly triangles are distributed across its 8 octants; a
// roughly uniform node is split the Octree way (all three midplanes at
// once, cheaper in tree depth), while a skewed node is split the KdTree
// way (one longest-axis split, which avoids carving several
// near-empty children out of a lopsided node).
type adaptiveStrategy struct{}

func (adaptiveStrategy) RecursesOwnTree() bool { return true }

func (adaptiveStrategy) EstimateSliceCount(level int, cfg TaskConfig) int {
	return 1 << uint(3*cfg.MaxLevel)
}

func (adaptiveStrategy) GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	if level != 0 {
		return nil, nil
	}
	var tiles []Tile
	if err := buildAdaptiveNode(ctx, root, modelBounds, 0, 0, 0, 0, cfg, &tiles); err != nil {
		return nil, err
	}
	return tiles, nil
}

func buildAdaptiveNode(ctx context.Context, m mesh.IMesh, bounds common.Box3, depth, x, y, z int, cfg TaskConfig, out *[]Tile) error {
	if m.FacesCount() == 0 {
		return nil
	}
	bounds = clampBoxForDegeneracy(bounds)

	shouldSplit := m.FacesCount() > cfg.MinTriangles || depth < cfg.MaxLevel
	if !shouldSplit || depth >= cfg.MaxLevel+adaptiveDepthSafetyMargin {
		*out = append(*out, Tile{Level: depth, X: x, Y: y, Z: z, Mesh: m.RemoveUnused()})
		return nil
	}

	if octantDensityCV(ctx, m, bounds) > adaptiveVarianceThreshold {
		return adaptiveKdSplit(ctx, m, bounds, depth, x, y, z, cfg, out)
	}
	return adaptiveOctreeSplit(ctx, m, bounds, depth, x, y, z, cfg, out)
}

// octantDensityCV estimates the coefficient of variation of triangle
// counts across a trial 8-way midplane split of m, without recursing: a
// cheap one-shot probe used only to pick which split shape to commit to.
func octantDensityCV(ctx context.Context, m mesh.IMesh, bounds common.Box3) float64 {
	midX := (bounds.Min.X + bounds.Max.X) / 2
	midY := (bounds.Min.Y + bounds.Max.Y) / 2
	midZ := (bounds.Min.Z + bounds.Max.Z) / 2

	xLo, xHi, _, err := m.Split(ctx, common.AxisX, midX)
	if err != nil {
		return 0
	}
	var counts []float64
	for _, xPart := range []mesh.IMesh{xLo, xHi} {
		yLo, yHi, _, err := xPart.Split(ctx, common.AxisY, midY)
		if err != nil {
			continue
		}
		for _, yPart := range []mesh.IMesh{yLo, yHi} {
			zLo, zHi, _, err := yPart.Split(ctx, common.AxisZ, midZ)
			if err != nil {
				continue
			}
			for _, zPart := range []mesh.IMesh{zLo, zHi} {
				counts = append(counts, float64(zPart.FacesCount()))
			}
		}
	}
	return coefficientOfVariation(counts)
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}

func adaptiveOctreeSplit(ctx context.Context, m mesh.IMesh, bounds common.Box3, depth, x, y, z int, cfg TaskConfig, out *[]Tile) error {
	midX := (bounds.Min.X + bounds.Max.X) / 2
	midY := (bounds.Min.Y + bounds.Max.Y) / 2
	midZ := (bounds.Min.Z + bounds.Max.Z) / 2

	xLo, xHi, _, err := m.Split(ctx, common.AxisX, midX)
	if err != nil {
		return fmt.Errorf("tiler: adaptive octree X split at depth %d: %w", depth, err)
	}
	for xi, xPart := range []mesh.IMesh{xLo, xHi} {
		yLo, yHi, _, err := xPart.Split(ctx, common.AxisY, midY)
		if err != nil {
			return fmt.Errorf("tiler: adaptive octree Y split at depth %d: %w", depth, err)
		}
		for yi, yPart := range []mesh.IMesh{yLo, yHi} {
			zLo, zHi, _, err := yPart.Split(ctx, common.AxisZ, midZ)
			if err != nil {
				return fmt.Errorf("tiler: adaptive octree Z split at depth %d: %w", depth, err)
			}
			for zi, zPart := range []mesh.IMesh{zLo, zHi} {
				if zPart.FacesCount() == 0 {
					continue
				}
				childBounds := octreeChildBounds(bounds, midX, midY, midZ, xi, yi, zi)
				if err := buildAdaptiveNode(ctx, zPart, childBounds, depth+1, x*2+xi, y*2+yi, z*2+zi, cfg, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func adaptiveKdSplit(ctx context.Context, m mesh.IMesh, bounds common.Box3, depth, x, y, z int, cfg TaskConfig, out *[]Tile) error {
	axis, mid, span := longestAxis(bounds)
	if span < common.EPS {
		*out = append(*out, Tile{Level: depth, X: x, Y: y, Z: z, Mesh: m.RemoveUnused()})
		return nil
	}

	lo, hi, _, err := m.Split(ctx, axis, mid)
	if err != nil {
		return fmt.Errorf("tiler: adaptive kd split at depth %d axis %s: %w", depth, axis, err)
	}

	loBounds, hiBounds := bounds, bounds
	loX, loY, loZ := x, y, z
	hiX, hiY, hiZ := x, y, z
	switch axis {
	case common.AxisX:
		loBounds.Max.X, hiBounds.Min.X = mid, mid
		loX, hiX = x*2, x*2+1
	case common.AxisY:
		loBounds.Max.Y, hiBounds.Min.Y = mid, mid
		loY, hiY = y*2, y*2+1
	default:
		loBounds.Max.Z, hiBounds.Min.Z = mid, mid
		loZ, hiZ = z*2, z*2+1
	}

	if lo.FacesCount() > 0 {
		if err := buildAdaptiveNode(ctx, lo, loBounds, depth+1, loX, loY, loZ, cfg, out); err != nil {
			return err
		}
	}
	if hi.FacesCount() > 0 {
		if err := buildAdaptiveNode(ctx, hi, hiBounds, depth+1, hiX, hiY, hiZ, cfg, out); err != nil {
			return err
		}
	}
	return nil
}
