// Package tiler recursively subdivides a mesh into a tree of spatial tiles,
// per §4.6: a pluggable SplitStrategy decides how each level's cells are
// carved (via repeated calls into engine/mesh.IMesh.Split), and an optional
// Simplifier decimates each level's mesh for LOD.
package tiler

import (
	"context"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// StrategyKind names one of the five split strategies recognized by the
// task config's "strategy" option, per §6.
type StrategyKind int

const (
	StrategyOctree StrategyKind = iota // default, per §4.6
	StrategyGrid
	StrategyKdTree
	StrategyAdaptive
	StrategyRecursive
)

// TaskConfig is the subset of §6's recognized config options that drive the
// tiler. Fields not consulted by this package (tileFormat, storageLocation,
// ...) live in engine/pipeline's task config instead.
type TaskConfig struct {
	Strategy                StrategyKind
	TileSize                float64
	MaxLevel                int
	MinTriangles            int
	EnableMeshDecimation    bool
	LodLevels               int
	PreserveBoundary        bool
	GeometricErrorThreshold float64
	ParallelProcessingCount int
}

func (c TaskConfig) workers() int {
	if c.ParallelProcessingCount < 1 {
		return 1
	}
	return c.ParallelProcessingCount
}

// Tile is one node of the recursive decomposition: a mesh slice addressed
// by (level, x, y, z), per §6's output path convention.
type Tile struct {
	Level, X, Y, Z int
	Mesh           mesh.IMesh
}

// SplitStrategy decides how a mesh is carved into the tiles for one level,
// per §4.6: "strategies share this interface: GenerateSlices(task, level,
// config, modelBounds) -> Tile[] and EstimateSliceCount(level, config) ->
// int." Grid and Recursive are pure functions of (root, level): each level
// is computed directly from the original mesh, independent of other levels.
// Octree, KdTree, and Adaptive instead own their recursion end-to-end —
// since an octree node's subdivision depends on that node's own triangle
// count, not just its depth, they cannot be expressed as a pure
// level-indexed slice of the root. Their GenerateSlices ignores the level
// argument and returns every leaf of the full recursive build (each tagged
// with its own true depth) the first time they are called; RecursesOwnTree
// tells the pipeline not to call them again for subsequent levels.
type SplitStrategy interface {
	GenerateSlices(ctx context.Context, root mesh.IMesh, level int, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error)
	EstimateSliceCount(level int, cfg TaskConfig) int

	// RecursesOwnTree reports whether this strategy builds its entire tree
	// in one GenerateSlices(root, 0, ...) call rather than being driven
	// level-by-level by the pipeline.
	RecursesOwnTree() bool
}

// NewStrategy constructs the named strategy, per §6's "strategy" config
// option.
func NewStrategy(kind StrategyKind) SplitStrategy {
	switch kind {
	case StrategyGrid:
		return &gridStrategy{}
	case StrategyKdTree:
		return &kdTreeStrategy{}
	case StrategyAdaptive:
		return &adaptiveStrategy{}
	case StrategyRecursive:
		return &recursiveStrategy{}
	default:
		return &octreeStrategy{}
	}
}

// clampBoxForDegeneracy widens an axis whose span is below EPS to exactly
// EPS, mostly
// to keep per-axis cell-size divisions from producing NaN/Inf on a flat
// input mesh.
func clampBoxForDegeneracy(b common.Box3) common.Box3 {
	if b.Max.X-b.Min.X < common.EPS {
		b.Max.X = b.Min.X + common.EPS
	}
	if b.Max.Y-b.Min.Y < common.EPS {
		b.Max.Y = b.Min.Y + common.EPS
	}
	if b.Max.Z-b.Min.Z < common.EPS {
		b.Max.Z = b.Min.Z + common.EPS
	}
	return b
}
