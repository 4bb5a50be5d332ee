package tiler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/sync/errgroup"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
)

// computePoolQueueSize mirrors engine/scene/scene.go's compute pool sizing:
// generous headroom over any realistic per-call task count.
const computePoolQueueSize = 256

// computePoolTimeout mirrors engine/scene/scene.go's compute pool timeout.
const computePoolTimeout = 1 * time.Second

// BuildTiles runs cfg.Strategy over root up to cfg.MaxLevel, per §4.6, and
// returns its tiles in deterministic (level, z, y, x) order: every level
// 0..cfg.MaxLevel for Grid and Recursive, the leaves of the recursive build
// for the other strategies. Pure
// per-level strategies (Grid, Recursive) are fanned out across levels on a
// bounded worker pool, the same pattern engine/scene/scene.go uses for its
// per-frame parallel CPU prep phase; self-recursing strategies (Octree,
// KdTree, Adaptive) build their whole tree in a single call. If
// cfg.EnableMeshDecimation is set, every resulting tile is then simplified
// in parallel with a target ratio that grows coarser at deeper levels. Per
// §7, a level or tile that fails is logged and dropped rather than failing
// the whole build; BuildTiles only returns an error for a cancelled ctx.
func BuildTiles(ctx context.Context, root mesh.IMesh, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	strategy := NewStrategy(cfg.Strategy)

	tiles, err := collectTiles(ctx, root, strategy, cfg, modelBounds)
	if err != nil {
		return nil, err
	}

	if cfg.EnableMeshDecimation {
		tiles, err = simplifyTilesParallel(ctx, tiles, cfg)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return tiles, nil
}

func collectTiles(ctx context.Context, root mesh.IMesh, strategy SplitStrategy, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	if strategy.RecursesOwnTree() {
		return strategy.GenerateSlices(ctx, root, 0, cfg, modelBounds)
	}
	return collectLevelsParallel(ctx, root, strategy, cfg, modelBounds)
}

// collectLevelsParallel submits one worker.Task per level to a bounded
// worker pool, each computing GenerateSlices independently (Grid and
// Recursive are pure functions of (root, level)), then concatenates the
// per-level results in level order. Per §7, a level whose GenerateSlices
// fails is logged and its tiles omitted rather than failing the whole
// build — unless the failure is itself a cancellation, which propagates.
func collectLevelsParallel(ctx context.Context, root mesh.IMesh, strategy SplitStrategy, cfg TaskConfig, modelBounds common.Box3) ([]Tile, error) {
	levelCount := cfg.MaxLevel + 1
	results := make([][]Tile, levelCount)
	errs := make([]error, levelCount)

	pool := worker.NewDynamicWorkerPool(cfg.workers(), computePoolQueueSize, computePoolTimeout)

	var wg sync.WaitGroup
	for level := 0; level < levelCount; level++ {
		wg.Add(1)
		lvl := level
		pool.SubmitTask(worker.Task{
			ID: lvl,
			Do: func() (any, error) {
				defer wg.Done()
				tiles, err := strategy.GenerateSlices(ctx, root, lvl, cfg, modelBounds)
				if err != nil {
					errs[lvl] = fmt.Errorf("tiler: level %d: %w", lvl, err)
					return nil, nil
				}
				results[lvl] = tiles
				return nil, nil
			},
		})
	}
	wg.Wait()

	var all []Tile
	for lvl, err := range errs {
		if err != nil {
			var pe *common.PipelineError
			if errors.As(err, &pe) && pe.Kind == common.ErrorKindCancelled {
				return nil, pe
			}
			log.Printf("tiler: level %d failed, dropping its tiles: %v", lvl, err)
			continue
		}
		all = append(all, results[lvl]...)
	}
	return all, nil
}

// simplifyTilesParallel decimates every tile concurrently, bounded by
// cfg.workers(), via errgroup — each tile's simplification is independent
// and writes only to its own slot, so no barrier beyond the group's own
// Wait is needed. Per §7, a tile that fails to simplify is logged and
// dropped from the result rather than failing the whole build, unless the
// failure is a cancellation.
func simplifyTilesParallel(ctx context.Context, tiles []Tile, cfg TaskConfig) ([]Tile, error) {
	simplifier := NewSimplifier()
	out := make([]*Tile, len(tiles))

	var g errgroup.Group
	g.SetLimit(cfg.workers())
	for i, t := range tiles {
		i, t := i, t
		g.Go(func() error {
			if err := common.CheckCancelled(ctx, i); err != nil {
				return err
			}
			ratio := decimationRatio(t.Level, cfg.MaxLevel)
			simplified, err := simplifier.Simplify(t.Mesh, ratio, cfg.PreserveBoundary)
			if err != nil {
				log.Printf("tiler: simplify tile level=%d x=%d y=%d z=%d failed, dropping: %v", t.Level, t.X, t.Y, t.Z, err)
				return nil
			}
			out[i] = &Tile{Level: t.Level, X: t.X, Y: t.Y, Z: t.Z, Mesh: simplified}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]Tile, 0, len(out))
	for _, t := range out {
		if t != nil {
			kept = append(kept, *t)
		}
	}
	return kept, nil
}

// decimationRatio is the fraction of faces to remove at a given level, per
// §4.6's decimation step: level 0 is the original, full-detail mesh (ratio
// 0); quality falls off toward deeper levels as sqrt(level/maxLevel), so
// ratio rises toward 1 (most aggressive simplification) at maxLevel.
func decimationRatio(level, maxLevel int) float64 {
	if maxLevel <= 0 {
		return 0
	}
	quality := math.Sqrt(float64(level) / float64(maxLevel))
	if quality > 1 {
		quality = 1
	}
	return quality
}
