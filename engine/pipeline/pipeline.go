// Package pipeline wires engine/tiler's tile tree, engine/glb's encoder, and
// engine/tile's container codecs into an end-to-end producer/worker/collector
// run, per §5: a Producer enumerates (level,x,y,z) work items from
// engine/tiler, a WorkerPool encodes and writes each one in parallel on
// engine/scene/scene.go's worker-pool pattern, and a Collector gathers the
// results in deterministic order for engine/tileset to assemble.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/glb"
	"github.com/oxcart-geo/mst3tiles/engine/storage"
	"github.com/oxcart-geo/mst3tiles/engine/tile"
	"github.com/oxcart-geo/mst3tiles/engine/tiler"
)

// workerPoolQueueSize and workerPoolTimeout mirror
// engine/scene/scene.go's compute pool configuration.
const (
	workerPoolQueueSize = 256
	workerPoolTimeout   = 1 * time.Second
)

// TileResult is one tile's encoded, written output, ready for
// engine/tileset to fold into a boundingVolume/content node.
type TileResult struct {
	Level, X, Y, Z int
	URI            string
	GeometricError float64
	ByteLength     int
}

// RunOptions configures a pipeline Run.
type RunOptions struct {
	// EncodeOptions is passed through to engine/glb.Encode for every tile.
	EncodeOptions glb.EncodeOptions

	// Workers bounds the worker pool's concurrency; defaults to 1 if < 1.
	Workers int
}

func (o RunOptions) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Producer enumerates tiler.Tile work items. It exists as its own type
// (rather than the caller just ranging over a slice) so Run reads as a
// three-stage pipeline matching §5's naming, mirroring how the teacher
// names each phase of its per-frame prep even when a phase is a thin
// wrapper (engine/scene/scene.go's "Phase 1: parallel CPU prep" comment).
type Producer struct {
	tiles []tiler.Tile
}

// NewProducer wraps the tiles built by tiler.BuildTiles.
func NewProducer(tiles []tiler.Tile) *Producer {
	return &Producer{tiles: tiles}
}

func (p *Producer) Items() []tiler.Tile { return p.tiles }

// WorkerPool encodes and writes each tile on a bounded
// automation/tools/worker.DynamicWorkerPool, the same pool shape
// engine/scene/scene.go uses for its per-frame parallel CPU prep phase.
type WorkerPool struct {
	backend  storage.Backend
	opts     RunOptions
	progress *Progress

	// progressMu guards Progress.Tick, which is not itself safe for
	// concurrent use by the pool's workers.
	progressMu sync.Mutex
}

// NewWorkerPool creates a pool that writes encoded tiles through backend,
// logging throughput via a Progress tracker as tiles complete.
func NewWorkerPool(backend storage.Backend, opts RunOptions) *WorkerPool {
	return &WorkerPool{backend: backend, opts: opts, progress: NewProgress()}
}

// Run encodes every tile to GLB, wraps it in a B3DM container, writes it
// through the backend at its §6 path convention, and returns one TileResult
// per tile (order not yet sorted — that's Collector's job). Per §7, a tile
// that fails to encode or write is logged and omitted from the result
// rather than failing the whole run; the tileset assembled from the
// returned subset simply omits that tile's child reference. A cancelled
// ctx is the one failure that does abort the run, surfaced as a
// *common.PipelineError tagged Cancelled.
func (p *WorkerPool) Run(ctx context.Context, items []tiler.Tile) ([]TileResult, error) {
	results := make([]*TileResult, len(items))
	errs := make([]error, len(items))

	pool := worker.NewDynamicWorkerPool(p.opts.workers(), workerPoolQueueSize, workerPoolTimeout)

	var wg sync.WaitGroup
	for i, t := range items {
		wg.Add(1)
		idx, tile := i, t
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if err := common.CheckCancelled(ctx, idx); err != nil {
					errs[idx] = err
					return nil, nil
				}
				result, err := p.encodeAndWrite(tile)
				if err != nil {
					errs[idx] = err
					return nil, nil
				}
				results[idx] = &result
				p.progressMu.Lock()
				p.progress.Tick()
				p.progressMu.Unlock()
				return nil, nil
			},
		})
	}
	wg.Wait()

	out := make([]TileResult, 0, len(results))
	for i, r := range results {
		if err := errs[i]; err != nil {
			var pe *common.PipelineError
			if errors.As(err, &pe) && pe.Kind == common.ErrorKindCancelled {
				return nil, pe
			}
			t := items[i]
			log.Printf("pipeline: tile level=%d x=%d y=%d z=%d failed, omitting from tileset: %v", t.Level, t.X, t.Y, t.Z, err)
			continue
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (p *WorkerPool) encodeAndWrite(t tiler.Tile) (TileResult, error) {
	materialNames := materialNamesOf(t)

	glbBytes, err := glb.Encode(t.Mesh, p.opts.EncodeOptions)
	if err != nil {
		return TileResult{}, fmt.Errorf("pipeline: encode glb for level=%d x=%d y=%d z=%d: %w", t.Level, t.X, t.Y, t.Z, err)
	}
	b3dm, err := tile.EncodeB3DM(glbBytes, materialNames)
	if err != nil {
		return TileResult{}, fmt.Errorf("pipeline: encode b3dm for level=%d x=%d y=%d z=%d: %w", t.Level, t.X, t.Y, t.Z, err)
	}

	uri := tilePath(t)
	if err := p.backend.WriteBytes(uri, b3dm); err != nil {
		return TileResult{}, common.NewPipelineError(common.ErrorKindIoFailure,
			fmt.Errorf("pipeline: write %q: %w", uri, err))
	}

	return TileResult{
		Level:      t.Level,
		X:          t.X,
		Y:          t.Y,
		Z:          t.Z,
		URI:        uri,
		ByteLength: len(b3dm),
	}, nil
}

func materialNamesOf(t tiler.Tile) []string {
	if !t.Mesh.HasTexture() {
		return nil
	}
	stats := t.Mesh.Stats()
	names := make([]string, stats.MaterialCount)
	for i := range names {
		names[i] = fmt.Sprintf("material_%d", i)
	}
	return names
}

func tilePath(t tiler.Tile) string {
	return fmt.Sprintf("%d/%d_%d_%d.b3dm", t.Level, t.X, t.Y, t.Z)
}

// Collector gathers TileResult values into deterministic (level,z,y,x)
// order, per §5/§6, ready to hand to engine/tileset's node builder.
type Collector struct {
	results []TileResult
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Add(results ...TileResult) { c.results = append(c.results, results...) }

// Collect returns every gathered result sorted by (level, z, y, x).
func (c *Collector) Collect() []TileResult {
	out := make([]TileResult, len(c.results))
	copy(out, c.results)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
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
	return out
}

// Run drives the full producer/worker/collector sequence for a pre-built
// tile set and returns the sorted results.
func Run(ctx context.Context, tiles []tiler.Tile, backend storage.Backend, opts RunOptions) ([]TileResult, error) {
	producer := NewProducer(tiles)
	pool := NewWorkerPool(backend, opts)

	results, err := pool.Run(ctx, producer.Items())
	if err != nil {
		return nil, err
	}

	collector := NewCollector()
	collector.Add(results...)
	return collector.Collect(), nil
}
