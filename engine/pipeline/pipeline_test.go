package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/oxcart-geo/mst3tiles/common"
	"github.com/oxcart-geo/mst3tiles/engine/mesh"
	"github.com/oxcart-geo/mst3tiles/engine/tiler"
)

// memBackend is an in-memory storage.Backend stand-in, safe for concurrent
// writes from the worker pool.
type memBackend struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{files: make(map[string][]byte)} }

func (b *memBackend) WriteBytes(logicalPath string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[logicalPath] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) EnsureDirectory(string) error { return nil }

func cubeTile(level, x, y, z int) tiler.Tile {
	v := func(px, py, pz float64) common.Vertex3 { return common.Vertex3{X: px, Y: py, Z: pz} }
	verts := []common.Vertex3{v(0, 0, 0), v(1, 0, 0), v(1, 1, 0), v(0, 1, 0)}
	faces := []mesh.Face{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}}
	return tiler.Tile{Level: level, X: x, Y: y, Z: z, Mesh: mesh.NewMesh("tile", verts, faces)}
}

func TestRunEncodesWritesAndOrdersResults(t *testing.T) {
	tiles := []tiler.Tile{
		cubeTile(1, 1, 0, 0),
		cubeTile(0, 0, 0, 0),
		cubeTile(1, 0, 0, 0),
	}
	backend := newMemBackend()

	results, err := Run(context.Background(), tiles, backend, RunOptions{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Level > results[i].Level {
			t.Fatalf("results not sorted by level: %+v then %+v", results[i-1], results[i])
		}
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.files) != 3 {
		t.Fatalf("expected 3 files written, got %d", len(backend.files))
	}
	for _, r := range results {
		if _, ok := backend.files[r.URI]; !ok {
			t.Fatalf("result URI %q not found among written files", r.URI)
		}
	}
}

func TestTilePathConvention(t *testing.T) {
	got := tilePath(cubeTile(2, 3, 4, 5))
	want := "2/3_4_5.b3dm"
	if got != want {
		t.Fatalf("tilePath = %q, want %q", got, want)
	}
}

func TestTaskConfigCachePutGet(t *testing.T) {
	c := NewTaskConfigCache()
	c.Put("task-1", "config-value")

	got, ok := c.Get("task-1")
	if !ok {
		t.Fatal("expected cached value to be present")
	}
	if got != "config-value" {
		t.Fatalf("got %v, want config-value", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected a miss for an unknown key")
	}
}

func TestTextureCacheDecodesOnce(t *testing.T) {
	c := NewTextureCache()
	calls := 0
	decode := func() (image.Image, error) {
		calls++
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}

	first, err := c.GetOrInsert("tex.png", decode)
	if err != nil {
		t.Fatalf("GetOrInsert: %v", err)
	}
	second, err := c.GetOrInsert("tex.png", decode)
	if err != nil {
		t.Fatalf("GetOrInsert: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected decode to run once, ran %d times", calls)
	}
	if first != second {
		t.Fatal("expected the same cached image.Image both times")
	}
}

func TestProgressTicksQuietlyBeforeInterval(t *testing.T) {
	p := NewProgress()
	if p.Tick() {
		t.Fatal("expected no log before the update interval elapses")
	}
}

func TestTextureCachePropagatesDecodeError(t *testing.T) {
	c := NewTextureCache()
	wantErr := errors.New("boom")
	_, err := c.GetOrInsert("bad.png", func() (image.Image, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Fatal("a failed decode must not be cached")
	}

	calls := 0
	_, err = c.GetOrInsert("bad.png", func() (image.Image, error) {
		calls++
		return nil, wantErr
	})
	if err != wantErr || calls != 1 {
		t.Fatal("a prior failed decode must not be remembered as a hit; the next call must retry")
	}
}
