// Package texcache holds the process-wide decoded-texture cache shared by
// engine/atlas and engine/glb, per §5: every tile encoding the same shared
// texture decodes it exactly once. It lives below both packages (stdlib-only
// dependencies) so neither has to import the other to share a cache
// instance — engine/pipeline already imports engine/glb, so the cache
// cannot live there without atlas importing pipeline in turn.
package texcache

import (
	"image"
	"sync"
)

// TextureCache is an insert-if-absent cache of decoded textures keyed by
// source path. Grounded on engine/loader/loader.go's modelCache map guarded
// by sync.RWMutex, without a TTL — decoded image data doesn't go stale the
// way a task config can.
type TextureCache struct {
	mu      sync.RWMutex
	entries map[string]image.Image
}

// New creates an empty texture cache.
func New() *TextureCache {
	return &TextureCache{entries: make(map[string]image.Image)}
}

// Shared is the single process-wide cache instance that engine/atlas and
// engine/glb both decode through.
var Shared = New()

// GetOrInsert returns the cached image for path if present, otherwise calls
// decode, caches its result (if err is nil), and returns it. Concurrent
// callers racing on the same unseen path may both call decode; the second
// result to arrive wins the cache slot, matching loader.go's simple "last
// write wins" insert-if-absent behavior rather than adding a singleflight
// layer for a cache miss that is expected to be rare.
func (c *TextureCache) GetOrInsert(path string, decode func() (image.Image, error)) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := decode()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = img
	c.mu.Unlock()
	return img, nil
}

// Len reports the number of distinct paths currently cached, used by tests
// to observe cache behavior without reaching into unexported state.
func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
