package pipeline

import (
	"sync"
	"time"

	"github.com/oxcart-geo/mst3tiles/engine/texcache"
)

// taskConfigTTL is the 5-minute expiry §5 gives a cached task config: a
// config stored (by Put) more than this long ago is evicted on its next
// lookup rather than handed out stale. A Get does not extend it.
const taskConfigTTL = 5 * time.Minute

// TaskConfigCache maps a task ID to its tiler.TaskConfig, evicting entries
// whose last Put is older than taskConfigTTL. Grounded on engine/loader/loader.go's
// modelCache map[string]model.Model guarded by sync.RWMutex, generalized
// from a permanent cache to one with a TTL.
type TaskConfigCache struct {
	mu      sync.RWMutex
	entries map[string]taskConfigEntry
}

type taskConfigEntry struct {
	config    any
	expiresAt time.Time
}

// NewTaskConfigCache creates an empty cache.
func NewTaskConfigCache() *TaskConfigCache {
	return &TaskConfigCache{entries: make(map[string]taskConfigEntry)}
}

// Put stores config under taskID, resetting its TTL.
func (c *TaskConfigCache) Put(taskID string, config any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[taskID] = taskConfigEntry{config: config, expiresAt: time.Now().Add(taskConfigTTL)}
}

// Get returns the cached config for taskID and true, or (nil, false) if
// absent or expired. An expired entry is evicted as a side effect.
func (c *TaskConfigCache) Get(taskID string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[taskID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, taskID)
		c.mu.Unlock()
		return nil, false
	}
	return entry.config, true
}

// TextureCache is engine/pipeline's view of the process-wide decoded-texture
// cache, per §5 — every tile encoding the same shared texture decodes it
// exactly once. The real implementation lives in engine/texcache so that
// engine/atlas and engine/glb (which engine/pipeline imports) can decode
// through the same cache instance without an import cycle; this type is a
// thin alias so existing callers of engine/pipeline's cache API are
// unaffected.
type TextureCache = texcache.TextureCache

// NewTextureCache creates an empty texture cache, independent of the
// process-wide texcache.Shared instance atlas/glb decode through.
func NewTextureCache() *TextureCache {
	return texcache.New()
}
