package pipeline

import (
	"log"
	"runtime"
	"time"
)

// Progress tracks tile-encoding throughput and memory statistics for a
// running conversion, logging at a fixed one-second interval. Adapted from
// engine/profiler.Profiler's per-frame FPS/memory tracking to per-tile
// throughput tracking for a batch conversion job instead of a render loop.
type Progress struct {
	tileCount      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProgress creates a Progress tracker with a 1-second log interval.
func NewProgress() *Progress {
	return &Progress{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// Tick should be called once per completed tile. It logs throughput and
// memory stats once updateInterval has elapsed since the last log, and
// reports whether it did.
func (p *Progress) Tick() bool {
	p.tileCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	tilesPerSec := float64(p.tileCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[pipeline] tiles/s: %.2f | heap: %.2f MB | alloc rate: %.2f MB/s | gc: %d (last: %d µs, max: %d µs) | sys: %.2f MB",
		tilesPerSec, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.tileCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
