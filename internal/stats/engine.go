package stats

import (
	"sort"
	"sync"
	"time"
)

// Enough for the Long window at a 100ms probe interval with headroom.
const defaultEngineCapacity = 4096

// Engine owns the retained sample history: one time-ordered buffer shared
// by all windows, trimmed to the longest horizon on ingest. Safe for one
// writer concurrent with any number of snapshot readers.
type Engine struct {
	mu      sync.RWMutex
	retain  time.Duration
	samples []Sample
}

func NewEngine() *Engine {
	return &Engine{
		retain:  Long.Duration,
		samples: make([]Sample, 0, defaultEngineCapacity),
	}
}

// Record appends a sample and evicts everything older than the longest
// window relative to it. Samples arrive in SentAt order, so eviction only
// ever walks the head; each sample is appended once and skipped at most
// once, keeping ingest amortized O(1).
func (e *Engine) Record(sample Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = append(e.samples, sample)
	cutoff := sample.SentAt.Add(-e.retain)
	i := 0
	for i < len(e.samples) && e.samples[i].SentAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		e.samples = e.samples[i:]
	}
}

// Snapshot computes the aggregate for one window over the samples live at
// the given instant. Nothing is cached: every call reflects the buffer
// contents at call time. A sample with SentAt exactly at the horizon is
// included.
func (e *Engine) Snapshot(w Window, now time.Time) WindowAggregate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked(w, now)
}

// SnapshotAll computes every window's aggregate under a single read lock,
// so one render sees all windows over the same sample set.
func (e *Engine) SnapshotAll(now time.Time) []WindowAggregate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	aggs := make([]WindowAggregate, len(Windows))
	for i, w := range Windows {
		aggs[i] = e.snapshotLocked(w, now)
	}
	return aggs
}

func (e *Engine) snapshotLocked(w Window, now time.Time) WindowAggregate {
	cutoff := now.Add(-w.Duration)
	i := sort.Search(len(e.samples), func(i int) bool {
		return !e.samples[i].SentAt.Before(cutoff)
	})
	return aggregate(e.samples[i:])
}

// Len reports the number of retained samples.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.samples)
}
