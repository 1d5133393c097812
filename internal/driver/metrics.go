package driver

import (
	"fmt"
	"sync/atomic"

	"hostgen/internal/memo"
	"hostgen/internal/tree"
)

// Metrics summarises the work of one run.
type Metrics struct {
	UnitsAnalyzed int64 `json:"units_analyzed"`
	UnitsCached   int64 `json:"units_cached"`
	UnitsSkipped  int64 `json:"units_skipped"`
	Errors        int64 `json:"errors"`

	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	DiskHits    int64 `json:"disk_hits"`
	DiskMisses  int64 `json:"disk_misses"`

	Batches   int64 `json:"batches"`
	BatchMax  int64 `json:"batch_max"`
	BatchUnit int64 `json:"batch_units"` // units across all batches

	Resolutions memo.Stats       `json:"resolutions"`
	Loader      tree.LoaderStats `json:"loader"`
}

// String renders the metrics on one line, for --timings and traces.
func (m Metrics) String() string {
	memTotal := m.CacheHits + m.CacheMisses
	diskTotal := m.DiskHits + m.DiskMisses
	batchAvg := 0.0
	if m.Batches > 0 {
		batchAvg = float64(m.BatchUnit) / float64(m.Batches)
	}
	return fmt.Sprintf(
		"units: %d analysed, %d cached, %d skipped, %d errors | "+
			"cache: mem=%d/%d (%.1f%%), disk=%d/%d (%.1f%%) | "+
			"resolutions: %d/%d (%.1f%%) | "+
			"loader: %d loaded, %d bytes | "+
			"batches: %d (avg=%.1f, max=%d)",
		m.UnitsAnalyzed, m.UnitsCached, m.UnitsSkipped, m.Errors,
		m.CacheHits, memTotal, percent(m.CacheHits, memTotal),
		m.DiskHits, diskTotal, percent(m.DiskHits, diskTotal),
		m.Resolutions.Hits, m.Resolutions.Hits+m.Resolutions.Misses, m.Resolutions.HitRatio()*100,
		m.Loader.Loaded, m.Loader.Bytes,
		m.Batches, batchAvg, m.BatchMax,
	)
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// runMetrics is updated by concurrent workers.
type runMetrics struct {
	analyzed atomic.Int64
	cached   atomic.Int64
	skipped  atomic.Int64
	errors   atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	diskHits    atomic.Int64
	diskMisses  atomic.Int64

	batchCount     atomic.Int64
	batchSizeTotal atomic.Int64
	batchSizeMax   atomic.Int64
}

func (m *runMetrics) batch(size int) {
	n := int64(size)
	m.batchCount.Add(1)
	m.batchSizeTotal.Add(n)
	for {
		cur := m.batchSizeMax.Load()
		if n <= cur || m.batchSizeMax.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (m *runMetrics) snapshot() Metrics {
	return Metrics{
		UnitsAnalyzed: m.analyzed.Load(),
		UnitsCached:   m.cached.Load(),
		UnitsSkipped:  m.skipped.Load(),
		Errors:        m.errors.Load(),
		CacheHits:     m.cacheHits.Load(),
		CacheMisses:   m.cacheMisses.Load(),
		DiskHits:      m.diskHits.Load(),
		DiskMisses:    m.diskMisses.Load(),
		Batches:       m.batchCount.Load(),
		BatchMax:      m.batchSizeMax.Load(),
		BatchUnit:     m.batchSizeTotal.Load(),
	}
}
