package extract

import (
	"sort"
	"sync"
	"time"

	"github.com/dgrange/loanpipe/internal/model"
)

type sample struct {
	timestamp  time.Time
	docType    model.DocumentType
	durationMs int64
}

// TypeSnapshot aggregates model calls for one document type.
type TypeSnapshot struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs int64   `json:"max_ms"`
}

// StatsSnapshot is a point-in-time aggregate of model call latencies,
// overall and broken down by the document type being extracted.
type StatsSnapshot struct {
	Count          int                     `json:"count"`
	MinMs          int64                   `json:"min_ms"`
	MaxMs          int64                   `json:"max_ms"`
	AvgMs          float64                 `json:"avg_ms"`
	P50Ms          float64                 `json:"p50_ms"`
	P95Ms          float64                 `json:"p95_ms"`
	P99Ms          float64                 `json:"p99_ms"`
	ByDocumentType map[string]TypeSnapshot `json:"by_document_type,omitempty"`
}

// LLMStats tracks recent extraction model call latencies within a
// rolling window, for the stats endpoint.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

func (s *LLMStats) Record(docType model.DocumentType, durationMs int64) {
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		docType:    docType,
		durationMs: durationMs,
	})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	byType := make(map[string]TypeSnapshot)
	typeSums := make(map[string]int64)
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs

		key := string(sm.docType)
		ts := byType[key]
		ts.Count++
		if sm.durationMs > ts.MaxMs {
			ts.MaxMs = sm.durationMs
		}
		byType[key] = ts
		typeSums[key] += sm.durationMs
	}
	for key, ts := range byType {
		ts.AvgMs = float64(typeSums[key]) / float64(ts.Count)
		byType[key] = ts
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:          len(values),
		MinMs:          values[0],
		MaxMs:          values[len(values)-1],
		AvgMs:          float64(sum) / float64(len(values)),
		P50Ms:          percentile(values, 50),
		P95Ms:          percentile(values, 95),
		P99Ms:          percentile(values, 99),
		ByDocumentType: byType,
	}
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
