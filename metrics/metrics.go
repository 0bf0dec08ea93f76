package metrics

import (
	"sort"
	"sync"
	"time"
)

// Swallowed-error categories. Each names the entity boundary where a failure
// was converted into a "no data" sentinel.
const (
	SchedulePayload = "schedule"
	PitcherStats    = "pitcher_stats"
	Roster          = "roster"
	HitterStats     = "hitter_stats"
	GameLog         = "game_log"
	HeadToHead      = "h2h"
	CacheRead       = "cache_read"
	CacheWrite      = "cache_write"
	StreakBoard     = "streak_board"
)

// Metrics tracks request, cache and swallowed-error counters
type Metrics struct {
	mu                sync.RWMutex
	requestCount      int64
	errorCount        int64
	totalResponseTime int64
	cacheHits         int64
	cacheMisses       int64
	swallowed         map[string]int64
	startTime         time.Time
}

// Snapshot is the view served by the metrics endpoint. Swallowed is sorted
// by category.
type Snapshot struct {
	Requests  RequestStats     `json:"requests"`
	Cache     CacheStats       `json:"cache"`
	Swallowed []SwallowedCount `json:"swallowed_errors"`
	Uptime    string           `json:"uptime"`
}

type RequestStats struct {
	Total         int64   `json:"total"`
	Errors        int64   `json:"errors"`
	ErrorRate     float64 `json:"error_rate_percent"`
	AvgResponseMS float64 `json:"avg_response_ms"`
}

type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

type SwallowedCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

func New() *Metrics {
	return &Metrics{
		swallowed: make(map[string]int64),
		startTime: time.Now(),
	}
}

func (m *Metrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
}

func (m *Metrics) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
}

func (m *Metrics) AddResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalResponseTime += duration.Milliseconds()
}

func (m *Metrics) IncrementCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *Metrics) IncrementCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

// RecordSwallowed counts an error that was absorbed at an entity boundary.
// A nil receiver is a no-op so components can run without metrics.
func (m *Metrics) RecordSwallowed(category string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swallowed[category]++
}

// Swallowed returns the count for one category
func (m *Metrics) Swallowed(category string) int64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.swallowed[category]
}

// Snapshot copies the counters and derives rates from them
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Requests:  RequestStats{Total: m.requestCount, Errors: m.errorCount},
		Cache:     CacheStats{Hits: m.cacheHits, Misses: m.cacheMisses},
		Swallowed: make([]SwallowedCount, 0, len(m.swallowed)),
		Uptime:    time.Since(m.startTime).Round(time.Second).String(),
	}
	if m.requestCount > 0 {
		snap.Requests.ErrorRate = percent(m.errorCount, m.requestCount)
		snap.Requests.AvgResponseMS = float64(m.totalResponseTime) / float64(m.requestCount)
	}
	if lookups := m.cacheHits + m.cacheMisses; lookups > 0 {
		snap.Cache.HitRate = percent(m.cacheHits, lookups)
	}
	for category, count := range m.swallowed {
		snap.Swallowed = append(snap.Swallowed, SwallowedCount{Category: category, Count: count})
	}
	sort.Slice(snap.Swallowed, func(i, j int) bool {
		return snap.Swallowed[i].Category < snap.Swallowed[j].Category
	})
	return snap
}

func percent(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}
