package engine

import (
	"sort"
	"strings"
	"sync"
)

// The analytics endpoint reports this many top queries.
const topSearchCount = 20

// Analytics counts search queries, case-folded. It carries its own lock:
// searches run under the engine's read lock but still mutate these counters.
type Analytics struct {
	mu            sync.Mutex
	queryCounts   map[string]uint64
	totalSearches uint64
}

// QueryCount pairs a query with the number of times it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count uint64 `json:"count"`
}

// AnalyticsSnapshot is the analytics endpoint payload.
type AnalyticsSnapshot struct {
	TopSearches     []QueryCount `json:"top_searches"`
	TotalSearches   uint64       `json:"total_searches"`
	UniqueQueries   int          `json:"unique_queries"`
	IndexedProducts int          `json:"indexed_products"`
}

// NewAnalytics creates empty search analytics.
func NewAnalytics() *Analytics {
	return &Analytics{queryCounts: make(map[string]uint64)}
}

// Record counts one execution of query.
func (a *Analytics) Record(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queryCounts[strings.ToLower(query)]++
	a.totalSearches++
}

// Snapshot returns the top n queries by count, ties broken by ascending
// query, plus the totals.
func (a *Analytics) Snapshot(n int) AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	top := make([]QueryCount, 0, len(a.queryCounts))
	for query, count := range a.queryCounts {
		top = append(top, QueryCount{Query: query, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Query < top[j].Query
	})
	if len(top) > n {
		top = top[:n]
	}

	return AnalyticsSnapshot{
		TopSearches:   top,
		TotalSearches: a.totalSearches,
		UniqueQueries: len(a.queryCounts),
	}
}

// TotalSearches returns the number of recorded searches.
func (a *Analytics) TotalSearches() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalSearches
}

// UniqueQueries returns the number of distinct queries recorded.
func (a *Analytics) UniqueQueries() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queryCounts)
}
