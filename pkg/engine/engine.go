// Package engine orchestrates the product store, inverted index,
// autocomplete trie, existence filter, and recommender behind a single
// facade. It is the only component that touches more than one substructure
// in a call, and it maintains the cross-structure invariant: every product
// in the store is represented in every derived index, and vice versa.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/merxlabs/merx/pkg/bloom"
	"github.com/merxlabs/merx/pkg/catalog"
	"github.com/merxlabs/merx/pkg/events"
	"github.com/merxlabs/merx/pkg/recommend"
	"github.com/merxlabs/merx/pkg/suggest"
	"github.com/merxlabs/merx/pkg/text"
)

// ErrProductNotFound is returned when an operation names a product the
// engine does not know.
var ErrProductNotFound = errors.New("product not found")

// Title tokens shorter than this are not offered as completions.
const minSuggestTokenLen = 3

// Config sizes the engine's substructures.
type Config struct {
	BloomCapacity  int
	BloomErrorRate float64
}

// DefaultConfig returns the default engine sizing.
func DefaultConfig() Config {
	return Config{
		BloomCapacity:  bloom.DefaultCapacity,
		BloomErrorRate: bloom.DefaultErrorRate,
	}
}

// Engine owns every index substructure. A single read-write lock serializes
// mutations while reads proceed in parallel against a consistent state.
type Engine struct {
	mu sync.RWMutex

	config      Config
	store       *catalog.Store
	index       *text.InvertedIndex
	trie        *suggest.Trie
	filter      *bloom.Filter
	recommender *recommend.Recommender
	analyzer    *text.Analyzer
	analytics   *Analytics

	bus    *events.Bus
	logger *log.Logger
}

// SearchResult is one ranked product hit.
type SearchResult struct {
	ProductID  string  `json:"product_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	PriceCents int64   `json:"price_cents"`
	Currency   string  `json:"currency"`
	Stock      int     `json:"stock"`
}

// SearchFilters restricts search results. Nil price bounds are open.
type SearchFilters struct {
	Category string
	MinPrice *int64
	MaxPrice *int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventBus publishes engine mutations to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an empty engine.
func New(config Config, opts ...Option) *Engine {
	if config.BloomCapacity <= 0 {
		config.BloomCapacity = bloom.DefaultCapacity
	}
	if config.BloomErrorRate <= 0 {
		config.BloomErrorRate = bloom.DefaultErrorRate
	}

	e := &Engine{
		config:      config,
		store:       catalog.NewStore(),
		index:       text.NewInvertedIndex(),
		trie:        suggest.NewTrie(),
		filter:      bloom.New(config.BloomCapacity, config.BloomErrorRate),
		recommender: recommend.NewRecommender(),
		analyzer:    text.NewAnalyzer(),
		analytics:   NewAnalytics(),
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IndexProduct stores the product and updates every derived structure.
// Re-indexing an existing id replaces it cleanly: old postings, trie
// frequencies, and category/bucket metadata are withdrawn before the new
// record lands.
func (e *Engine) IndexProduct(p *catalog.Product) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev := e.store.Get(p.ProductID); prev != nil {
		e.withdrawSuggestions(prev)
	}

	e.store.Put(p)
	e.filter.Add(p.ProductID)
	e.index.AddDocument(p.ProductID, p.SearchText(), p.Categories)
	e.addSuggestions(p)
	e.recommender.AddProductMetadata(p.ProductID, p.Categories, p.PriceCents)

	e.logger.Debug("indexed product", "product_id", p.ProductID)
	e.publish(events.TypeIndexed, p.ProductID)
	return nil
}

// DeleteProduct removes the product and all derived index entries. The
// existence filter cannot forget ids; a deleted id still passes the filter
// and resolves to the co-view partners recorded for it before the delete, or
// to an empty recommendation when there are none.
func (e *Engine) DeleteProduct(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.store.Delete(id)
	if p == nil {
		return ErrProductNotFound
	}

	e.index.RemoveDocument(id)
	e.withdrawSuggestions(p)
	e.recommender.RemoveProductMetadata(id)

	e.logger.Debug("removed product", "product_id", id)
	e.publish(events.TypeRemoved, id)
	return nil
}

// Search runs the query through the inverted index, applies filters, and
// re-ranks the survivors by field-weighted overlap. The TF-IDF pass is a
// recall filter; the overlap score is the final ordering.
func (e *Engine) Search(query string, limit int, filters SearchFilters) []SearchResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return []SearchResult{}
	}
	e.analytics.Record(query)

	queryTokens := e.analyzer.Tokenize(query)
	if len(queryTokens) == 0 {
		return []SearchResult{}
	}

	// Over-fetch so filtering still leaves enough candidates.
	candidates := e.index.Search(query, limit*2)

	results := make([]SearchResult, 0, limit)
	for _, candidate := range candidates {
		p := e.store.Get(candidate.DocID)
		if p == nil {
			continue
		}
		if filters.Category != "" && !p.HasCategory(filters.Category) {
			continue
		}
		if filters.MinPrice != nil && p.PriceCents < *filters.MinPrice {
			continue
		}
		if filters.MaxPrice != nil && p.PriceCents > *filters.MaxPrice {
			continue
		}

		results = append(results, SearchResult{
			ProductID:  p.ProductID,
			Title:      p.Title,
			Score:      e.relevanceScore(p, queryTokens),
			PriceCents: p.PriceCents,
			Currency:   p.Currency,
			Stock:      p.Stock,
		})
		if len(results) >= limit {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// relevanceScore is the field-weighted overlap used for final ranking:
// +3 per distinct query token in the title, +1 in the description, +2 in the
// category labels, +0.5 when the product is in stock.
func (e *Engine) relevanceScore(p *catalog.Product, queryTokens []string) float64 {
	distinct := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		distinct[t] = struct{}{}
	}

	titleTokens := tokenSet(e.analyzer.Tokenize(p.Title))
	descTokens := tokenSet(e.analyzer.Tokenize(p.Description))
	categories := make(map[string]struct{}, len(p.Categories))
	for _, c := range p.Categories {
		categories[strings.ToLower(c)] = struct{}{}
	}

	score := 0.0
	for t := range distinct {
		if _, ok := titleTokens[t]; ok {
			score += 3.0
		}
		if _, ok := descTokens[t]; ok {
			score += 1.0
		}
		if _, ok := categories[t]; ok {
			score += 2.0
		}
	}
	if p.Stock > 0 {
		score += 0.5
	}
	return score
}

// Autocomplete returns up to limit completions for the prefix.
func (e *Engine) Autocomplete(prefix string, limit int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trie.SearchPrefix(prefix, limit)
}

// Recommend returns up to limit product ids related to the given one, with
// the reason they were chosen. The existence filter gates the lookup: an id
// it rejects was never indexed. A false positive passes the gate and yields
// an empty list with an empty reason, unless co-views were recorded for that
// id, in which case those partners are returned.
func (e *Engine) Recommend(id string, limit int) ([]string, string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.filter.Contains(id) {
		return nil, "", ErrProductNotFound
	}

	var categories []string
	if p := e.store.Get(id); p != nil {
		categories = p.Categories
	}

	recs, reason := e.recommender.Recommend(id, limit, categories)
	return recs, reason, nil
}

// RecordView records co-views from focus to every other product in the
// session. An empty session is acknowledged without mutating anything.
func (e *Engine) RecordView(focus string, sessionProducts []string) {
	if focus == "" || len(sessionProducts) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.recommender.RecordView(focus, sessionProducts)
	e.publish(events.TypeView, focus)
}

// GetProduct returns the stored record for id.
func (e *Engine) GetProduct(id string) (*catalog.Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := e.store.Get(id)
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// RecordQuery counts a search query without executing it, used when a
// cached response short-circuits Search.
func (e *Engine) RecordQuery(query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	e.analytics.Record(query)
}

// Analytics returns a snapshot of the search analytics.
func (e *Engine) Analytics() AnalyticsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := e.analytics.Snapshot(topSearchCount)
	snapshot.IndexedProducts = e.store.Len()
	return snapshot
}

// Reset atomically replaces every substructure with a fresh empty instance.
// In-flight reads finish against the old state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store = catalog.NewStore()
	e.index = text.NewInvertedIndex()
	e.trie = suggest.NewTrie()
	e.filter = bloom.New(e.config.BloomCapacity, e.config.BloomErrorRate)
	e.recommender = recommend.NewRecommender()
	e.analytics = NewAnalytics()

	e.logger.Info("engine reset")
	e.publish(events.TypeReset, "")
}

// Stats returns engine-wide statistics for the health endpoint.
func (e *Engine) Stats() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return map[string]interface{}{
		"indexed_products":      e.store.Len(),
		"index_documents":       e.index.TotalDocs(),
		"index_terms":           e.index.TermCount(),
		"suggestion_words":      e.trie.Len(),
		"bloom_filter_capacity": e.filter.Capacity(),
	}
}

// IndexedProducts implements metrics.EngineStatsProvider.
func (e *Engine) IndexedProducts() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Len()
}

// IndexDocuments implements metrics.EngineStatsProvider.
func (e *Engine) IndexDocuments() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.TotalDocs()
}

// UniqueQueries implements metrics.EngineStatsProvider.
func (e *Engine) UniqueQueries() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analytics.UniqueQueries()
}

// TotalSearches implements metrics.EngineStatsProvider.
func (e *Engine) TotalSearches() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analytics.TotalSearches()
}

// addSuggestions feeds the product's title tokens and category labels into
// the completion trie.
func (e *Engine) addSuggestions(p *catalog.Product) {
	for _, token := range e.analyzer.Tokenize(p.Title) {
		if len(token) >= minSuggestTokenLen {
			e.trie.Insert(token, 1)
		}
	}
	for _, category := range p.Categories {
		e.trie.Insert(category, 1)
	}
}

// withdrawSuggestions reverses addSuggestions for a product leaving the
// store, decrementing shared words instead of deleting them outright.
func (e *Engine) withdrawSuggestions(p *catalog.Product) {
	for _, token := range e.analyzer.Tokenize(p.Title) {
		if len(token) >= minSuggestTokenLen {
			e.trie.Remove(token, 1)
		}
	}
	for _, category := range p.Categories {
		e.trie.Remove(category, 1)
	}
}

func (e *Engine) publish(eventType, productID string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{
		Type:      eventType,
		ProductID: productID,
		Timestamp: time.Now(),
	})
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
