package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/merxlabs/merx/pkg/catalog"
	"github.com/merxlabs/merx/pkg/engine"
)

// IndexProduct ingests a product record into the engine.
func (h *Handlers) IndexProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var product catalog.Product
	if err := parseJSONBody(r, &product); err != nil {
		writeError(w, err)
		return
	}

	if err := h.engine.IndexProduct(&product); err != nil {
		if h.collector != nil {
			h.collector.RecordIndex(time.Since(start), false)
		}
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}

	h.invalidateCache()
	if h.collector != nil {
		h.collector.RecordIndex(time.Since(start), true)
	}

	writeJSON(w, map[string]interface{}{
		"status":     "indexed",
		"product_id": product.ProductID,
	})
}

// DeleteProduct removes a product and its derived index entries.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.engine.DeleteProduct(id); err != nil {
		if errors.Is(err, engine.ErrProductNotFound) {
			writeError(w, &ProductNotFoundError{ID: id})
			return
		}
		h.logger.Error("delete failed", "product_id", id, "err", err)
		writeError(w, &InternalError{Message: err.Error()})
		return
	}

	h.invalidateCache()
	writeJSON(w, map[string]interface{}{
		"status":     "deleted",
		"product_id": id,
	})
}

// Search runs a filtered product search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, &BadRequestError{Message: "q is required"})
		return
	}

	limit, err := parseLimit(r, "limit", 20, 1, 100)
	if err != nil {
		writeError(w, err)
		return
	}
	minPrice, err := parseOptionalInt64(r, "min_price")
	if err != nil {
		writeError(w, err)
		return
	}
	maxPrice, err := parseOptionalInt64(r, "max_price")
	if err != nil {
		writeError(w, err)
		return
	}
	category := r.URL.Query().Get("category")

	filters := engine.SearchFilters{
		Category: category,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}

	cacheKey := searchCacheKey(q, limit, filters)
	if h.resultCache != nil {
		if cached, ok := h.resultCache.Get(cacheKey); ok {
			h.engine.RecordQuery(q)
			if h.collector != nil {
				h.collector.RecordCacheHit()
				h.collector.RecordSearch(time.Since(start), true)
			}
			writeJSON(w, cached)
			return
		}
		if h.collector != nil {
			h.collector.RecordCacheMiss()
		}
	}

	results := h.engine.Search(q, limit, filters)

	response := map[string]interface{}{
		"results": results,
		"total":   len(results),
		"query":   q,
		"filters": map[string]interface{}{
			"category":  category,
			"min_price": minPrice,
			"max_price": maxPrice,
		},
	}

	if h.resultCache != nil {
		h.resultCache.Put(cacheKey, response)
	}
	if h.collector != nil {
		h.collector.RecordSearch(time.Since(start), true)
	}

	writeJSON(w, response)
}

// Autocomplete returns completion suggestions for a partial query.
func (h *Handlers) Autocomplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := parseLimit(r, "limit", 10, 1, 20)
	if err != nil {
		writeError(w, err)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	suggestions := []string{}
	if len(q) >= 2 {
		suggestions = h.engine.Autocomplete(q, limit)
		if suggestions == nil {
			suggestions = []string{}
		}
	}

	if h.collector != nil {
		h.collector.RecordAutocomplete(time.Since(start))
	}
	writeJSON(w, map[string]interface{}{
		"suggestions": suggestions,
	})
}

// Recommendations returns related products for a product id.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	limit, err := parseLimit(r, "limit", 5, 1, 20)
	if err != nil {
		writeError(w, err)
		return
	}

	recs, reason, err := h.engine.Recommend(id, limit)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordRecommend(time.Since(start), true)
		}
		if errors.Is(err, engine.ErrProductNotFound) {
			writeError(w, &ProductNotFoundError{ID: id})
			return
		}
		h.logger.Error("recommendation failed", "product_id", id, "err", err)
		writeError(w, &InternalError{Message: err.Error()})
		return
	}
	if recs == nil {
		recs = []string{}
	}

	if h.collector != nil {
		h.collector.RecordRecommend(time.Since(start), false)
	}
	writeJSON(w, map[string]interface{}{
		"product_ids": recs,
		"reason":      reason,
	})
}

// recordViewRequest is the RecordView payload.
type recordViewRequest struct {
	ProductID       string   `json:"product_id"`
	SessionProducts []string `json:"session_products"`
}

// RecordView ingests a co-view observation.
func (h *Handlers) RecordView(w http.ResponseWriter, r *http.Request) {
	var req recordViewRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, &BadRequestError{Message: "product_id is required"})
		return
	}

	// An empty session is a no-op acknowledgement, not an error.
	h.engine.RecordView(req.ProductID, req.SessionProducts)
	if h.collector != nil {
		h.collector.RecordView()
	}

	writeJSON(w, map[string]interface{}{
		"status": "recorded",
	})
}

// Analytics reports the search analytics snapshot.
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Analytics())
}

func (h *Handlers) invalidateCache() {
	if h.resultCache != nil {
		h.resultCache.Clear()
	}
}

func searchCacheKey(q string, limit int, filters engine.SearchFilters) string {
	min := int64(-1)
	if filters.MinPrice != nil {
		min = *filters.MinPrice
	}
	max := int64(-1)
	if filters.MaxPrice != nil {
		max = *filters.MaxPrice
	}
	return fmt.Sprintf("%s|%d|%s|%d|%d", strings.ToLower(q), limit, strings.ToLower(filters.Category), min, max)
}
