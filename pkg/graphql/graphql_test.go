package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/merxlabs/merx/pkg/catalog"
	"github.com/merxlabs/merx/pkg/engine"
)

func newTestHandler(t *testing.T) (*Handler, *engine.Engine) {
	t.Helper()
	eng := engine.New(engine.DefaultConfig())
	h, err := NewHandler(eng)
	if err != nil {
		t.Fatalf("NewHandler() error: %v", err)
	}
	return h, eng
}

func execute(t *testing.T, h *Handler, query string) map[string]interface{} {
	t.Helper()

	body, _ := json.Marshal(Request{Query: query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	return result
}

func TestSearchQuery(t *testing.T) {
	h, eng := newTestHandler(t)
	eng.IndexProduct(&catalog.Product{
		ProductID: "P1", Title: "Red Running Shoes",
		Categories: []string{"Shoes"}, PriceCents: 4999, Currency: "USD", Stock: 3,
	})

	result := execute(t, h, `{ search(q: "red shoes") { productId title score } }`)
	if result["errors"] != nil {
		t.Fatalf("errors: %v", result["errors"])
	}

	hits := result["data"].(map[string]interface{})["search"].([]interface{})
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit, got %d", len(hits))
	}
	hit := hits[0].(map[string]interface{})
	if hit["productId"] != "P1" {
		t.Errorf("productId = %v", hit["productId"])
	}
	if hit["score"].(float64) <= 0 {
		t.Errorf("score = %v", hit["score"])
	}
}

func TestIndexProductMutation(t *testing.T) {
	h, eng := newTestHandler(t)

	result := execute(t, h, `mutation {
		indexProduct(productId: "P9", title: "Wireless Camera", priceCents: 19999, categories: ["Electronics"], stock: 2)
	}`)
	if result["errors"] != nil {
		t.Fatalf("errors: %v", result["errors"])
	}

	if _, err := eng.GetProduct("P9"); err != nil {
		t.Errorf("Product not indexed: %v", err)
	}
}

func TestSuggestQuery(t *testing.T) {
	h, eng := newTestHandler(t)
	eng.IndexProduct(&catalog.Product{ProductID: "P1", Title: "Camera", PriceCents: 100, Currency: "USD"})

	result := execute(t, h, `{ suggest(q: "cam") }`)
	suggestions := result["data"].(map[string]interface{})["suggest"].([]interface{})
	if len(suggestions) != 1 || suggestions[0] != "camera" {
		t.Errorf("suggest = %v", suggestions)
	}
}

func TestRecommendationsQueryNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	result := execute(t, h, `{ recommendations(productId: "ghost") { productIds reason } }`)
	if result["errors"] == nil {
		t.Error("Expected error for unknown product")
	}
}

func TestRecordViewAndRecommendations(t *testing.T) {
	h, eng := newTestHandler(t)
	eng.IndexProduct(&catalog.Product{ProductID: "A", Title: "Alpha Widget", PriceCents: 100, Currency: "USD"})

	execute(t, h, `mutation { recordView(productId: "A", sessionProducts: ["B", "C"]) }`)

	result := execute(t, h, `{ recommendations(productId: "A", limit: 2) { productIds reason } }`)
	if result["errors"] != nil {
		t.Fatalf("errors: %v", result["errors"])
	}
	recs := result["data"].(map[string]interface{})["recommendations"].(map[string]interface{})
	if recs["reason"] != "frequently viewed together" {
		t.Errorf("reason = %v", recs["reason"])
	}
	if ids := recs["productIds"].([]interface{}); len(ids) != 2 {
		t.Errorf("productIds = %v", ids)
	}
}

func TestAnalyticsQuery(t *testing.T) {
	h, eng := newTestHandler(t)
	eng.IndexProduct(&catalog.Product{ProductID: "P1", Title: "Camera", PriceCents: 100, Currency: "USD"})
	eng.Search("camera", 10, engine.SearchFilters{})

	result := execute(t, h, `{ analytics { totalSearches uniqueQueries indexedProducts } }`)
	data := result["data"].(map[string]interface{})["analytics"].(map[string]interface{})
	if data["totalSearches"].(float64) != 1 {
		t.Errorf("totalSearches = %v", data["totalSearches"])
	}
	if data["indexedProducts"].(float64) != 1 {
		t.Errorf("indexedProducts = %v", data["indexedProducts"])
	}
}

func TestRejectsGet(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLimitValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	result := execute(t, h, `{ search(q: "shoes", limit: 500) { productId } }`)
	if result["errors"] == nil {
		t.Error("Expected error for out-of-range limit")
	}
}
