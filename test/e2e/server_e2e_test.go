package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/merxlabs/merx/pkg/server"
)

// startServer builds a fully configured server and mounts its router on an
// httptest listener, exercising the same wiring the binary uses.
func startServer(t *testing.T, mutate func(*server.Config)) (*httptest.Server, *server.Server) {
	t.Helper()

	config := server.DefaultConfig()
	config.EnableLogging = false
	if mutate != nil {
		mutate(config)
	}

	srv, err := server.New(config)
	if err != nil {
		t.Fatalf("server.New() error: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, srv
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getJSON(t *testing.T, url string, target interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func indexProduct(t *testing.T, baseURL string, product map[string]interface{}) {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/search/index/product", product)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}
}

func TestSearchLifecycle(t *testing.T) {
	ts, _ := startServer(t, nil)

	indexProduct(t, ts.URL, map[string]interface{}{
		"product_id": "P1", "title": "Red Running Shoes",
		"description": "Lightweight trail runners",
		"categories":  []string{"Shoes"}, "price_cents": 4999, "currency": "USD", "stock": 3,
	})
	indexProduct(t, ts.URL, map[string]interface{}{
		"product_id": "P2", "title": "Blue Hiking Boots",
		"description": "Waterproof leather boots",
		"categories":  []string{"Shoes"}, "price_cents": 8999, "currency": "USD", "stock": 1,
	})

	// Search ranks the title match first.
	var searchResp struct {
		Results []struct {
			ProductID string  `json:"product_id"`
			Score     float64 `json:"score"`
		} `json:"results"`
		Total int `json:"total"`
	}
	getJSON(t, ts.URL+"/api/search?q=red+shoes&limit=10", &searchResp)
	if searchResp.Total < 1 || searchResp.Results[0].ProductID != "P1" {
		t.Fatalf("search = %+v", searchResp)
	}

	// Price filter excludes the cheaper product.
	getJSON(t, ts.URL+"/api/search?q=shoes&min_price=6000", &searchResp)
	if searchResp.Total != 1 || searchResp.Results[0].ProductID != "P2" {
		t.Fatalf("filtered search = %+v", searchResp)
	}

	// Autocomplete completes the shared token.
	var acResp struct {
		Suggestions []string `json:"suggestions"`
	}
	getJSON(t, ts.URL+"/api/search/autocomplete?q=sho", &acResp)
	if len(acResp.Suggestions) == 0 || acResp.Suggestions[0] != "shoes" {
		t.Fatalf("autocomplete = %+v", acResp)
	}

	// Record views, then recommendations prefer the co-viewed partner.
	resp := postJSON(t, ts.URL+"/api/search/analytics/view", map[string]interface{}{
		"product_id": "P1", "session_products": []string{"P2"},
	})
	resp.Body.Close()

	var recResp struct {
		ProductIDs []string `json:"product_ids"`
		Reason     string   `json:"reason"`
	}
	getJSON(t, ts.URL+"/api/search/recommendations/P1?limit=5", &recResp)
	if len(recResp.ProductIDs) == 0 || recResp.ProductIDs[0] != "P2" {
		t.Fatalf("recommendations = %+v", recResp)
	}
	if recResp.Reason != "frequently viewed together" {
		t.Errorf("reason = %q", recResp.Reason)
	}

	// Unknown product is rejected by the existence filter.
	resp = getJSON(t, ts.URL+"/api/search/recommendations/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown recommendation status = %d", resp.StatusCode)
	}

	// Analytics report the searches above.
	var analytics struct {
		TotalSearches   float64 `json:"total_searches"`
		UniqueQueries   float64 `json:"unique_queries"`
		IndexedProducts float64 `json:"indexed_products"`
	}
	getJSON(t, ts.URL+"/api/search/analytics", &analytics)
	if analytics.TotalSearches != 2 || analytics.IndexedProducts != 2 {
		t.Errorf("analytics = %+v", analytics)
	}

	// Metrics exposition carries the engine gauges.
	metricsResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	buf := new(bytes.Buffer)
	buf.ReadFrom(metricsResp.Body)
	if !strings.Contains(buf.String(), "merx_products_indexed 2") {
		t.Errorf("metrics missing product gauge:\n%s", buf.String())
	}

	// Reset returns the engine to its empty state.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/admin/reset", nil)
	resetResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	resetResp.Body.Close()
	if resetResp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resetResp.StatusCode)
	}

	getJSON(t, ts.URL+"/api/search?q=shoes", &searchResp)
	if searchResp.Total != 0 {
		t.Errorf("search after reset = %+v", searchResp)
	}
}

func TestEventStreamE2E(t *testing.T) {
	ts, _ := startServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Let the stream subscribe before the mutation lands.
	time.Sleep(50 * time.Millisecond)

	indexProduct(t, ts.URL, map[string]interface{}{
		"product_id": "E1", "title": "Streamed Widget", "price_cents": 100, "currency": "USD",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type      string `json:"type"`
		ProductID string `json:"product_id"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "indexed" || ev.ProductID != "E1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestGraphQLE2E(t *testing.T) {
	ts, _ := startServer(t, func(c *server.Config) {
		c.EnableGraphQL = true
	})

	indexProduct(t, ts.URL, map[string]interface{}{
		"product_id": "G1", "title": "Graph Camera",
		"categories": []string{"Electronics"}, "price_cents": 19999, "currency": "USD", "stock": 4,
	})

	query := `{ search(q: "camera", limit: 5) { productId title score } }`
	resp := postJSON(t, ts.URL+"/graphql", map[string]string{"query": query})
	defer resp.Body.Close()

	var result struct {
		Data struct {
			Search []struct {
				ProductID string `json:"productId"`
			} `json:"search"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data.Search) != 1 || result.Data.Search[0].ProductID != "G1" {
		t.Errorf("graphql search = %+v", result)
	}
}

func TestConcurrentTraffic(t *testing.T) {
	ts, _ := startServer(t, nil)

	for i := 0; i < 20; i++ {
		indexProduct(t, ts.URL, map[string]interface{}{
			"product_id":  fmt.Sprintf("P%d", i),
			"title":       fmt.Sprintf("Widget Model %d", i),
			"categories":  []string{"Widgets"},
			"price_cents": i * 1000,
			"currency":    "USD",
			"stock":       i % 3,
		})
	}

	done := make(chan error, 10)
	for w := 0; w < 10; w++ {
		go func(w int) {
			for j := 0; j < 20; j++ {
				resp, err := http.Get(ts.URL + "/api/search?q=widget")
				if err != nil {
					done <- err
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					done <- fmt.Errorf("status %d", resp.StatusCode)
					return
				}
			}
			done <- nil
		}(w)
	}
	for w := 0; w < 10; w++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent search: %v", err)
		}
	}
}
