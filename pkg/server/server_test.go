package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	config := DefaultConfig()
	config.EnableLogging = false
	config.EnableGzip = false
	if mutate != nil {
		mutate(config)
	}

	srv, err := New(config)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func TestRoutesWired(t *testing.T) {
	srv := newTestServer(t, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"product_id":  "P1",
		"title":       "Red Running Shoes",
		"categories":  []string{"Shoes"},
		"price_cents": 4999,
		"currency":    "USD",
		"stock":       3,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/search/index/product", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/search?q=red", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "P1") {
		t.Errorf("search body = %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "merx_searches_total") {
		t.Errorf("Missing metric in body:\n%s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("CORS origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAdminResetRequiresKey(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.AdminKey = "s3cret"
	})

	req := httptest.NewRequest(http.MethodDelete, "/admin/reset", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestGraphQLDisabledByDefault(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ analytics { totalSearches } }"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGraphQLEnabled(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.EnableGraphQL = true
	})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ analytics { totalSearches } }"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "totalSearches") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTLSConfigValidation(t *testing.T) {
	config := DefaultConfig()
	config.EnableTLS = true
	if _, err := New(config); err == nil {
		t.Error("Expected error for TLS without cert/key")
	}
}
