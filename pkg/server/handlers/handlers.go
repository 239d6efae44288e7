// Package handlers implements the HTTP surface over the search engine.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/merxlabs/merx/pkg/cache"
	"github.com/merxlabs/merx/pkg/engine"
	"github.com/merxlabs/merx/pkg/events"
	"github.com/merxlabs/merx/pkg/metrics"
)

// Handlers holds the engine and its supporting services.
type Handlers struct {
	engine      *engine.Engine
	resultCache *cache.LRUCache
	collector   *metrics.Collector
	bus         *events.Bus
	logger      *log.Logger
}

// New creates a Handlers instance. cache, collector, and bus may be nil to
// disable the corresponding feature.
func New(eng *engine.Engine, resultCache *cache.LRUCache, collector *metrics.Collector, bus *events.Bus, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		engine:      eng,
		resultCache: resultCache,
		collector:   collector,
		bus:         bus,
		logger:      logger,
	}
}

// parseJSONBody parses a JSON request body into target.
func parseJSONBody(r *http.Request, target interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &BadRequestError{Message: "failed to read request body"}
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return &BadRequestError{Message: "request body is empty"}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &BadRequestError{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// parseLimit reads an integer query parameter bounded to [min, max], falling
// back to def when absent.
func parseLimit(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &BadRequestError{Message: name + " must be an integer"}
	}
	if n < min || n > max {
		return 0, &BadRequestError{Message: name + " must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)}
	}
	return n, nil
}

// parseOptionalInt64 reads an optional integer query parameter.
func parseOptionalInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &BadRequestError{Message: name + " must be an integer"}
	}
	return &n, nil
}

// Error types for consistent error handling

// BadRequestError marks invalid or missing client input.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// ProductNotFoundError marks a lookup for an unknown product id.
type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string {
	return "product not found: " + e.ID
}

// InternalError wraps unexpected faults; the message is logged, not echoed.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}

// writeError writes an error response with the appropriate HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	var errorType string
	var message string

	switch e := err.(type) {
	case *BadRequestError:
		statusCode = http.StatusBadRequest
		errorType = "BadRequest"
		message = e.Message
	case *ProductNotFoundError:
		statusCode = http.StatusNotFound
		errorType = "NotFound"
		message = e.Error()
	case *InternalError:
		statusCode = http.StatusInternalServerError
		errorType = "Internal"
		message = "internal error"
	default:
		statusCode = http.StatusInternalServerError
		errorType = "Internal"
		message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	})
}

// writeJSON writes a success payload.
func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}
