package handlers

import (
	"net/http"
	"time"
)

// Health returns a readiness handler reporting engine statistics.
func (h *Handlers) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status": "healthy",
			"ready":  true,
			"uptime": time.Since(startTime).String(),
			"time":   time.Now().Format(time.RFC3339),
			"stats":  h.engine.Stats(),
		})
	}
}

// Stats returns the engine statistics alone.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

// Reset atomically clears every engine structure.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	h.invalidateCache()

	writeJSON(w, map[string]interface{}{
		"status":  "cleared",
		"message": "all search data has been cleared",
	})
}
