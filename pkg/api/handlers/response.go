package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aeroline/flightcore/internal/logger"
)

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// writeHealth encodes to a buffer first so an encoding failure can still
// produce a 500 instead of a half-written 200.
func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(resp); err != nil {
		logger.Error("failed to encode health response", "error", err)
		http.Error(w, `{"status":"unhealthy","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func healthy(w http.ResponseWriter) {
	writeHealth(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

func unhealthy(w http.ResponseWriter, err error) {
	writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Error:     err.Error(),
	})
}
