package handlers

import "net/http"

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pinger func() error
}

// NewHealthHandler returns a HealthHandler backed by pinger, typically
// store.Store.Healthcheck bound to a background context.
func NewHealthHandler(pinger func() error) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Liveness always reports healthy once the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	healthy(w)
}

// Readiness additionally pings the database.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger(); err != nil {
		unhealthy(w, err)
		return
	}
	healthy(w)
}
