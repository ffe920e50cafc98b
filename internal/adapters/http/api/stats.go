// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StatsProvider reports the attendance service's runtime settings: whether
// it has started, the store driver, the day bucketing mode, the number of
// remembered idempotency keys, the geolocation timeout and the fallback
// coordinates used for punches without a position.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the service snapshot as JSON.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests. No identity headers are needed.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
