package handler

import (
	"context"
	"net/http"

	"github.com/mkoppen/linguachat/internal/api/response"
)

// Pinger reports store connectivity, satisfied by both store backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck reports process liveness
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// ReadyCheck reports readiness including store connectivity
func ReadyCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		response.OK(w, map[string]string{"status": "ready"})
	}
}
