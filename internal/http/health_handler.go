package http

import (
	"context"
	"net/http"

	"libraryapi/internal/httpx"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{"status": "ok"}, nil)
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "store is not reachable", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
}
