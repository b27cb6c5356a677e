package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"smartfile/internal/store"
)

// HealthHandler reports service liveness and store reachability.
type HealthHandler struct {
	store  store.Store
	logger *slog.Logger
}

func NewHealthHandler(s store.Store, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:  s,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "store health check failed",
			slog.String("error", err.Error()))

		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, &HealthResponse{Status: "degraded", Store: "unreachable"})
		return
	}

	render.JSON(w, r, &HealthResponse{Status: "ok", Store: "ok"})
}
