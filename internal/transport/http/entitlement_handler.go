// Package http exposes the entitlement gateway over HTTP: the two
// entitlement operations, health, and metrics.
package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"smartfile/internal/entitlement"
	apierrors "smartfile/internal/errors"
	"smartfile/internal/middleware"
	"smartfile/internal/services"
	"smartfile/internal/session"
)

var validate = validator.New()

// EntitlementHandler handles the two entitlement operations.
type EntitlementHandler struct {
	service  services.EntitlementService
	identity middleware.IdentityFunc
	logger   *slog.Logger
}

func NewEntitlementHandler(service services.EntitlementService, identity middleware.IdentityFunc, logger *slog.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		service:  service,
		identity: identity,
		logger:   logger.With(slog.String("handler", "entitlement")),
	}
}

// ValidateKeyRequest is the validate-key request payload.
type ValidateKeyRequest struct {
	Key               string `json:"key" validate:"required"`
	DeviceFingerprint string `json:"deviceFingerprint" validate:"required"`
}

// ValidateKeyResponse is the validate-key success payload. Expiry is
// the license expiry in epoch milliseconds.
type ValidateKeyResponse struct {
	Success     bool                    `json:"success"`
	Token       string                  `json:"token"`
	Expiry      int64                   `json:"expiry"`
	Entitlement entitlement.Entitlement `json:"entitlement"`
}

// VerifyActionResponse is the verify-action success payload. Remaining
// is present only for metered free-tier calls.
type VerifyActionResponse struct {
	Success     bool                    `json:"success"`
	Tier        session.Tier            `json:"tier"`
	Entitlement entitlement.Entitlement `json:"entitlement"`
	Remaining   *int                    `json:"remaining,omitempty"`
}

// ValidateKey handles POST /api/validate-key.
func (h *EntitlementHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &ValidateKeyRequest{}
	if err := render.Decode(r, req); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest("Request body must be JSON with key and deviceFingerprint"))
		return
	}
	if err := validate.Struct(req); err != nil {
		render.Render(w, r, apierrors.ErrInvalidRequest("key and deviceFingerprint are required"))
		return
	}

	result, err := h.service.ValidateKey(ctx, req.Key, req.DeviceFingerprint)
	if err != nil {
		resp := apierrors.Map(err)
		if resp.HTTPStatusCode == http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "key validation failed unexpectedly",
				slog.String("error", err.Error()))
		}
		render.Render(w, r, resp)
		return
	}

	render.JSON(w, r, &ValidateKeyResponse{
		Success:     true,
		Token:       result.Token,
		Expiry:      result.Expiry,
		Entitlement: result.Entitlement,
	})
}

// VerifyAction handles POST /api/verify-action. An absent Authorization
// header routes the caller through the free-tier limiter keyed by the
// derived client identity.
func (h *EntitlementHandler) VerifyAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	identity := h.identity(r)

	result, err := h.service.VerifyAction(ctx, token, identity)
	if err != nil {
		resp := apierrors.Map(err)
		if resp.HTTPStatusCode == http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "action verification failed unexpectedly",
				slog.String("error", err.Error()))
		}
		render.Render(w, r, resp)
		return
	}

	out := &VerifyActionResponse{
		Success:     true,
		Tier:        result.Tier,
		Entitlement: result.Entitlement,
	}
	if result.Tier == session.TierFree {
		remaining := result.Remaining
		out.Remaining = &remaining
	}
	render.JSON(w, r, out)
}

// Routes returns the entitlement API router.
func (h *EntitlementHandler) Routes(guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if guard != nil {
		r.With(guard).Post("/validate-key", h.ValidateKey)
	} else {
		r.Post("/validate-key", h.ValidateKey)
	}
	r.Post("/verify-action", h.VerifyAction)
	return r
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
