// Package errors maps domain errors to the gateway's wire responses.
// It is the only place transport status codes are decided; domain
// packages stay transport-unaware.
package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"smartfile/internal/license"
	"smartfile/internal/services"
	"smartfile/internal/session"
)

// Response is the error body every failed request returns:
// {"success":false,"error":"<message>"} with the mapped status code.
type Response struct {
	HTTPStatusCode int    `json:"-"`
	Success        bool   `json:"success"`
	ErrorText      string `json:"error"`
}

// Render implements the render.Renderer interface.
func (e *Response) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// New creates an error response with an explicit status and message.
func New(status int, message string) *Response {
	return &Response{
		HTTPStatusCode: status,
		Success:        false,
		ErrorText:      message,
	}
}

// ErrInvalidRequest is the response for undecodable or incomplete
// request payloads.
func ErrInvalidRequest(message string) *Response {
	return New(http.StatusBadRequest, message)
}

// ErrInternal is the opaque response for unexpected failures. The
// underlying error is logged by the handler, never echoed.
var ErrInternal = New(http.StatusInternalServerError, "An unexpected error occurred")

// Map converts a domain error to its wire response. Unknown errors map
// to the opaque 500.
func Map(err error) *Response {
	switch {
	case errors.Is(err, license.ErrInvalidFormat):
		return New(http.StatusBadRequest, "Invalid license key format. Expected: PREM-XXXX-XXXX-XXXX")
	case errors.Is(err, license.ErrNotFound):
		return New(http.StatusNotFound, "License not found")
	case errors.Is(err, license.ErrExpired):
		return New(http.StatusForbidden, "License expired")
	case errors.Is(err, license.ErrDeviceLimit):
		return New(http.StatusForbidden, "Too many devices linked")
	case errors.Is(err, session.ErrSessionNotFound):
		return New(http.StatusUnauthorized, "Invalid or expired session")
	case errors.Is(err, services.ErrRateLimited):
		return New(http.StatusTooManyRequests, "Limit reached. Upgrade to Premium for unlimited use.")
	default:
		return ErrInternal
	}
}
