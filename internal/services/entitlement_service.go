// Package services holds the transport-free business logic composing
// the license registry, session manager and rate limiter into the two
// entitlement operations.
package services

import (
	"context"
	"errors"
	"log/slog"

	"smartfile/internal/entitlement"
	"smartfile/internal/infrastructure"
	"smartfile/internal/license"
	"smartfile/internal/ratelimit"
	"smartfile/internal/session"
)

// ErrRateLimited is returned by VerifyAction when a free-tier identity
// has exhausted its window.
var ErrRateLimited = errors.New("free tier limit reached")

// ValidateKeyResult is the outcome of a successful key validation.
type ValidateKeyResult struct {
	Token string
	// Expiry is the license expiry in epoch milliseconds. It is what
	// the client shows as "licensed until"; the session token itself
	// lives far shorter.
	Expiry      int64
	Entitlement entitlement.Entitlement
}

// VerifyActionResult is the outcome of a successful action check.
type VerifyActionResult struct {
	Tier        session.Tier
	Entitlement entitlement.Entitlement
	// Remaining is the free-tier allowance left in the current window.
	// Premium verifications report zero; they are not metered.
	Remaining int
}

// EntitlementService decides, per request, whether a caller may act and
// at which tier.
type EntitlementService interface {
	// ValidateKey checks a license key for a device and issues a
	// premium session on success.
	ValidateKey(ctx context.Context, key, fingerprint string) (*ValidateKeyResult, error)

	// VerifyAction authorizes one action. An empty token routes the
	// caller through the free-tier limiter; a non-empty token must
	// resolve to a live session.
	VerifyAction(ctx context.Context, token, identity string) (*VerifyActionResult, error)
}

type entitlementService struct {
	registry *license.Registry
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

func NewEntitlementService(
	registry *license.Registry,
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) EntitlementService {
	return &entitlementService{
		registry: registry,
		sessions: sessions,
		limiter:  limiter,
		logger:   logger.With(slog.String("service", "entitlement")),
	}
}

func (s *entitlementService) ValidateKey(ctx context.Context, key, fingerprint string) (*ValidateKeyResult, error) {
	rec, err := s.registry.Validate(ctx, key, fingerprint)
	if err != nil {
		infrastructure.KeyValidations.WithLabelValues(validationOutcome(err)).Inc()
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, rec.Key, session.TierPremium)
	if err != nil {
		infrastructure.KeyValidations.WithLabelValues("error").Inc()
		return nil, err
	}

	infrastructure.KeyValidations.WithLabelValues("success").Inc()
	infrastructure.SessionsIssued.Inc()

	return &ValidateKeyResult{
		Token:       token,
		Expiry:      rec.ExpiresAt,
		Entitlement: entitlement.ForTier(session.TierPremium),
	}, nil
}

func (s *entitlementService) VerifyAction(ctx context.Context, token, identity string) (*VerifyActionResult, error) {
	if token == "" {
		return s.verifyFree(ctx, identity)
	}

	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			infrastructure.ActionsVerified.WithLabelValues("unknown", "unauthorized").Inc()
			s.logger.WarnContext(ctx, "action attempted with invalid or expired session")
		}
		return nil, err
	}

	infrastructure.ActionsVerified.WithLabelValues(string(sess.Tier), "allowed").Inc()
	return &VerifyActionResult{
		Tier:        sess.Tier,
		Entitlement: entitlement.ForTier(sess.Tier),
	}, nil
}

func (s *entitlementService) verifyFree(ctx context.Context, identity string) (*VerifyActionResult, error) {
	decision, err := s.limiter.CheckAndIncrement(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		infrastructure.ActionsVerified.WithLabelValues(string(session.TierFree), "limited").Inc()
		infrastructure.RateLimitRejections.Inc()
		return nil, ErrRateLimited
	}

	infrastructure.ActionsVerified.WithLabelValues(string(session.TierFree), "allowed").Inc()
	return &VerifyActionResult{
		Tier:        session.TierFree,
		Entitlement: entitlement.ForTier(session.TierFree),
		Remaining:   decision.Remaining,
	}, nil
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, license.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, license.ErrNotFound):
		return "not_found"
	case errors.Is(err, license.ErrExpired):
		return "expired"
	case errors.Is(err, license.ErrDeviceLimit):
		return "device_limit"
	default:
		return "error"
	}
}
