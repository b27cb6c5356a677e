// Package session issues and resolves the short-lived tokens that prove
// a prior successful license validation. Expiry is entirely delegated to
// the store's TTL: an expired token simply stops resolving.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smartfile/internal/store"
)

const tokenPrefix = "session:"

// DefaultTTL is the action-verification session lifetime. The 24 hour
// "stay signed in" window the client shows is the license expiry echoed
// back at validation time, not a server credential, so it never appears
// here.
const DefaultTTL = 10 * time.Minute

// ErrSessionNotFound covers both never-issued and TTL-expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// Tier is the entitlement level a session was issued for.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
)

// Session is the stored token record.
type Session struct {
	LicenseKey string `json:"licenseKey"`
	Tier       Tier   `json:"tier"`
	IssuedAt   int64  `json:"issuedAt"`
}

// Manager issues and resolves session tokens.
type Manager struct {
	store  store.Store
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(s store.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  s,
		logger: logger.With(slog.String("component", "session_manager")),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue creates a session token for licenseKey at the given tier.
func (m *Manager) Issue(ctx context.Context, licenseKey string, tier Tier) (string, error) {
	token := uuid.NewString()
	sess := Session{
		LicenseKey: licenseKey,
		Tier:       tier,
		IssuedAt:   m.now().UnixMilli(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Put(ctx, tokenPrefix+token, string(data), m.ttl); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	m.logger.InfoContext(ctx, "session issued",
		slog.String("tier", string(tier)),
		slog.Duration("ttl", m.ttl))
	return token, nil
}

// Resolve returns the session stored under token. Reading does not
// extend the TTL.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	raw, err := m.store.Get(ctx, tokenPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal([]byte(raw), sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}
