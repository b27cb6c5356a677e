package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfile/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(opts ...Option) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(store.WithClock(clock.Now))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewManager(s, logger, opts...), clock
}

func TestIssueResolve_RoundTrip(t *testing.T) {
	m, clock := newTestManager()
	ctx := context.Background()

	token, err := m.Issue(ctx, "PREM-1234-ABCD-EFGH", TierPremium)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sess, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "PREM-1234-ABCD-EFGH", sess.LicenseKey)
	assert.Equal(t, TierPremium, sess.Tier)
	assert.Equal(t, clock.Now().UnixMilli(), sess.IssuedAt)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := m.Issue(ctx, "PREM-1234-ABCD-EFGH", TierPremium)
		require.NoError(t, err)
		require.False(t, seen[token], "token issued twice")
		seen[token] = true
	}
}

func TestResolve_UnknownToken(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResolve_ExpiredToken(t *testing.T) {
	m, clock := newTestManager()
	ctx := context.Background()

	token, err := m.Issue(ctx, "PREM-1234-ABCD-EFGH", TierPremium)
	require.NoError(t, err)

	clock.Advance(DefaultTTL + time.Second)

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound, "expired and unknown tokens are indistinguishable")
}

func TestResolve_DoesNotExtendTTL(t *testing.T) {
	m, clock := newTestManager()
	ctx := context.Background()

	token, err := m.Issue(ctx, "PREM-1234-ABCD-EFGH", TierPremium)
	require.NoError(t, err)

	// Reads just before expiry must not push the deadline out.
	clock.Advance(DefaultTTL - time.Second)
	_, err = m.Resolve(ctx, token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWithTTL_OverridesLifetime(t *testing.T) {
	m, clock := newTestManager(WithTTL(time.Minute))
	ctx := context.Background()

	token, err := m.Issue(ctx, "PREM-1234-ABCD-EFGH", TierPremium)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
