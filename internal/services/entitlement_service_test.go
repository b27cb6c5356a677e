package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfile/internal/license"
	"smartfile/internal/ratelimit"
	"smartfile/internal/session"
	"smartfile/internal/store"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (EntitlementService, store.Store) {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return testNow }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := license.NewRegistry(s, logger, license.WithClock(func() time.Time { return testNow }))
	sessions := session.NewManager(s, logger, session.WithClock(func() time.Time { return testNow }))
	limiter := ratelimit.NewLimiter(s, logger, ratelimit.WithCeiling(2))

	return NewEntitlementService(registry, sessions, limiter, logger), s
}

func seedLicense(t *testing.T, s store.Store, rec *license.Record) {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "license:"+rec.Key, string(data), 0))
}

func TestValidateKey_IssuesPremiumSession(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	expiry := testNow.Add(24 * time.Hour).UnixMilli()
	seedLicense(t, s, &license.Record{
		Key:        "PREM-1234-ABCD-EFGH",
		ExpiresAt:  expiry,
		MaxDevices: 1,
	})

	res, err := svc.ValidateKey(ctx, "PREM-1234-ABCD-EFGH", "dev1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, expiry, res.Expiry, "expiry echoes the license, not the session")
	assert.True(t, res.Entitlement.AllowBatch)

	// The issued token must resolve to a premium session.
	verify, err := svc.VerifyAction(ctx, res.Token, "")
	require.NoError(t, err)
	assert.Equal(t, session.TierPremium, verify.Tier)
	assert.Equal(t, 20, verify.Entitlement.MaxFiles)
}

func TestValidateKey_PropagatesRegistryErrors(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	seedLicense(t, s, &license.Record{
		Key:        "PREM-1234-ABCD-EFGH",
		ExpiresAt:  testNow.Add(24 * time.Hour).UnixMilli(),
		Devices:    []string{"other"},
		MaxDevices: 1,
	})

	tests := []struct {
		name        string
		key         string
		fingerprint string
		wantErr     error
	}{
		{"malformed key", "garbage", "dev1", license.ErrInvalidFormat},
		{"unknown key", "PREM-0000-0000-0000", "dev1", license.ErrNotFound},
		{"device limit", "PREM-1234-ABCD-EFGH", "dev2", license.ErrDeviceLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateKey(ctx, tt.key, tt.fingerprint)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyAction_FreeTierMetersUsage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.VerifyAction(ctx, "", "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, session.TierFree, res.Tier)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, 1, res.Entitlement.MaxFiles)

	res, err = svc.VerifyAction(ctx, "", "203.0.113.9")
	require.NoError(t, err)
	assert.Zero(t, res.Remaining)

	_, err = svc.VerifyAction(ctx, "", "203.0.113.9")
	assert.ErrorIs(t, err, ErrRateLimited)

	// A different identity is unaffected.
	res, err = svc.VerifyAction(ctx, "", "203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)
}

func TestVerifyAction_InvalidToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.VerifyAction(context.Background(), "bogus-token", "203.0.113.9")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestVerifyAction_PremiumBypassesLimiter(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	seedLicense(t, s, &license.Record{
		Key:        "PREM-1234-ABCD-EFGH",
		ExpiresAt:  testNow.Add(24 * time.Hour).UnixMilli(),
		MaxDevices: 1,
	})

	res, err := svc.ValidateKey(ctx, "PREM-1234-ABCD-EFGH", "dev1")
	require.NoError(t, err)

	// Far more actions than the free ceiling; all must pass.
	for i := 0; i < 10; i++ {
		verify, err := svc.VerifyAction(ctx, res.Token, "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, session.TierPremium, verify.Tier)
	}
}
