package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"smartfile/internal/store"
)

const keyPrefix = "license:"

// keyFormat matches the wire format of a license key: PREM- followed by
// three dash-separated blocks of four uppercase alphanumerics.
var keyFormat = regexp.MustCompile(`^PREM-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Record is the persisted license record. ExpiresAt is epoch
// milliseconds, matching the stored JSON shape consumed by the client.
type Record struct {
	Key        string   `json:"-"`
	ExpiresAt  int64    `json:"expiresAt"`
	Devices    []string `json:"devices"`
	MaxDevices int      `json:"maxDevices"`
}

// Expired reports whether the record is inert at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return now.UnixMilli() >= r.ExpiresAt
}

// Registry resolves license keys to records and arbitrates the
// device lock.
type Registry struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

type RegistryOption func(*Registry)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(s store.Store, logger *slog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  s,
		logger: logger.With(slog.String("component", "license_registry")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidKeyFormat reports whether key matches the license key format.
func ValidKeyFormat(key string) bool {
	return keyFormat.MatchString(key)
}

// Validate resolves key and arbitrates the device lock for fingerprint.
// Malformed keys fail before any store access. A fingerprint already in
// the device set authorizes without mutation; a new fingerprint is
// appended while a slot remains.
//
// The device append is a naive read-modify-write: two concurrent
// validations from new devices can both pass the capacity check when a
// single slot remains. The overshoot is bounded by the number of
// concurrent requests and is accepted in lieu of a store-level
// conditional write.
func (r *Registry) Validate(ctx context.Context, key, fingerprint string) (*Record, error) {
	if !ValidKeyFormat(key) {
		return nil, ErrInvalidFormat
	}

	rec, err := r.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if rec.Expired(r.now()) {
		r.logger.WarnContext(ctx, "validation rejected",
			slog.String("reason", "expired"),
			slog.Int64("expires_at", rec.ExpiresAt))
		return nil, ErrExpired
	}

	if slices.Contains(rec.Devices, fingerprint) {
		return rec, nil
	}

	if len(rec.Devices) >= rec.MaxDevices {
		r.logger.WarnContext(ctx, "validation rejected",
			slog.String("reason", "device_limit"),
			slog.Int("devices", len(rec.Devices)),
			slog.Int("max_devices", rec.MaxDevices))
		return nil, ErrDeviceLimit
	}

	rec.Devices = append(rec.Devices, fingerprint)
	if err := r.put(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist device registration: %w", err)
	}

	r.logger.InfoContext(ctx, "device registered",
		slog.Int("devices", len(rec.Devices)),
		slog.Int("max_devices", rec.MaxDevices))
	return rec, nil
}

// Lookup fetches a record without touching the device set.
func (r *Registry) Lookup(ctx context.Context, key string) (*Record, error) {
	raw, err := r.store.Get(ctx, keyPrefix+key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch license record: %w", err)
	}

	rec := &Record{Key: key}
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, fmt.Errorf("decode license record: %w", err)
	}
	if rec.Devices == nil {
		rec.Devices = []string{}
	}
	return rec, nil
}

// Provision writes a fresh record. It belongs to the out-of-band
// lifecycle (licensectl); the request path never calls it.
func (r *Registry) Provision(ctx context.Context, rec *Record) error {
	if !ValidKeyFormat(rec.Key) {
		return ErrInvalidFormat
	}
	if rec.MaxDevices <= 0 {
		return fmt.Errorf("maxDevices must be positive, got %d", rec.MaxDevices)
	}
	if rec.Devices == nil {
		rec.Devices = []string{}
	}
	return r.put(ctx, rec)
}

// Revoke deletes a record. Out-of-band lifecycle only.
func (r *Registry) Revoke(ctx context.Context, key string) error {
	return r.store.Delete(ctx, keyPrefix+key)
}

// Keys lists all provisioned license keys.
func (r *Registry) Keys(ctx context.Context) ([]string, error) {
	stored, err := r.store.ListKeys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list license records: %w", err)
	}
	keys := make([]string, 0, len(stored))
	for _, k := range stored {
		keys = append(keys, k[len(keyPrefix):])
	}
	return keys, nil
}

func (r *Registry) put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// License records never expire at the store level; an expired
	// license is inert but kept for renewal.
	return r.store.Put(ctx, keyPrefix+rec.Key, string(data), 0)
}
