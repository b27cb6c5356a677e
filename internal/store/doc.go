// Package store defines the key-value contract every stateful component
// of the entitlement service persists through, plus a Redis-backed
// implementation for production and an in-memory implementation for
// tests and local development.
//
// The store is the single source of truth: handlers never cache records
// across requests, and TTL-based expiry in the store is the only
// time-driven mechanism in the system. Callers must treat a missing key
// as ambiguous between "never existed" and "expired".
package store
