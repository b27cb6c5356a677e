// licensectl is the out-of-band provisioning tool for license records.
// The entitlement core only ever reads licenses and appends devices;
// creating, inspecting and revoking them happens here.
//
// Usage:
//
//	licensectl issue [-days 365] [-devices 3] [-key PREM-...]
//	licensectl show -key PREM-1234-ABCD-EFGH
//	licensectl list
//	licensectl revoke -key PREM-1234-ABCD-EFGH
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"smartfile/internal/config"
	"smartfile/internal/infrastructure"
	"smartfile/internal/license"
	"smartfile/internal/store"
)

const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		fmt.Fprintln(os.Stderr, "licensectl requires a redis store; set SMARTFILE_REDIS_ADDR")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	logger := infrastructure.NewLogger(config.LoggingConfig{Level: "warn", Format: "text"})
	registry := license.NewRegistry(store.NewRedisStore(rdb, store.WithPrefix(cfg.Redis.KeyPrefix)), logger)

	ctx := context.Background()
	if err := run(ctx, registry, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, registry *license.Registry, command string, args []string) error {
	switch command {
	case "issue":
		return issue(ctx, registry, args)
	case "show":
		return show(ctx, registry, args)
	case "list":
		return list(ctx, registry)
	case "revoke":
		return revoke(ctx, registry, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: licensectl <command> [flags]

commands:
  issue   [-days 365] [-devices 3] [-key PREM-...]   create a license
  show    -key PREM-...                              print one license
  list                                               print all keys
  revoke  -key PREM-...                              delete a license`)
}

func issue(ctx context.Context, registry *license.Registry, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	days := fs.Int("days", 365, "validity in days")
	devices := fs.Int("devices", 3, "maximum concurrent devices")
	key := fs.String("key", "", "explicit license key (generated when empty)")
	fs.Parse(args)

	if *key == "" {
		generated, err := generateKey()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		*key = generated
	}

	rec := &license.Record{
		Key:        *key,
		ExpiresAt:  time.Now().AddDate(0, 0, *days).UnixMilli(),
		Devices:    []string{},
		MaxDevices: *devices,
	}
	if err := registry.Provision(ctx, rec); err != nil {
		return fmt.Errorf("provision license: %w", err)
	}

	fmt.Printf("issued %s (expires %s, max %d devices)\n",
		rec.Key, time.UnixMilli(rec.ExpiresAt).Format("2006-01-02"), rec.MaxDevices)
	return nil
}

func show(ctx context.Context, registry *license.Registry, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	key := fs.String("key", "", "license key")
	fs.Parse(args)
	if *key == "" {
		return fmt.Errorf("show requires -key")
	}

	rec, err := registry.Lookup(ctx, *key)
	if err != nil {
		return err
	}

	expiry := time.UnixMilli(rec.ExpiresAt)
	status := "active"
	if rec.Expired(time.Now()) {
		status = "expired"
	}
	fmt.Printf("key:        %s\n", rec.Key)
	fmt.Printf("status:     %s\n", status)
	fmt.Printf("expires:    %s\n", expiry.Format(time.RFC3339))
	fmt.Printf("devices:    %d/%d\n", len(rec.Devices), rec.MaxDevices)
	for _, d := range rec.Devices {
		fmt.Printf("  - %s\n", d)
	}
	return nil
}

func list(ctx context.Context, registry *license.Registry) error {
	keys, err := registry.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func revoke(ctx context.Context, registry *license.Registry, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	key := fs.String("key", "", "license key")
	fs.Parse(args)
	if *key == "" {
		return fmt.Errorf("revoke requires -key")
	}

	if err := registry.Revoke(ctx, *key); err != nil {
		return fmt.Errorf("revoke license: %w", err)
	}
	fmt.Printf("revoked %s\n", *key)
	return nil
}

// generateKey builds a PREM-XXXX-XXXX-XXXX key from an unambiguous
// alphabet (no 0/O, 1/I).
func generateKey() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	key := "PREM"
	for i, b := range buf {
		if i%4 == 0 {
			key += "-"
		}
		key += string(keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return key, nil
}
