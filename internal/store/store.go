// Package store persists the storefront's client-side records (session token,
// session user and cart) as text values under fixed keys.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/niloyhakimai/medistore-client/pkg/logger"
)

// Fixed record keys
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyCart  = "cart"
)

// Store is a durable text key-value store
type Store interface {
	// Get returns the stored text and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are ignored
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON decodes the value under key into v.
// Missing keys, backend failures and text that does not parse as the expected
// structure all report false: stale or corrupted entries behave like absent ones.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) bool {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		logger.Get().Warn("Failed to read stored record", "key", key, "error", err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.Get().Debug("Ignoring unparsable stored record", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// Prefixed namespaces every key of an underlying store, so several profiles
// can share one redis or postgres backend
type Prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix wraps s; an empty prefix returns s unchanged
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &Prefixed{inner: s, prefix: prefix}
}

func (p *Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *Prefixed) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = p.prefix + k
	}
	return p.inner.Delete(ctx, prefixed...)
}
