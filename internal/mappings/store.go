// Package mappings holds the ephemeral scramble mappings between the protect
// and restore halves of a round trip. A mapping is the highest-risk shared
// resource in the engine: it is keyed by an opaque token, bound to exactly one
// owning session, expires on a TTL, and is deleted as soon as the round trip
// completes. It is never written to durable storage.
package mappings

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the token is unknown or its TTL has expired.
	ErrNotFound = errors.New("mappings: token not found or expired")
	// ErrNotOwner means the token exists but belongs to another session.
	ErrNotOwner = errors.New("mappings: token not owned by session")
)

// Store saves and redeems session-scoped scramble mappings.
type Store interface {
	// Save stores a mapping for the owning session and returns the opaque
	// token that redeems it.
	Save(ctx context.Context, sessionID string, mapping map[string]string) (string, error)
	// Redeem returns the mapping for a token, verifying session ownership.
	Redeem(ctx context.Context, sessionID, token string) (map[string]string, error)
	// Delete discards a mapping once the round trip completes.
	Delete(ctx context.Context, sessionID, token string) error
	Close() error
}

// Config configures a mapping store.
type Config struct {
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}
