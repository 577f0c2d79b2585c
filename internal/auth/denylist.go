package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids until the token would have expired.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryDenylist is process-local; revocations are lost on restart.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	_ = ctx
	if jti == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, exp := range d.revoked {
		if now.After(exp) {
			delete(d.revoked, id)
		}
	}
	d.revoked[jti] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_ = ctx
	if jti == "" {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(d.revoked, jti)
		return false, nil
	}
	return true, nil
}

// RedisDenylist shares revocations across processes; keys expire with the token.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "vishai:revoked:"}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return nil
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, d.prefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	err := d.client.Get(ctx, d.prefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis lookup token: %w", err)
	}
}
