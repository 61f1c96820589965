package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"redline.app/engine/internal/suggestion"
)

// Redis is the shared cache for deployments with more than one engine
// replica. Expiry is server-side TTL; Clear bumps a process generation
// counter so old keys become unreachable immediately and age out on their
// own TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	gen    atomic.Uint64
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		prefix: "redline:suggestions",
	}
}

func (r *Redis) key(text string, opts suggestion.Options) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, r.gen.Load(), Key(text, opts))
}

func (r *Redis) Get(ctx context.Context, text string, opts suggestion.Options) ([]suggestion.Suggestion, bool, error) {
	raw, err := r.client.Get(ctx, r.key(text, opts)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var suggestions []suggestion.Suggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, false, nil
	}
	return suggestions, true, nil
}

func (r *Redis) Set(ctx context.Context, text string, opts suggestion.Options, suggestions []suggestion.Suggestion) error {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key(text, opts), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) Clear(_ context.Context) error {
	r.gen.Add(1)
	return nil
}
