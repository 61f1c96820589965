// Package filter removes suggestions the user has personally allow-listed
// before any mark is materialized.
package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"redline.app/engine/internal/suggestion"
)

// Apply removes suggestions whose normalized flagged word appears in the
// allow list. Normalization: curly quotes to straight, possessive
// suffixes stripped, case folded. The allow list itself is normalized the
// same way so storage format does not matter.
func Apply(suggestions []suggestion.Suggestion, allowList []string) []suggestion.Suggestion {
	if len(allowList) == 0 || len(suggestions) == 0 {
		return suggestions
	}

	allowed := make(map[string]bool, len(allowList))
	for _, w := range allowList {
		allowed[NormalizeWord(w)] = true
	}

	out := make([]suggestion.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if allowed[NormalizeWord(s.Original)] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NormalizeWord reduces a flagged word to its allow-list form.
func NormalizeWord(w string) string {
	w = strings.TrimSpace(w)
	w = strings.ReplaceAll(w, "’", "'")
	w = strings.ReplaceAll(w, "‘", "'")
	w = strings.ToLower(w)
	w = strings.TrimSuffix(w, "'s")
	w = strings.TrimSuffix(w, "'")
	return w
}

// AllowListProvider supplies the per-user allow list. The engine treats
// it as an external collaborator: failures degrade to no filtering.
type AllowListProvider interface {
	AllowList(ctx context.Context, userID string) ([]string, error)
}

// Static is a fixed allow list, used by the CLI and in tests.
type Static []string

func (s Static) AllowList(context.Context, string) ([]string, error) {
	return s, nil
}

// RedisProvider reads the allow list from a per-user redis set.
type RedisProvider struct {
	client *redis.Client
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) key(userID string) string {
	return "redline:allowlist:" + userID
}

func (p *RedisProvider) AllowList(ctx context.Context, userID string) ([]string, error) {
	words, err := p.client.SMembers(ctx, p.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading allow list: %w", err)
	}
	return words, nil
}

// Add puts a word on the user's allow list.
func (p *RedisProvider) Add(ctx context.Context, userID, word string) error {
	if err := p.client.SAdd(ctx, p.key(userID), NormalizeWord(word)).Err(); err != nil {
		return fmt.Errorf("adding to allow list: %w", err)
	}
	return nil
}
