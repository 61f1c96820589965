// Package cache stores analysis results keyed by content and options so
// unchanged text is never analyzed twice within the TTL window.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// DefaultTTL applies when a cache is constructed with a zero TTL.
const DefaultTTL = 5 * time.Minute

// Cache is the content+options addressed suggestion store.
type Cache interface {
	// Get returns the cached suggestions for (text, opts), or ok=false on
	// a miss or an expired entry.
	Get(ctx context.Context, text string, opts suggestion.Options) ([]suggestion.Suggestion, bool, error)
	Set(ctx context.Context, text string, opts suggestion.Options, suggestions []suggestion.Suggestion) error
	// Clear drops the whole store. Amortized O(1).
	Clear(ctx context.Context) error
}

// Key derives the fixed-length cache key for a text/options pair. The text
// is NFC-normalized only; no trimming or case folding, both of which
// would make distinct documents collide. Every option that can change the
// suggestion set is folded into the hash, including priority and tier:
// they steer routing, so a quality request must never be served a cached
// local-only result from a cheaper pass.
func Key(text string, opts suggestion.Options) string {
	h := sha256.New()
	h.Write([]byte(textpos.Normalize(text)))
	fmt.Fprintf(h, "|lang=%s|sp=%t|gr=%t|st=%t|pr=%s|tier=%s",
		opts.Language, opts.IncludeSpelling, opts.IncludeGrammar, opts.IncludeStyle,
		opts.Priority, opts.Tier)
	return hex.EncodeToString(h.Sum(nil))
}
