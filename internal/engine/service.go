// Package engine composes the analysis pipeline: debounce, routing
// decision, cache, local rules, remote refinement, and the reconciler
// that projects results onto a live document.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"redline.app/engine/common/logger"
	"redline.app/engine/internal/analyzer"
	"redline.app/engine/internal/cache"
	"redline.app/engine/internal/decision"
	"redline.app/engine/internal/filter"
	"redline.app/engine/internal/reconcile"
	"redline.app/engine/internal/refiner"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// Result is one completed analysis pass.
type Result struct {
	// Suggestions is sorted by range start, allow-list filtered.
	Suggestions []suggestion.Suggestion
	// Text is the NFC-normalized text the ranges index into.
	Text     string
	Cached   bool
	Decision decision.Decision
}

// Service is the stateless analysis path, shared by editor sessions and
// the HTTP API. The refiner and allow-list provider are optional; a nil
// refiner means every request resolves locally.
type Service struct {
	analyzer  *analyzer.Analyzer
	refiner   *refiner.Refiner
	decider   *decision.Engine
	cache     cache.Cache
	allowList filter.AllowListProvider
	log       *slog.Logger
}

func NewService(an *analyzer.Analyzer, ref *refiner.Refiner, dec *decision.Engine, c cache.Cache, allow filter.AllowListProvider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		analyzer:  an,
		refiner:   ref,
		decider:   dec,
		cache:     c,
		allowList: allow,
		log:       log,
	}
}

// Analyze runs the full pipeline for one text. Remote failures other
// than authentication degrade to local-only results rather than erroring.
func (s *Service) Analyze(ctx context.Context, sessionID, userID, text string, opts suggestion.Options) (Result, error) {
	sc := logger.StartSpan(ctx, "engine.analyze")
	defer sc.End()
	ctx = sc.Context()

	text = textpos.Normalize(text)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID:   logger.Ptr(sessionID),
		DocumentLen: logger.Ptr(len(text)),
		Component:   "engine",
	})

	dec := s.decider.Decide(text, opts)

	if s.cache != nil {
		if hit, ok, err := s.cache.Get(ctx, text, opts); err != nil {
			s.log.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return Result{Suggestions: s.applyAllowList(ctx, userID, hit), Text: text, Cached: true, Decision: dec}, nil
		}
	}

	results := s.analyzer.Analyze(ctx, text, opts)

	if !dec.UseLocalOnly && s.refiner != nil {
		remote, err := s.refiner.Refine(ctx, sessionID, text, opts)
		switch {
		case err == nil:
			results = merge(results, remote)
		case errors.Is(err, suggestion.ErrAuth):
			return Result{}, fmt.Errorf("remote refinement: %w", err)
		default:
			// Rate limits and network failures degrade to local results.
			s.log.WarnContext(ctx, "remote refinement unavailable, serving local results",
				slog.String("error", err.Error()))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Range.Start < results[j].Range.Start
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, text, opts, results); err != nil {
			s.log.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
		}
	}

	return Result{Suggestions: s.applyAllowList(ctx, userID, results), Text: text, Cached: false, Decision: dec}, nil
}

// applyAllowList drops suggestions for words the user has accepted into
// their personal dictionary. Cached entries are stored unfiltered, so
// this runs on both the hit and miss paths. A provider failure degrades
// to no filtering.
func (s *Service) applyAllowList(ctx context.Context, userID string, suggs []suggestion.Suggestion) []suggestion.Suggestion {
	if s.allowList == nil || userID == "" {
		return suggs
	}
	words, err := s.allowList.AllowList(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "allow list unavailable, serving unfiltered suggestions",
			slog.String("error", err.Error()))
		return suggs
	}
	return filter.Apply(suggs, words)
}

// Regenerator adapts the refiner for a session's reconciler, or returns
// nil when no remote model is configured.
func (s *Service) Regenerator(sessionID string) reconcile.Regenerator {
	if s.refiner == nil {
		return nil
	}
	return &regenAdapter{refiner: s.refiner, sessionID: sessionID}
}

type regenAdapter struct {
	refiner   *refiner.Refiner
	sessionID string
}

func (a *regenAdapter) Regenerate(ctx context.Context, text string, target suggestion.Suggestion) (*suggestion.Suggestion, error) {
	return a.refiner.Regenerate(ctx, a.sessionID, text, target)
}

// merge keeps every local finding and adds remote findings that do not
// overlap one. Local rules are deterministic and have exact ranges, so
// they win collisions.
func merge(local, remote []suggestion.Suggestion) []suggestion.Suggestion {
	out := local
	for _, r := range remote {
		collides := false
		for _, l := range local {
			if r.Range.Overlaps(l.Range) {
				collides = true
				break
			}
		}
		if !collides {
			out = append(out, r)
		}
	}
	return out
}
