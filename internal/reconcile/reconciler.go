package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"redline.app/engine/common/logger"
	"redline.app/engine/internal/document"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// Regenerator produces an improved rewrite for a single suggestion, or
// nil when the model cannot do better than the current proposal.
type Regenerator interface {
	Regenerate(ctx context.Context, text string, target suggestion.Suggestion) (*suggestion.Suggestion, error)
}

// Config carries the reconciliation policy knobs.
type Config struct {
	// EditOverlapRatio is the fraction of a suggestion's range an edit
	// must cover before the suggestion id is retired outright instead of
	// being left eligible for re-materialization. Default 0.5.
	EditOverlapRatio float64
}

func DefaultConfig() Config {
	return Config{EditOverlapRatio: 0.5}
}

// Stats counts reconciler outcomes since construction.
type Stats struct {
	Materialized int
	Unwrapped    int
	Applied      int
	Dismissed    int
	Invalidated  int
	Regenerated  int
}

type tracked struct {
	sugg   suggestion.Suggestion
	region suggestion.Range
}

// Reconciler owns the mapping between the suggestion set and the
// document's marks. Every mutation of either goes through Apply, under
// one lock, so marks and tracked suggestions can never drift apart.
type Reconciler struct {
	mu      sync.Mutex
	surface document.Surface
	editor  document.Editor
	cfg     Config
	regen   Regenerator
	log     *slog.Logger

	active        map[string]*tracked
	dismissed     map[string]struct{}
	retired       map[string]struct{}
	autoAttempted map[string]struct{}
	applying      bool
	stats         Stats
}

func New(surface document.Surface, editor document.Editor, regen Regenerator, cfg Config, log *slog.Logger) *Reconciler {
	if cfg.EditOverlapRatio <= 0 {
		cfg.EditOverlapRatio = DefaultConfig().EditOverlapRatio
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		surface:       surface,
		editor:        editor,
		cfg:           cfg,
		regen:         regen,
		log:           log,
		active:        make(map[string]*tracked),
		dismissed:     make(map[string]struct{}),
		retired:       make(map[string]struct{}),
		autoAttempted: make(map[string]struct{}),
	}
}

// Apply runs one event through the state machine.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	// Regeneration manages its own locking: the remote call must not
	// hold the lock while edits queue behind it.
	switch e := ev.(type) {
	case UserRegenerate:
		return r.regenerate(ctx, e.ID, false)
	case AutoRegenerate:
		return r.regenerate(ctx, e.ID, true)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case SuggestionsUpdated:
		return r.suggestionsUpdated(ctx, e.Suggestions)
	case UserApplied:
		return r.userApplied(ctx, e.ID)
	case UserDismissed:
		return r.userDismissed(ctx, e.ID)
	case DocumentEdited:
		return r.documentEdited(ctx, e)
	default:
		return fmt.Errorf("unknown event %T", ev)
	}
}

// Active returns the currently materialized suggestions with their mark
// regions, sorted by region start.
func (r *Reconciler) Active() []suggestion.EditorSuggestion {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]suggestion.EditorSuggestion, 0, len(r.active))
	for id, t := range r.active {
		out = append(out, suggestion.EditorSuggestion{
			Suggestion: t.sugg,
			MarkID:     id,
			Region:     t.region,
			IsVisible:  true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region.Start < out[j].Region.Start })
	return out
}

// Text returns the current document text under the reconciler's lock.
func (r *Reconciler) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return document.Text(r.surface)
}

func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// IsApplying reports whether the reconciler is mid-mutation; the engine
// uses it to distinguish self-inflicted document changes from user edits.
func (r *Reconciler) IsApplying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applying
}

func (r *Reconciler) suggestionsUpdated(ctx context.Context, suggs []suggestion.Suggestion) error {
	incoming := make([]tracked, 0, len(suggs))
	text := document.Text(r.surface)
	for _, s := range suggs {
		if _, ok := r.dismissed[s.ID]; ok {
			continue
		}
		if _, ok := r.retired[s.ID]; ok {
			continue
		}
		incoming = append(incoming, tracked{sugg: s, region: r.regionFor(text, s)})
	}

	// Sort by region start and drop later entries whose widened region
	// overlaps an earlier one. First wins; the highlight layer never has
	// to render nested marks.
	sort.SliceStable(incoming, func(i, j int) bool {
		return incoming[i].region.Start < incoming[j].region.Start
	})
	kept := incoming[:0]
	for _, t := range incoming {
		if n := len(kept); n > 0 && t.region.Overlaps(kept[n-1].region) {
			continue
		}
		kept = append(kept, t)
	}

	newIDs := make(map[string]struct{}, len(kept))
	for _, t := range kept {
		newIDs[t.sugg.ID] = struct{}{}
	}

	// Unwrap only what disappeared; ids present in both sets are left
	// untouched so an unchanged set is a zero-op reconciliation.
	for id := range r.active {
		if _, ok := newIDs[id]; !ok {
			r.unwrap(ctx, id)
			r.stats.Unwrapped++
		}
	}

	pm := textpos.Build(text)
	for _, t := range kept {
		if _, ok := r.active[t.sugg.ID]; ok {
			continue
		}
		if err := r.materialize(ctx, pm, t); err != nil {
			r.log.WarnContext(ctx, "skipping stale suggestion",
				slog.String("suggestion_id", t.sugg.ID), slog.String("reason", err.Error()))
		}
	}
	return nil
}

// regionFor picks the mark region for a suggestion: the flagged range
// for word-level types, the enclosing sentence for passive and style.
func (r *Reconciler) regionFor(text string, s suggestion.Suggestion) suggestion.Range {
	switch s.Type {
	case suggestion.TypePassive, suggestion.TypeStyle:
		return widenToSentence(text, s.Range)
	default:
		return s.Range
	}
}

func (r *Reconciler) materialize(ctx context.Context, pm *textpos.Map, t tracked) error {
	cur, err := pm.Slice(t.sugg.Range.Start, t.sugg.Range.End)
	if err != nil {
		return fmt.Errorf("range out of bounds: %w", err)
	}
	if cur != t.sugg.Original {
		return fmt.Errorf("text at [%d,%d) is %q, expected %q",
			t.sugg.Range.Start, t.sugg.Range.End, logger.Truncate(cur, 40), logger.Truncate(t.sugg.Original, 40))
	}

	r.applying = true
	defer func() { r.applying = false }()

	if err := r.surface.SplitAt(t.region.Start); err != nil {
		return fmt.Errorf("splitting at %d: %w", t.region.Start, err)
	}
	if err := r.surface.SplitAt(t.region.End); err != nil {
		return fmt.Errorf("splitting at %d: %w", t.region.End, err)
	}
	if err := r.surface.WrapRange(t.region.Start, t.region.End, t.sugg.ID, t.sugg.Type); err != nil {
		return fmt.Errorf("wrapping [%d,%d): %w", t.region.Start, t.region.End, err)
	}
	cp := t
	r.active[t.sugg.ID] = &cp
	r.stats.Materialized++
	return nil
}

func (r *Reconciler) unwrap(ctx context.Context, id string) {
	if _, ok := r.active[id]; !ok {
		return
	}
	prev := r.applying
	r.applying = true
	if err := r.surface.Unwrap(id); err != nil {
		r.log.WarnContext(ctx, "unwrap failed", slog.String("mark_id", id), slog.String("error", err.Error()))
	}
	r.applying = prev
	delete(r.active, id)
}

func (r *Reconciler) userApplied(ctx context.Context, id string) error {
	t, ok := r.active[id]
	if !ok {
		return fmt.Errorf("suggestion %s is not materialized", id)
	}

	text := document.Text(r.surface)
	pm := textpos.Build(text)
	match, err := r.locate(pm, text, t.sugg)
	if err != nil {
		r.unwrap(ctx, id)
		r.retired[id] = struct{}{}
		r.stats.Invalidated++
		return err
	}

	r.applying = true
	defer func() { r.applying = false }()

	r.unwrap(ctx, id)
	if _, err := r.editor.ReplaceRange(match.Start, match.End, t.sugg.Proposed); err != nil {
		return fmt.Errorf("applying suggestion %s: %w", id, err)
	}
	r.shiftAfter(match, t.sugg.Proposed)
	r.stats.Applied++
	return nil
}

// locate finds where a suggestion's original text currently sits, in
// three tiers: the recorded range, else the occurrence nearest to it,
// else the suggestion is stale.
func (r *Reconciler) locate(pm *textpos.Map, text string, s suggestion.Suggestion) (suggestion.Range, error) {
	if cur, err := pm.Slice(s.Range.Start, s.Range.End); err == nil && cur == s.Original {
		return s.Range, nil
	}
	if s.Original == "" {
		return suggestion.Range{}, &suggestion.StaleError{ID: s.ID}
	}

	best := suggestion.Range{Start: -1}
	bestDist := -1
	for off := 0; ; {
		i := strings.Index(text[off:], s.Original)
		if i < 0 {
			break
		}
		byteStart := off + i
		cuStart, err := pm.ByteToCodeUnit(byteStart)
		if err == nil {
			cand := suggestion.Range{Start: cuStart, End: cuStart + cuLen(s.Original)}
			d := cand.Start - s.Range.Start
			if d < 0 {
				d = -d
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = cand, d
			}
		}
		off = byteStart + len(s.Original)
	}
	if best.Start < 0 {
		return suggestion.Range{}, &suggestion.StaleError{ID: s.ID}
	}
	return best, nil
}

func cuLen(s string) int {
	return textpos.CodeUnitLen(s)
}

// shiftAfter adjusts tracked regions that sit entirely after a splice so
// later applies start from accurate offsets.
func (r *Reconciler) shiftAfter(replaced suggestion.Range, replacement string) {
	delta := cuLen(replacement) - replaced.Len()
	if delta == 0 {
		return
	}
	for _, t := range r.active {
		if t.region.Start >= replaced.End {
			t.region.Start += delta
			t.region.End += delta
			t.sugg.Range.Start += delta
			t.sugg.Range.End += delta
		}
	}
}

func (r *Reconciler) userDismissed(ctx context.Context, id string) error {
	r.dismissed[id] = struct{}{}
	if _, ok := r.active[id]; ok {
		r.unwrap(ctx, id)
	}
	r.stats.Dismissed++
	return nil
}

// regenerate swaps one suggestion for a model-improved rewrite. The
// remote call runs with the lock released so edits and analyses are
// never stuck behind a model round-trip; the target is re-validated
// before the swap in case it resolved while the model worked.
func (r *Reconciler) regenerate(ctx context.Context, id string, auto bool) error {
	r.mu.Lock()
	t, ok := r.active[id]
	if !ok {
		r.mu.Unlock()
		if auto {
			return nil
		}
		return fmt.Errorf("suggestion %s is not materialized", id)
	}
	if r.regen == nil {
		r.mu.Unlock()
		return fmt.Errorf("no regenerator configured")
	}
	if !t.sugg.CanRegenerate {
		r.mu.Unlock()
		return fmt.Errorf("suggestion %s cannot be regenerated", id)
	}
	if auto {
		if _, done := r.autoAttempted[id]; done {
			r.mu.Unlock()
			return nil
		}
		r.autoAttempted[id] = struct{}{}
	}
	target := t.sugg
	text := document.Text(r.surface)
	r.mu.Unlock()

	improved, err := r.regen.Regenerate(ctx, text, target)
	if err != nil {
		// The existing suggestion stays materialized untouched.
		return fmt.Errorf("regenerating %s: %w", id, err)
	}
	if improved == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.active[id]
	if !ok {
		// Applied, dismissed, or invalidated while the model worked;
		// the rewrite is obsolete.
		return nil
	}

	cur := document.Text(r.surface)
	pm := textpos.Build(cur)
	nt := tracked{sugg: *improved, region: r.regionFor(cur, *improved)}

	// Validate the rewrite before touching the old mark so a bad one
	// cannot destroy the suggestion it was meant to improve.
	if got, err := pm.Slice(nt.sugg.Range.Start, nt.sugg.Range.End); err != nil || got != nt.sugg.Original {
		return fmt.Errorf("regenerated %s is stale against the document at [%d,%d)",
			improved.ID, nt.sugg.Range.Start, nt.sugg.Range.End)
	}

	prev := *old
	r.unwrap(ctx, id)
	if err := r.materialize(ctx, pm, nt); err != nil {
		// Put the original mark back; the swap is all-or-nothing.
		if rerr := r.materialize(ctx, pm, prev); rerr != nil {
			r.log.WarnContext(ctx, "failed to restore suggestion after regeneration",
				slog.String("suggestion_id", id), slog.String("error", rerr.Error()))
		}
		return fmt.Errorf("materializing regenerated %s: %w", improved.ID, err)
	}
	r.stats.Regenerated++
	return nil
}

func (r *Reconciler) documentEdited(ctx context.Context, e DocumentEdited) error {
	if r.applying {
		return nil
	}
	removed, err := r.editor.ReplaceRange(e.Edited.Start, e.Edited.End, e.Replacement)
	if err != nil {
		return fmt.Errorf("editing [%d,%d): %w", e.Edited.Start, e.Edited.End, err)
	}
	delta := cuLen(e.Replacement) - e.Edited.Len()

	for _, id := range removed {
		t, ok := r.active[id]
		if !ok {
			continue
		}
		// An edit covering most of the flagged text retires the id for
		// good; a glancing overlap leaves it eligible if re-analysis
		// produces it again.
		if overlapRatio(e.Edited, t.sugg.Range) > r.cfg.EditOverlapRatio {
			r.retired[id] = struct{}{}
		}
		delete(r.active, id)
		r.stats.Invalidated++
	}

	for _, t := range r.active {
		if t.region.Start >= e.Edited.End {
			t.region.Start += delta
			t.region.End += delta
			t.sugg.Range.Start += delta
			t.sugg.Range.End += delta
		}
	}
	return nil
}

func overlapRatio(edit, target suggestion.Range) float64 {
	if target.Len() == 0 {
		return 1
	}
	lo := max(edit.Start, target.Start)
	hi := min(edit.End, target.End)
	if hi <= lo {
		return 0
	}
	return float64(hi-lo) / float64(target.Len())
}
