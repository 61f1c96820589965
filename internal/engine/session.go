package engine

import (
	"context"
	"log/slog"
	"time"

	"redline.app/engine/common/logger"
	"redline.app/engine/internal/debounce"
	"redline.app/engine/internal/document"
	"redline.app/engine/internal/reconcile"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

// SessionConfig tunes one editor session's update loop.
type SessionConfig struct {
	Debounce debounce.Config
	// AutoRegenDelay is how long a low-confidence suggestion sits before
	// the engine asks the model for a better rewrite. Zero disables.
	AutoRegenDelay time.Duration
	// AutoRegenConfidence is the threshold below which regeneration is
	// attempted, once per suggestion id.
	AutoRegenConfidence float64
}

func DefaultSessionConfig(deb debounce.Config) SessionConfig {
	return SessionConfig{
		Debounce:            deb,
		AutoRegenDelay:      2 * time.Second,
		AutoRegenConfidence: 0.7,
	}
}

// Session binds one live document to the analysis pipeline. Edits
// debounce into analysis passes; results reconcile onto the document's
// marks. All suggestion-set writes funnel through the reconciler, so a
// stale analysis can never clobber a newer one.
type Session struct {
	ID     string
	userID string

	svc  *Service
	opts suggestion.Options
	cfg  SessionConfig
	rec  *reconcile.Reconciler
	deb  *debounce.Controller
	log  *slog.Logger
}

func NewSession(id, userID, initialText string, svc *Service, opts suggestion.Options, cfg SessionConfig, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	tree := document.New(textpos.Normalize(initialText))
	s := &Session{
		ID:     id,
		userID: userID,
		svc:    svc,
		opts:   opts,
		cfg:    cfg,
		rec:    reconcile.New(tree, tree, svc.Regenerator(id), reconcile.DefaultConfig(), log),
		log:    log,
	}
	s.deb = debounce.New(cfg.Debounce, s.runAnalysis)
	return s
}

// HandleEdit splices a user edit into the document and schedules
// re-analysis. Marks overlapped by the edit are invalidated immediately;
// the debounced pass restores whatever still holds.
func (s *Session) HandleEdit(ctx context.Context, edited suggestion.Range, replacement string) error {
	if err := s.rec.Apply(ctx, reconcile.DocumentEdited{Edited: edited, Replacement: replacement}); err != nil {
		return err
	}
	s.deb.Trigger(ctx, s.rec.Text())
	return nil
}

// Apply accepts a suggestion and re-analyzes the changed text.
func (s *Session) Apply(ctx context.Context, id string) error {
	if err := s.rec.Apply(ctx, reconcile.UserApplied{ID: id}); err != nil {
		return err
	}
	s.deb.Trigger(ctx, s.rec.Text())
	return nil
}

func (s *Session) Dismiss(ctx context.Context, id string) error {
	return s.rec.Apply(ctx, reconcile.UserDismissed{ID: id})
}

func (s *Session) Regenerate(ctx context.Context, id string) error {
	return s.rec.Apply(ctx, reconcile.UserRegenerate{ID: id})
}

// Flush runs any pending analysis now instead of waiting out the
// debounce window.
func (s *Session) Flush() {
	s.deb.Flush()
}

// Close cancels pending work. In-flight analyses are dropped by the
// request-id check when they return.
func (s *Session) Close() {
	s.deb.Reset()
}

func (s *Session) Text() string {
	return s.rec.Text()
}

func (s *Session) Suggestions() []suggestion.EditorSuggestion {
	return s.rec.Active()
}

func (s *Session) Stats() reconcile.Stats {
	return s.rec.Stats()
}

func (s *Session) runAnalysis(ctx context.Context, requestID uint64, text string) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(s.ID),
		RequestID: logger.Ptr(requestID),
	})

	res, err := s.svc.Analyze(ctx, s.ID, s.userID, text, s.opts)
	if err != nil {
		s.log.ErrorContext(ctx, "analysis failed", slog.String("error", err.Error()))
		return
	}
	if !s.deb.Accept(requestID) {
		s.log.DebugContext(ctx, "dropping stale analysis result")
		return
	}
	if s.rec.Text() != res.Text {
		// The document moved on while analysis ran; the pending trigger
		// will produce a fresh pass.
		return
	}
	if err := s.rec.Apply(ctx, reconcile.SuggestionsUpdated{Suggestions: res.Suggestions}); err != nil {
		s.log.ErrorContext(ctx, "reconciliation failed", slog.String("error", err.Error()))
		return
	}
	s.scheduleAutoRegen(res.Suggestions)
}

// scheduleAutoRegen queues one regeneration attempt for each fresh
// low-confidence rewrite candidate. The reconciler enforces the
// once-per-id limit and ignores ids that were applied or dismissed in
// the meantime.
func (s *Session) scheduleAutoRegen(suggs []suggestion.Suggestion) {
	if s.cfg.AutoRegenDelay <= 0 {
		return
	}
	for _, sg := range suggs {
		if !sg.CanRegenerate || sg.Confidence >= s.cfg.AutoRegenConfidence {
			continue
		}
		id := sg.ID
		time.AfterFunc(s.cfg.AutoRegenDelay, func() {
			ctx := logger.WithLogFields(context.Background(), logger.LogFields{
				SessionID:    logger.Ptr(s.ID),
				SuggestionID: logger.Ptr(id),
			})
			if err := s.rec.Apply(ctx, reconcile.AutoRegenerate{ID: id}); err != nil {
				s.log.WarnContext(ctx, "auto regeneration failed", slog.String("error", err.Error()))
			}
		})
	}
}
