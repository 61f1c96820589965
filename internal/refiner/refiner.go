// Package refiner delegates analysis to the remote LLM service. It is
// the expensive half of hybrid processing: the decision engine gates
// whole-document passes, and the reconciler invokes single-suggestion
// regeneration.
//
// Unlike the local analyzer, this layer never swallows errors. Failures
// are classified (auth, rate limit, generic) and surfaced typed so the
// caller can present an actionable state.
package refiner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redline.app/engine/common/id"
	"redline.app/engine/common/llm"
	"redline.app/engine/common/logger"
	"redline.app/engine/internal/store"
	"redline.app/engine/internal/suggestion"
	"redline.app/engine/internal/textpos"
)

const systemPrompt = `You are a precise writing assistant. You receive a document and return
concrete editing suggestions. Ranges are UTF-16 code-unit offsets into the exact text you
were given, half-open [start, end). The "original" field must be the verbatim text at that
range. Only flag genuine issues; return an empty list rather than inventing problems.`

type refineResponse struct {
	Suggestions []refineEntry `json:"suggestions" jsonschema_description:"Editing suggestions for the document"`
}

type refineEntry struct {
	Start       int     `json:"start" jsonschema_description:"Code-unit offset where the flagged text begins"`
	End         int     `json:"end" jsonschema_description:"Code-unit offset where the flagged text ends (exclusive)"`
	Type        string  `json:"type" jsonschema:"enum=grammar,enum=spelling,enum=punctuation,enum=style,enum=passive"`
	Original    string  `json:"original"`
	Proposed    string  `json:"proposed"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence" jsonschema_description:"0 to 1"`
}

type regenerateResponse struct {
	Improved    bool    `json:"improved" jsonschema_description:"False when no better rewrite exists"`
	Proposed    string  `json:"proposed"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

// Refiner calls the remote model. A nil recorder disables usage
// bookkeeping; everything else behaves identically.
type Refiner struct {
	client   llm.Client
	recorder store.RefinementStore
	newID    func() string
}

func New(client llm.Client, recorder store.RefinementStore) *Refiner {
	return &Refiner{client: client, recorder: recorder, newID: id.String}
}

// Refine runs a whole-document pass. Returns (nil, nil) when the model
// finds nothing to improve. Idempotent per input: temperature is pinned
// to zero.
func (r *Refiner) Refine(ctx context.Context, sessionID, text string, opts suggestion.Options) ([]suggestion.Suggestion, error) {
	sc := logger.StartSpan(ctx, "refiner.refine")
	defer sc.End()
	ctx = sc.Context()

	normalized := textpos.Normalize(text)

	userPrompt := fmt.Sprintf("Language: %s\nChecks: spelling=%t grammar=%t style=%t\n\nDocument:\n%s",
		opts.Language, opts.IncludeSpelling, opts.IncludeGrammar, opts.IncludeStyle, normalized)

	var resp refineResponse
	start := time.Now()
	usage, err := r.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "editing_suggestions",
		Schema:       llm.GenerateSchema[refineResponse](),
		MaxTokens:    2000,
		Temperature:  llm.Temp(0),
	}, &resp)
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		sc.RecordError(err)
		r.record(ctx, sessionID, "", "refine", latency, nil, "error")
		return nil, classify(err)
	}

	pm := textpos.Build(normalized)
	raws := make([]suggestion.Raw, 0, len(resp.Suggestions))
	for _, e := range resp.Suggestions {
		rng := suggestion.Range{Start: e.Start, End: e.End}
		raws = append(raws, suggestion.Raw{
			Range:       &rng,
			Type:        e.Type,
			Original:    e.Original,
			Proposed:    e.Proposed,
			Explanation: e.Explanation,
			Confidence:  e.Confidence,
		})
	}
	suggestions := suggestion.Sanitize(ctx, raws, pm, r.newID)

	outcome := "suggestions"
	if len(suggestions) == 0 {
		outcome = "no_improvement"
	}
	r.record(ctx, sessionID, "", "refine", latency, usage, outcome)

	if len(suggestions) == 0 {
		return nil, nil
	}
	return suggestions, nil
}

// Regenerate asks for a better rewrite of a single suggestion using its
// surrounding context. Returns (nil, nil) when the model reports no
// improvement over the existing proposal.
func (r *Refiner) Regenerate(ctx context.Context, sessionID, text string, target suggestion.Suggestion) (*suggestion.Suggestion, error) {
	sc := logger.StartSpan(ctx, "refiner.regenerate")
	defer sc.End()
	ctx = sc.Context()

	normalized := textpos.Normalize(text)

	userPrompt := fmt.Sprintf(
		"A %s issue was flagged.\nFlagged text: %q\nCurrent proposal: %q\nExplanation so far: %s\n\nFull document for context:\n%s\n\nPropose a better replacement for the flagged text only.",
		target.Type, target.Original, target.Proposed, target.Explanation, normalized)

	var resp regenerateResponse
	start := time.Now()
	usage, err := r.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "regenerated_suggestion",
		Schema:       llm.GenerateSchema[regenerateResponse](),
		MaxTokens:    500,
		Temperature:  llm.Temp(0),
	}, &resp)
	latency := int(time.Since(start).Milliseconds())

	if err != nil {
		sc.RecordError(err)
		r.record(ctx, sessionID, target.ID, "regenerate", latency, nil, "error")
		return nil, classify(err)
	}

	if !resp.Improved || resp.Proposed == "" || resp.Proposed == target.Proposed {
		r.record(ctx, sessionID, target.ID, "regenerate", latency, usage, "no_improvement")
		return nil, nil
	}

	r.record(ctx, sessionID, target.ID, "regenerate", latency, usage, "suggestions")

	improved := target
	improved.ID = r.newID()
	improved.Proposed = resp.Proposed
	if resp.Explanation != "" {
		improved.Explanation = resp.Explanation
	}
	if resp.Confidence > 0 && resp.Confidence <= 1 {
		improved.Confidence = resp.Confidence
	}
	return &improved, nil
}

func (r *Refiner) record(ctx context.Context, sessionID, suggestionID, stage string, latencyMs int, usage *llm.Response, outcome string) {
	if r.recorder == nil {
		return
	}
	rec := store.RefinementRecord{
		SessionID:    sessionID,
		SuggestionID: suggestionID,
		Stage:        stage,
		Model:        r.client.Model(),
		LatencyMs:    latencyMs,
		Outcome:      outcome,
	}
	if usage != nil {
		rec.PromptTokens = usage.PromptTokens
		rec.CompletionTokens = usage.CompletionTokens
	}
	if err := r.recorder.Record(ctx, rec); err != nil {
		slog.WarnContext(ctx, "failed to record refinement", "error", err)
	}
}

// classify maps transport failures onto the engine's error taxonomy.
func classify(err error) error {
	if status, ok := llm.StatusCode(err); ok {
		switch {
		case status == 401 || status == 403:
			return fmt.Errorf("remote refine: %w", suggestion.ErrAuth)
		case status == 429:
			return fmt.Errorf("remote refine: %w", suggestion.ErrRateLimit)
		default:
			return fmt.Errorf("remote refine failed with status %d: %w", status, err)
		}
	}
	return &suggestion.NetworkError{Err: err}
}
