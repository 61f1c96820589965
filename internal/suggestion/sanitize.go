package suggestion

import (
	"context"
	"log/slog"

	"redline.app/engine/internal/textpos"
)

// Raw mirrors the analyzer output contract: the loosely-typed shape both
// the local pipeline and the remote service emit. It is converted into
// Suggestion at this boundary and never flows past it.
type Raw struct {
	Range       *Range  `json:"range"`
	Type        string  `json:"type"`
	Original    string  `json:"original"`
	Proposed    string  `json:"proposed"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
}

var knownTypes = map[Type]bool{
	TypeGrammar:     true,
	TypeSpelling:    true,
	TypePunctuation: true,
	TypeStyle:       true,
	TypePassive:     true,
}

// Sanitize validates raw analyzer entries against the snapshot they were
// produced for and converts the survivors into Suggestions. Malformed
// entries (missing fields, unknown types, inverted or out-of-bounds
// ranges, original text that does not match the snapshot) are dropped
// individually; one bad entry never fails the batch.
//
// newID assigns ids to surviving entries; pass common/id.String in
// production.
func Sanitize(ctx context.Context, raws []Raw, pm *textpos.Map, newID func() string) []Suggestion {
	out := make([]Suggestion, 0, len(raws))
	for _, raw := range raws {
		s, ok := sanitizeOne(ctx, raw, pm, newID)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

func sanitizeOne(ctx context.Context, raw Raw, pm *textpos.Map, newID func() string) (Suggestion, bool) {
	if raw.Range == nil {
		slog.DebugContext(ctx, "dropping suggestion without range", "type", raw.Type)
		return Suggestion{}, false
	}
	t := Type(raw.Type)
	if !knownTypes[t] {
		slog.DebugContext(ctx, "dropping suggestion with unknown type", "type", raw.Type)
		return Suggestion{}, false
	}
	if raw.Original == "" {
		slog.DebugContext(ctx, "dropping suggestion with empty original", "type", raw.Type)
		return Suggestion{}, false
	}
	// Passive and style findings may arrive without a rewrite; the remote
	// refiner supplies one on regeneration. Everything else must propose
	// concrete replacement text.
	if raw.Proposed == "" && t != TypePassive && t != TypeStyle {
		slog.DebugContext(ctx, "dropping suggestion with empty proposed", "type", raw.Type)
		return Suggestion{}, false
	}
	if !raw.Range.Valid(pm.CodeUnits()) {
		slog.DebugContext(ctx, "dropping suggestion with invalid range",
			"type", raw.Type, "start", raw.Range.Start, "end", raw.Range.End, "len", pm.CodeUnits())
		return Suggestion{}, false
	}

	flagged, err := pm.Slice(raw.Range.Start, raw.Range.End)
	if err != nil || flagged != raw.Original {
		slog.DebugContext(ctx, "dropping suggestion whose original does not match snapshot",
			"type", raw.Type, "start", raw.Range.Start)
		return Suggestion{}, false
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Suggestion{
		ID:            newID(),
		Range:         *raw.Range,
		Type:          t,
		Category:      CategoryFor(t),
		Original:      raw.Original,
		Proposed:      raw.Proposed,
		Explanation:   raw.Explanation,
		Confidence:    confidence,
		Severity:      SeverityFor(t),
		CanRegenerate: t == TypeSpelling || t == TypePassive || t == TypeStyle,
	}, true
}
