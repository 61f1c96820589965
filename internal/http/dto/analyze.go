package dto

import "redline.app/engine/internal/suggestion"

type AnalyzeRequest struct {
	Text            string `json:"text" binding:"required,max=100000"`
	Language        string `json:"language" binding:"omitempty,max=16"`
	IncludeSpelling *bool  `json:"includeSpelling"`
	IncludeGrammar  *bool  `json:"includeGrammar"`
	IncludeStyle    *bool  `json:"includeStyle"`
	Priority        string `json:"priority" binding:"omitempty,oneof=fast balanced quality"`
	Tier            string `json:"tier" binding:"omitempty,oneof=constrained standard"`
	UserID          string `json:"userId" binding:"omitempty,max=64"`
}

// ToOptions fills unset flags from the defaults: spelling and grammar
// on, style off.
func (r AnalyzeRequest) ToOptions() suggestion.Options {
	opts := suggestion.DefaultOptions()
	if r.Language != "" {
		opts.Language = r.Language
	}
	if r.IncludeSpelling != nil {
		opts.IncludeSpelling = *r.IncludeSpelling
	}
	if r.IncludeGrammar != nil {
		opts.IncludeGrammar = *r.IncludeGrammar
	}
	if r.IncludeStyle != nil {
		opts.IncludeStyle = *r.IncludeStyle
	}
	if r.Priority != "" {
		opts.Priority = suggestion.Priority(r.Priority)
	}
	if r.Tier != "" {
		opts.Tier = suggestion.Tier(r.Tier)
	}
	return opts
}

type AnalyzeResponse struct {
	Suggestions []suggestion.Suggestion `json:"suggestions"`
	// ProcessedText is the NFC-normalized text the suggestion ranges
	// index into; clients must apply ranges against it, not their input.
	ProcessedText    string `json:"processedText"`
	Cached           bool   `json:"cached"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	RoutingReason    string `json:"routingReason,omitempty"`
}
