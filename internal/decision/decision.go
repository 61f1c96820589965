// Package decision routes analysis requests between the fast local
// pipeline and the hybrid local+remote path. Decide is a pure function:
// no I/O, no clock, no randomness. Identical inputs always produce
// identical decisions.
package decision

import (
	"fmt"
	"strings"

	"redline.app/engine/core/config"
	"redline.app/engine/internal/suggestion"
)

// Decision is the routing outcome for one analysis pass. Reason is for
// observability only; no caller may branch on it.
type Decision struct {
	UseLocalOnly       bool    `json:"useLocalOnly"`
	Reason             string  `json:"reason"`
	EstimatedCost      float64 `json:"estimatedCost"`
	EstimatedLatencyMs int     `json:"estimatedLatencyMs"`
}

// Engine evaluates the routing rules against a fixed cost/latency model.
type Engine struct {
	cfg config.DecisionConfig
}

func New(cfg config.DecisionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Decide applies the routing rules in priority order:
//
//  1. Estimated cost above the per-check ceiling forces local.
//  2. Word count above the remote-eligible threshold forces local.
//  3. Constrained-tier users stay local once cost exceeds their ceiling.
//  4. An explicit fast priority forces local.
//  5. Style analysis or quality priority allows the hybrid path.
//  6. Everything else stays local.
func (e *Engine) Decide(text string, opts suggestion.Options) Decision {
	cost := e.estimateCost(text)
	words := countWords(text)

	if cost > e.cfg.MaxCostPerCheck {
		return e.local(cost, fmt.Sprintf("estimated cost %.4f exceeds per-check ceiling %.4f", cost, e.cfg.MaxCostPerCheck))
	}

	if words > e.cfg.MaxRemoteWords {
		return e.local(cost, fmt.Sprintf("word count %d exceeds remote threshold %d", words, e.cfg.MaxRemoteWords))
	}

	if opts.Tier == suggestion.TierConstrained && cost > e.cfg.ConstrainedCostCeiling {
		return e.local(cost, fmt.Sprintf("constrained tier: estimated cost %.4f exceeds per-request ceiling %.4f", cost, e.cfg.ConstrainedCostCeiling))
	}

	if opts.Priority == suggestion.PriorityFast {
		return e.local(cost, "fast priority requested")
	}

	if opts.IncludeStyle || opts.Priority == suggestion.PriorityQuality {
		return Decision{
			UseLocalOnly:       false,
			Reason:             "style or quality analysis requested; hybrid path allowed",
			EstimatedCost:      cost,
			EstimatedLatencyMs: e.cfg.RemoteLatencyMs,
		}
	}

	return e.local(cost, "default: local analysis is sufficient")
}

func (e *Engine) local(cost float64, reason string) Decision {
	return Decision{
		UseLocalOnly:       true,
		Reason:             reason,
		EstimatedCost:      cost,
		EstimatedLatencyMs: e.cfg.LocalLatencyMs,
	}
}

func (e *Engine) estimateCost(text string) float64 {
	return float64(len(text)) / 1000 * e.cfg.CostPerThousandChars
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
