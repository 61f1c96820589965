package reconcile

import "redline.app/engine/internal/suggestion"

// Event is one input to the reconciler's reducer. All document and
// suggestion state changes flow through Apply(event); there is no other
// mutation path.
type Event interface {
	isEvent()
}

// SuggestionsUpdated delivers a fresh suggestion set from an analysis
// pass. The reconciler diffs it against the materialized set by id.
type SuggestionsUpdated struct {
	Suggestions []suggestion.Suggestion
}

// UserApplied accepts a suggestion, splicing its proposal into the text.
type UserApplied struct {
	ID string
}

// UserDismissed hides a suggestion without mutating text. Dismissed ids
// are filtered from all future materialization.
type UserDismissed struct {
	ID string
}

// UserRegenerate asks the remote refiner for a better rewrite of one
// suggestion. Manual regeneration has no attempt limit.
type UserRegenerate struct {
	ID string
}

// AutoRegenerate is the engine-initiated variant, limited to one attempt
// per suggestion id.
type AutoRegenerate struct {
	ID string
}

// DocumentEdited applies a user edit: replacement spliced over the range.
// An insertion has Edited.Start == Edited.End.
type DocumentEdited struct {
	Edited      suggestion.Range
	Replacement string
}

func (SuggestionsUpdated) isEvent() {}
func (UserApplied) isEvent()        {}
func (UserDismissed) isEvent()      {}
func (UserRegenerate) isEvent()     {}
func (AutoRegenerate) isEvent()     {}
func (DocumentEdited) isEvent()     {}
