package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"redline.app/engine/internal/document"
	"redline.app/engine/internal/reconcile"
	"redline.app/engine/internal/suggestion"
)

type mockRegenerator struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, text string, target suggestion.Suggestion) (*suggestion.Suggestion, error)
	calls int
}

func (m *mockRegenerator) Regenerate(ctx context.Context, text string, target suggestion.Suggestion) (*suggestion.Suggestion, error) {
	m.mu.Lock()
	m.calls++
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, text, target)
}

func (m *mockRegenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func grammarSuggestion(id string, start, end int, original, proposed string) suggestion.Suggestion {
	return suggestion.Suggestion{
		ID:       id,
		Range:    suggestion.Range{Start: start, End: end},
		Type:     suggestion.TypeGrammar,
		Category: suggestion.CategoryCorrectness,
		Original: original,
		Proposed: proposed,
		Severity: suggestion.SeverityMedium,
	}
}

var _ = Describe("Reconciler", func() {
	var (
		ctx   context.Context
		tree  *document.Tree
		regen *mockRegenerator
		rec   *reconcile.Reconciler
	)

	newReconciler := func(text string) {
		tree = document.New(text)
		regen = &mockRegenerator{}
		rec = reconcile.New(tree, tree, regen, reconcile.DefaultConfig(), nil)
	}

	update := func(suggs ...suggestion.Suggestion) {
		ExpectWithOffset(1, rec.Apply(ctx, reconcile.SuggestionsUpdated{Suggestions: suggs})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("SuggestionsUpdated", func() {
		It("materializes each suggestion as a mark", func() {
			newReconciler("She dont like it.")

			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			Expect(tree.HasMark("s-1")).To(BeTrue())
			active := rec.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Region).To(Equal(suggestion.Range{Start: 4, End: 8}))
			Expect(rec.Stats().Materialized).To(Equal(1))
		})

		It("reconciles an identical set with zero structural ops", func() {
			newReconciler("She dont like it.")
			s := grammarSuggestion("s-1", 4, 8, "dont", "doesn't")

			update(s)
			segsBefore := tree.Segments()
			update(s)

			Expect(tree.Segments()).To(Equal(segsBefore))
			stats := rec.Stats()
			Expect(stats.Materialized).To(Equal(1))
			Expect(stats.Unwrapped).To(BeZero())
		})

		It("unwraps suggestions that disappear from the set", func() {
			newReconciler("She dont like the the dog.")

			update(
				grammarSuggestion("s-1", 4, 8, "dont", "doesn't"),
				grammarSuggestion("s-2", 14, 21, "the the", "the"),
			)
			update(grammarSuggestion("s-2", 14, 21, "the the", "the"))

			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(tree.HasMark("s-2")).To(BeTrue())
			Expect(rec.Stats().Unwrapped).To(Equal(1))
		})

		It("drops the later of two overlapping suggestions", func() {
			newReconciler("a very long stretch of plain sample text")

			update(
				grammarSuggestion("s-1", 5, 10, "y lon", "x"),
				grammarSuggestion("s-2", 8, 15, "ng stre", "y"),
			)

			Expect(tree.HasMark("s-1")).To(BeTrue())
			Expect(tree.HasMark("s-2")).To(BeFalse())
		})

		It("skips suggestions whose original no longer matches the text", func() {
			newReconciler("She dont like it.")

			update(grammarSuggestion("s-1", 4, 8, "done", "did"))

			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(rec.Active()).To(BeEmpty())
		})

		It("widens passive suggestions to the enclosing sentence", func() {
			newReconciler("First sentence. The report was written. Last one.")
			s := grammarSuggestion("s-1", 27, 38, "was written", "")
			s.Type = suggestion.TypePassive
			s.CanRegenerate = true

			update(s)

			active := rec.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Region).To(Equal(suggestion.Range{Start: 16, End: 39}))

			region, ok := document.MarkRegion(tree, "s-1")
			Expect(ok).To(BeTrue())
			Expect(region).To(Equal(suggestion.Range{Start: 16, End: 39}))
		})
	})

	Describe("UserApplied", func() {
		It("splices the proposal at the recorded range", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "s-1"})).To(Succeed())

			Expect(tree.Text()).To(Equal("She doesn't like it."))
			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(rec.Active()).To(BeEmpty())
			Expect(rec.Stats().Applied).To(Equal(1))
		})

		It("falls back to the nearest occurrence when the range drifted", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			// Mutate the tree behind the reconciler's back so its recorded
			// range points at stale offsets.
			_, err := tree.ReplaceRange(0, 3, "They")
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "s-1"})).To(Succeed())
			Expect(tree.Text()).To(Equal("They doesn't like it."))
		})

		It("reports a stale suggestion when the original is gone", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			_, err := tree.ReplaceRange(4, 8, "does")
			Expect(err).NotTo(HaveOccurred())

			err = rec.Apply(ctx, reconcile.UserApplied{ID: "s-1"})
			Expect(suggestion.IsStale(err)).To(BeTrue())
			Expect(rec.Active()).To(BeEmpty())
			Expect(rec.Stats().Invalidated).To(Equal(1))
		})

		It("shifts later suggestions by the applied delta", func() {
			newReconciler("She dont like the the dog.")
			update(
				grammarSuggestion("s-1", 4, 8, "dont", "doesn't"),
				grammarSuggestion("s-2", 14, 21, "the the", "the"),
			)

			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "s-1"})).To(Succeed())
			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "s-2"})).To(Succeed())

			Expect(tree.Text()).To(Equal("She doesn't like the dog."))
		})

		It("errors on an unknown suggestion", func() {
			newReconciler("She dont like it.")

			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "ghost"})).To(HaveOccurred())
		})
	})

	Describe("UserDismissed", func() {
		It("unwraps without mutating text and blocks re-materialization", func() {
			newReconciler("She dont like it.")
			s := grammarSuggestion("s-1", 4, 8, "dont", "doesn't")
			update(s)

			Expect(rec.Apply(ctx, reconcile.UserDismissed{ID: "s-1"})).To(Succeed())

			Expect(tree.Text()).To(Equal("She dont like it."))
			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(rec.Stats().Dismissed).To(Equal(1))

			update(s)
			Expect(tree.HasMark("s-1")).To(BeFalse())
		})
	})

	Describe("DocumentEdited", func() {
		edit := func(start, end int, replacement string) {
			ExpectWithOffset(1, rec.Apply(ctx, reconcile.DocumentEdited{
				Edited:      suggestion.Range{Start: start, End: end},
				Replacement: replacement,
			})).To(Succeed())
		}

		It("invalidates a mark edited inside", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			edit(6, 6, "x")

			Expect(tree.Text()).To(Equal("She doxnt like it."))
			Expect(rec.Active()).To(BeEmpty())
			Expect(rec.Stats().Invalidated).To(Equal(1))
		})

		It("shifts marks after the edit and keeps their suggestions applyable", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			edit(0, 3, "They")

			active := rec.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].Region).To(Equal(suggestion.Range{Start: 5, End: 9}))

			Expect(rec.Apply(ctx, reconcile.UserApplied{ID: "s-1"})).To(Succeed())
			Expect(tree.Text()).To(Equal("They doesn't like it."))
		})

		It("retires a suggestion when the edit covers most of its range", func() {
			newReconciler("She dont like it.")
			s := grammarSuggestion("s-1", 4, 8, "dont", "doesn't")
			update(s)

			// Overwrite three of the four flagged code units.
			edit(4, 7, "did")

			update(s)
			Expect(tree.HasMark("s-1")).To(BeFalse())
		})

		It("leaves a glancing overlap eligible for re-materialization", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			// Touch only the final code unit of the flagged range.
			edit(7, 8, "t")
			Expect(rec.Active()).To(BeEmpty())

			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))
			Expect(tree.HasMark("s-1")).To(BeTrue())
		})
	})

	Describe("regeneration", func() {
		regenerable := func() suggestion.Suggestion {
			s := grammarSuggestion("s-1", 27, 38, "was written", "")
			s.Type = suggestion.TypePassive
			s.CanRegenerate = true
			s.Confidence = 0.6
			return s
		}

		It("swaps in the improved suggestion on success", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			improved := grammarSuggestion("s-2", 16, 39, "The report was written.", "The team wrote the report.")
			improved.Type = suggestion.TypeStyle
			improved.CanRegenerate = true
			regen.fn = func(_ context.Context, _ string, target suggestion.Suggestion) (*suggestion.Suggestion, error) {
				Expect(target.ID).To(Equal("s-1"))
				return &improved, nil
			}

			Expect(rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})).To(Succeed())

			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(tree.HasMark("s-2")).To(BeTrue())
			Expect(rec.Stats().Regenerated).To(Equal(1))
		})

		It("leaves the suggestion untouched on failure", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())
			regen.fn = func(context.Context, string, suggestion.Suggestion) (*suggestion.Suggestion, error) {
				return nil, errors.New("model unavailable")
			}

			err := rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})

			Expect(err).To(HaveOccurred())
			Expect(tree.HasMark("s-1")).To(BeTrue())
			Expect(rec.Active()).To(HaveLen(1))
		})

		It("keeps the current suggestion when the model has nothing better", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			Expect(rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})).To(Succeed())

			Expect(tree.HasMark("s-1")).To(BeTrue())
			Expect(rec.Stats().Regenerated).To(BeZero())
		})

		It("attempts auto regeneration at most once per suggestion", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			Expect(rec.Apply(ctx, reconcile.AutoRegenerate{ID: "s-1"})).To(Succeed())
			Expect(rec.Apply(ctx, reconcile.AutoRegenerate{ID: "s-1"})).To(Succeed())

			Expect(regen.callCount()).To(Equal(1))
		})

		It("does not limit manual regeneration", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			Expect(rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})).To(Succeed())
			Expect(rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})).To(Succeed())

			Expect(regen.callCount()).To(Equal(2))
		})

		It("rejects regeneration of non-regenerable suggestions", func() {
			newReconciler("She dont like it.")
			update(grammarSuggestion("s-1", 4, 8, "dont", "doesn't"))

			err := rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})

			Expect(err).To(HaveOccurred())
			Expect(fmt.Sprint(err)).To(ContainSubstring("cannot be regenerated"))
		})

		It("keeps the original mark when the rewrite no longer matches the document", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			stale := grammarSuggestion("s-2", 16, 39, "The report is finished.", "Finished.")
			stale.Type = suggestion.TypeStyle
			stale.CanRegenerate = true
			regen.fn = func(context.Context, string, suggestion.Suggestion) (*suggestion.Suggestion, error) {
				return &stale, nil
			}

			err := rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})

			Expect(err).To(HaveOccurred())
			Expect(tree.HasMark("s-1")).To(BeTrue())
			Expect(tree.HasMark("s-2")).To(BeFalse())
			active := rec.Active()
			Expect(active).To(HaveLen(1))
			Expect(active[0].ID).To(Equal("s-1"))
			Expect(rec.Stats().Regenerated).To(BeZero())
		})

		It("accepts edits while a regeneration is in flight", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			started := make(chan struct{})
			release := make(chan struct{})
			regen.fn = func(context.Context, string, suggestion.Suggestion) (*suggestion.Suggestion, error) {
				close(started)
				<-release
				return nil, nil
			}

			done := make(chan error, 1)
			go func() {
				done <- rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})
			}()
			<-started

			// Same-length replacement before the flagged sentence; must
			// not wait for the model call to return.
			Expect(rec.Apply(ctx, reconcile.DocumentEdited{
				Edited:      suggestion.Range{Start: 0, End: 5},
				Replacement: "Intro",
			})).To(Succeed())

			close(release)
			Expect(<-done).To(Succeed())
			Expect(tree.HasMark("s-1")).To(BeTrue())
		})

		It("drops the rewrite when the target is dismissed mid-flight", func() {
			newReconciler("First sentence. The report was written. Last one.")
			update(regenerable())

			improved := grammarSuggestion("s-2", 16, 39, "The report was written.", "The team wrote the report.")
			improved.Type = suggestion.TypeStyle
			improved.CanRegenerate = true
			started := make(chan struct{})
			release := make(chan struct{})
			regen.fn = func(context.Context, string, suggestion.Suggestion) (*suggestion.Suggestion, error) {
				close(started)
				<-release
				return &improved, nil
			}

			done := make(chan error, 1)
			go func() {
				done <- rec.Apply(ctx, reconcile.UserRegenerate{ID: "s-1"})
			}()
			<-started
			Expect(rec.Apply(ctx, reconcile.UserDismissed{ID: "s-1"})).To(Succeed())
			close(release)

			Expect(<-done).To(Succeed())
			Expect(tree.HasMark("s-1")).To(BeFalse())
			Expect(tree.HasMark("s-2")).To(BeFalse())
			Expect(rec.Stats().Regenerated).To(BeZero())
		})
	})
})
