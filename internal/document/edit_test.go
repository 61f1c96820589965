package document_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"redline.app/engine/internal/document"
	"redline.app/engine/internal/suggestion"
)

var _ = Describe("ReplaceRange", func() {
	It("splices replacement text and collapses the selection after it", func() {
		t := document.New("She dont like it.")

		removed, err := t.ReplaceRange(4, 8, "doesn't")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())
		Expect(t.Text()).To(Equal("She doesn't like it."))

		anchor, focus := t.Selection()
		Expect(anchor).To(Equal(11))
		Expect(focus).To(Equal(11))
	})

	It("drops marks overlapped by the edit and returns their ids", func() {
		t := document.New("She dont like it.")
		Expect(t.WrapRange(4, 8, "m-1", suggestion.TypeGrammar)).To(Succeed())

		removed, err := t.ReplaceRange(6, 7, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal([]string{"m-1"}))
		Expect(t.HasMark("m-1")).To(BeFalse())
		Expect(t.Text()).To(Equal("She doxt like it."))
	})

	It("shifts marks after the edit by the length delta", func() {
		t := document.New("She dont like the the dog.")
		Expect(t.WrapRange(14, 21, "m-2", suggestion.TypeGrammar)).To(Succeed())

		// Replace "dont" (before the mark) with the longer "doesn't".
		removed, err := t.ReplaceRange(4, 8, "doesn't")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())

		region, ok := document.MarkRegion(t, "m-2")
		Expect(ok).To(BeTrue())
		Expect(region).To(Equal(suggestion.Range{Start: 17, End: 24}))

		segs := markedSegments(t, "m-2")
		Expect(segs).To(HaveLen(1))
		Expect(segs[0].Text).To(Equal("the the"))
	})

	It("leaves marks before the edit untouched", func() {
		t := document.New("She dont like it.")
		Expect(t.WrapRange(4, 8, "m-1", suggestion.TypeGrammar)).To(Succeed())

		_, err := t.ReplaceRange(14, 16, "them")
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Text()).To(Equal("She dont like them."))

		region, ok := document.MarkRegion(t, "m-1")
		Expect(ok).To(BeTrue())
		Expect(region).To(Equal(suggestion.Range{Start: 4, End: 8}))
	})

	It("shifts a mark when typing immediately before it", func() {
		t := document.New("She dont like it.")
		Expect(t.WrapRange(4, 8, "m-1", suggestion.TypeGrammar)).To(Succeed())

		removed, err := t.InsertText(4, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())

		region, ok := document.MarkRegion(t, "m-1")
		Expect(ok).To(BeTrue())
		Expect(region).To(Equal(suggestion.Range{Start: 5, End: 9}))
	})

	It("drops a mark when typing inside it", func() {
		t := document.New("She dont like it.")
		Expect(t.WrapRange(4, 8, "m-1", suggestion.TypeGrammar)).To(Succeed())

		removed, err := t.InsertText(6, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal([]string{"m-1"}))
		Expect(t.Text()).To(Equal("She doxnt like it."))
	})

	It("deletes a range spanning a mark", func() {
		t := document.New("She dont like it.")
		Expect(t.WrapRange(4, 8, "m-1", suggestion.TypeGrammar)).To(Succeed())

		removed, err := t.DeleteRange(0, 9)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal([]string{"m-1"}))
		Expect(t.Text()).To(Equal("like it."))
	})

	It("handles edits in multibyte text by code units", func() {
		t := document.New("café \U0001F600 day")

		// Replace the emoji (two code units at offset 5).
		removed, err := t.ReplaceRange(5, 7, "night")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeEmpty())
		Expect(t.Text()).To(Equal("café night day"))
	})

	It("rejects out-of-bounds ranges", func() {
		t := document.New("short")

		_, err := t.ReplaceRange(3, 9, "x")
		Expect(err).To(HaveOccurred())
		_, err = t.ReplaceRange(-1, 2, "x")
		Expect(err).To(HaveOccurred())
	})
})
