package filter_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"redline.app/engine/internal/filter"
	"redline.app/engine/internal/suggestion"
)

func spelling(original string) suggestion.Suggestion {
	return suggestion.Suggestion{
		ID:       "s-" + original,
		Type:     suggestion.TypeSpelling,
		Original: original,
		Proposed: "corrected",
	}
}

var _ = Describe("Apply", func() {
	It("removes suggestions for allow-listed words regardless of case", func() {
		out := filter.Apply(
			[]suggestion.Suggestion{spelling("Kubernetes"), spelling("recieved")},
			[]string{"kubernetes"},
		)

		Expect(out).To(HaveLen(1))
		Expect(out[0].Original).To(Equal("recieved"))
	})

	It("matches possessive forms of an allow-listed word", func() {
		out := filter.Apply(
			[]suggestion.Suggestion{spelling("Kubernetes's"), spelling("Kubernetes’s")},
			[]string{"kubernetes"},
		)

		Expect(out).To(BeEmpty())
	})

	It("passes everything through with an empty allow list", func() {
		in := []suggestion.Suggestion{spelling("recieved")}

		Expect(filter.Apply(in, nil)).To(Equal(in))
	})
})

var _ = Describe("NormalizeWord", func() {
	DescribeTable("forms",
		func(in, want string) {
			Expect(filter.NormalizeWord(in)).To(Equal(want))
		},
		Entry("lowercases", "Kubernetes", "kubernetes"),
		Entry("strips possessive", "Redis's", "redis"),
		Entry("curly apostrophe possessive", "Redis’s", "redis"),
		Entry("trailing apostrophe", "James'", "james"),
		Entry("whitespace", "  word  ", "word"),
	)
})

var _ = Describe("RedisProvider", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		provider *filter.RedisProvider
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		provider = filter.NewRedisProvider(client)
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("returns an empty list for an unknown user", func() {
		words, err := provider.AllowList(ctx, "u-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(BeEmpty())
	})

	It("stores words normalized and per user", func() {
		Expect(provider.Add(ctx, "u-1", "Kubernetes's")).To(Succeed())
		Expect(provider.Add(ctx, "u-1", "grpc")).To(Succeed())
		Expect(provider.Add(ctx, "u-2", "other")).To(Succeed())

		words, err := provider.AllowList(ctx, "u-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(words).To(ConsistOf("kubernetes", "grpc"))
	})
})
