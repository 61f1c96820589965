package cache_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"redline.app/engine/internal/cache"
	"redline.app/engine/internal/suggestion"
)

var _ = Describe("Redis", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		c      *cache.Redis
		opts   suggestion.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		c = cache.NewRedis(client, time.Minute)
		opts = suggestion.DefaultOptions()
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("misses on unknown text", func() {
		_, ok, err := c.Get(ctx, "never stored", opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("round trips a stored suggestion set", func() {
		Expect(c.Set(ctx, "She dont like it.", opts, sampleSuggestions())).To(Succeed())

		got, ok, err := c.Get(ctx, "She dont like it.", opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(sampleSuggestions()))
	})

	It("expires entries after the ttl", func() {
		Expect(c.Set(ctx, "She dont like it.", opts, sampleSuggestions())).To(Succeed())

		mr.FastForward(2 * time.Minute)

		_, ok, err := c.Get(ctx, "She dont like it.", opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("makes old entries unreachable after Clear", func() {
		Expect(c.Set(ctx, "She dont like it.", opts, sampleSuggestions())).To(Succeed())

		Expect(c.Clear(ctx)).To(Succeed())

		_, ok, err := c.Get(ctx, "She dont like it.", opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("treats a corrupt entry as a miss", func() {
		Expect(c.Set(ctx, "She dont like it.", opts, sampleSuggestions())).To(Succeed())

		// Overwrite every stored value with junk.
		for _, key := range mr.Keys() {
			Expect(mr.Set(key, "{not json")).To(Succeed())
		}

		_, ok, err := c.Get(ctx, "She dont like it.", opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
