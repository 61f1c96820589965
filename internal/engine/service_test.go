package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"

	"redline.app/engine/common/id"
	"redline.app/engine/common/llm"
	"redline.app/engine/core/config"
	"redline.app/engine/internal/analyzer"
	"redline.app/engine/internal/cache"
	"redline.app/engine/internal/decision"
	"redline.app/engine/internal/engine"
	"redline.app/engine/internal/filter"
	"redline.app/engine/internal/refiner"
	"redline.app/engine/internal/suggestion"
)

type mockChatClient struct {
	chatFn func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
}

func (m *mockChatClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return m.chatFn(ctx, req, result)
}

func (m *mockChatClient) Model() string { return "test-model" }

// jsonChat builds a chatFn that decodes payload into the structured
// response target, the way the real client does.
func jsonChat(payload string) func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
		if err := json.Unmarshal([]byte(payload), result); err != nil {
			return nil, fmt.Errorf("decode mock payload: %w", err)
		}
		return &llm.Response{PromptTokens: 10, CompletionTokens: 5}, nil
	}
}

type failingAllowList struct{}

func (failingAllowList) AllowList(context.Context, string) ([]string, error) {
	return nil, errors.New("redis unavailable")
}

func testDecider() *decision.Engine {
	return decision.New(config.DecisionConfig{
		MaxCostPerCheck:        0.10,
		ConstrainedCostCeiling: 0.01,
		CostPerThousandChars:   0.002,
		MaxRemoteWords:         2000,
		LocalLatencyMs:         30,
		RemoteLatencyMs:        1800,
	})
}

var _ = Describe("Service", func() {
	var ctx context.Context

	newLocalService := func(c cache.Cache, allow filter.AllowListProvider) *engine.Service {
		return engine.NewService(analyzer.New(), nil, testDecider(), c, allow, nil)
	}

	newRemoteService := func(chatFn func(context.Context, llm.Request, any) (*llm.Response, error)) *engine.Service {
		ref := refiner.New(&mockChatClient{chatFn: chatFn}, nil)
		return engine.NewService(analyzer.New(), ref, testDecider(), nil, nil, nil)
	}

	styleOpts := func() suggestion.Options {
		opts := suggestion.DefaultOptions()
		opts.IncludeStyle = true
		return opts
	}

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		ctx = context.Background()
	})

	Describe("Analyze", func() {
		It("returns local findings and routes local-only by default", func() {
			svc := newLocalService(nil, nil)

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", suggestion.DefaultOptions())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cached).To(BeFalse())
			Expect(res.Decision.UseLocalOnly).To(BeTrue())
			Expect(res.Suggestions).To(HaveLen(1))
			Expect(res.Suggestions[0].Proposed).To(Equal("doesn't"))
			Expect(res.Suggestions[0].Range).To(Equal(suggestion.Range{Start: 4, End: 8}))
		})

		It("serves a repeated request from the cache", func() {
			svc := newLocalService(cache.NewMemory(0), nil)

			first, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cached).To(BeFalse())

			second, err := svc.Analyze(ctx, "sess-2", "", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Cached).To(BeTrue())
			Expect(second.Suggestions).To(Equal(first.Suggestions))
		})

		It("filters allow-listed words on both the miss and hit paths", func() {
			svc := newLocalService(cache.NewMemory(0), filter.Static{"dont"})

			first, err := svc.Analyze(ctx, "sess-1", "user-1", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Suggestions).To(BeEmpty())

			second, err := svc.Analyze(ctx, "sess-2", "user-1", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Cached).To(BeTrue())
			Expect(second.Suggestions).To(BeEmpty())
		})

		It("leaves other users' results unfiltered", func() {
			svc := newLocalService(cache.NewMemory(0), filter.Static{"dont"})

			_, err := svc.Analyze(ctx, "sess-1", "user-1", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.Analyze(ctx, "sess-2", "", "She dont like it.", suggestion.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Cached).To(BeTrue())
			Expect(res.Suggestions).To(HaveLen(1))
		})

		It("serves unfiltered results when the allow-list provider fails", func() {
			svc := newLocalService(nil, failingAllowList{})

			res, err := svc.Analyze(ctx, "sess-1", "user-1", "She dont like it.", suggestion.DefaultOptions())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Suggestions).To(HaveLen(1))
		})

		It("merges non-overlapping remote findings into the local set", func() {
			svc := newRemoteService(jsonChat(`{"suggestions": [
				{"start": 4, "end": 8, "type": "grammar", "original": "dont", "proposed": "does not", "explanation": "remote duplicate", "confidence": 0.9},
				{"start": 9, "end": 13, "type": "style", "original": "like", "proposed": "enjoy", "explanation": "stronger verb", "confidence": 0.8}
			]}`))

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", styleOpts())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Decision.UseLocalOnly).To(BeFalse())
			Expect(res.Suggestions).To(HaveLen(2))
			// The local grammar rule wins the [4,8) collision.
			Expect(res.Suggestions[0].Proposed).To(Equal("doesn't"))
			Expect(res.Suggestions[1].Proposed).To(Equal("enjoy"))
			Expect(res.Suggestions[1].Type).To(Equal(suggestion.TypeStyle))
		})

		It("returns sorted suggestions", func() {
			svc := newRemoteService(jsonChat(`{"suggestions": [
				{"start": 14, "end": 16, "type": "style", "original": "it", "proposed": "this", "explanation": "clearer referent", "confidence": 0.6},
				{"start": 0, "end": 3, "type": "style", "original": "She", "proposed": "The author", "explanation": "clearer subject", "confidence": 0.6}
			]}`))

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", styleOpts())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Suggestions).To(HaveLen(3))
			for i := 1; i < len(res.Suggestions); i++ {
				Expect(res.Suggestions[i-1].Range.Start).To(BeNumerically("<=", res.Suggestions[i].Range.Start))
			}
		})

		It("fails the pass on an authentication error", func() {
			svc := newRemoteService(func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, &openai.Error{StatusCode: 401}
			})

			_, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", styleOpts())

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, suggestion.ErrAuth)).To(BeTrue())
		})

		It("degrades to local results when the remote service is rate limited", func() {
			svc := newRemoteService(func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, &openai.Error{StatusCode: 429}
			})

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", styleOpts())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Suggestions).To(HaveLen(1))
			Expect(res.Suggestions[0].Proposed).To(Equal("doesn't"))
		})

		It("degrades to local results on a network failure", func() {
			svc := newRemoteService(func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, errors.New("connection refused")
			})

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", styleOpts())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Suggestions).To(HaveLen(1))
		})

		It("skips the remote path when the decision routes local", func() {
			called := false
			svc := newRemoteService(func(context.Context, llm.Request, any) (*llm.Response, error) {
				called = true
				return nil, errors.New("should not be called")
			})

			res, err := svc.Analyze(ctx, "sess-1", "", "She dont like it.", suggestion.DefaultOptions())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Decision.UseLocalOnly).To(BeTrue())
			Expect(called).To(BeFalse())
		})

		It("normalizes text before analysis", func() {
			svc := newLocalService(nil, nil)

			// Decomposed e + combining acute normalizes to a single rune.
			res, err := svc.Analyze(ctx, "sess-1", "", "café dont", suggestion.DefaultOptions())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Text).To(Equal("café dont"))
		})
	})

	Describe("Regenerator", func() {
		It("is nil without a remote model", func() {
			svc := newLocalService(nil, nil)
			Expect(svc.Regenerator("sess-1")).To(BeNil())
		})

		It("delegates regeneration to the refiner", func() {
			svc := newRemoteService(jsonChat(`{"improved": true, "proposed": "does not", "explanation": "formal register", "confidence": 0.95}`))

			target := suggestion.Suggestion{
				ID:          "s-1",
				Range:       suggestion.Range{Start: 4, End: 8},
				Type:        suggestion.TypeGrammar,
				Original:    "dont",
				Proposed:    "doesn't",
				Explanation: "subject-verb agreement",
				Confidence:  0.5,
			}
			improved, err := svc.Regenerator("sess-1").Regenerate(ctx, "She dont like it.", target)

			Expect(err).NotTo(HaveOccurred())
			Expect(improved).NotTo(BeNil())
			Expect(improved.Proposed).To(Equal("does not"))
			Expect(improved.Confidence).To(Equal(0.95))
		})
	})
})
