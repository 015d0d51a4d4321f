package provider_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosstalkco/crosstalk/pkg/llm"
	"github.com/crosstalkco/crosstalk/pkg/llm/provider"
)

// stubCompleter records the last request and replies from a script.
type stubCompleter struct {
	lastReq *llm.ChatRequest
	resp    *llm.ChatResponse
	err     error
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

var _ = Describe("New", func() {
	Context("with an unknown provider type", func() {
		It("returns an error naming the supported set", func() {
			_, err := provider.New(provider.Config{Provider: "gemini"})
			Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
			Expect(err).To(MatchError(ContainSubstring("anthropic")))
		})
	})

	Context("with openai", func() {
		It("requires an API key", func() {
			_, err := provider.New(provider.Config{Provider: provider.OpenAI})
			Expect(err).To(MatchError(ContainSubstring("api key required")))
		})

		It("builds a client when a key is present", func() {
			c, err := provider.New(provider.Config{Provider: provider.OpenAI, APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(provider.OpenAI))
		})

		It("is the default when the provider is empty", func() {
			c, err := provider.New(provider.Config{APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(provider.OpenAI))
		})
	})

	Context("with anthropic", func() {
		It("requires an API key", func() {
			_, err := provider.New(provider.Config{Provider: provider.Anthropic})
			Expect(err).To(MatchError(ContainSubstring("api key required")))
		})

		It("builds a client when a key is present", func() {
			c, err := provider.New(provider.Config{Provider: provider.Anthropic, APIKey: "sk-ant"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(provider.Anthropic))
		})
	})

	Context("with ollama", func() {
		It("needs no credential", func() {
			c, err := provider.New(provider.Config{Provider: provider.Ollama})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(provider.Ollama))
		})
	})

	Context("with mixed-case provider names", func() {
		It("normalizes before dispatch", func() {
			c, err := provider.New(provider.Config{Provider: "OpenAI", APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Name()).To(Equal(provider.OpenAI))
		})
	})
})

var _ = Describe("SupportedProviders", func() {
	It("lists the three backends", func() {
		Expect(provider.SupportedProviders()).To(Equal([]string{
			provider.Anthropic, provider.OpenAI, provider.Ollama,
		}))
	})
})

var _ = Describe("Probe", func() {
	var stub *stubCompleter

	BeforeEach(func() {
		stub = &stubCompleter{
			resp: &llm.ChatResponse{Message: llm.NewTextMessage(llm.RoleAssistant, "Hi")},
		}
	})

	It("sends a one-message hello with a small token ceiling", func() {
		Expect(provider.Probe(context.Background(), stub, "gpt-4.1-mini")).To(Succeed())

		Expect(stub.lastReq).NotTo(BeNil())
		Expect(stub.lastReq.Model).To(Equal("gpt-4.1-mini"))
		Expect(stub.lastReq.Messages).To(HaveLen(1))
		Expect(stub.lastReq.Messages[0].Role).To(Equal(llm.RoleUser))
		Expect(stub.lastReq.Messages[0].GetText()).To(Equal("Hello"))
		Expect(stub.lastReq.MaxTokens).NotTo(BeNil())
		Expect(*stub.lastReq.MaxTokens).To(Equal(10))
	})

	It("wraps completion failures with the provider name", func() {
		stub.err = errors.New("boom")
		err := provider.Probe(context.Background(), stub, "gpt-4.1-mini")
		Expect(err).To(MatchError(ContainSubstring("probe stub")))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})
})
