package conversation_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosstalkco/crosstalk/pkg/conversation"
	"github.com/crosstalkco/crosstalk/pkg/eventstream"
	"github.com/crosstalkco/crosstalk/pkg/llm"
)

type stubCompleter struct {
	name     string
	reply    string
	usage    *llm.Usage
	err      error
	requests []*llm.ChatRequest
}

func (s *stubCompleter) Name() string {
	if s.name == "" {
		return "stub"
	}

	return s.name
}

func (s *stubCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}

	return &llm.ChatResponse{
		Model:      req.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, s.reply),
		StopReason: "stop",
		Usage:      s.usage,
	}, nil
}

type stubPublisher struct {
	events []*eventstream.TurnCompletedEvent
	err    error
}

func (s *stubPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	s.events = append(s.events, event)

	return s.err
}

func (s *stubPublisher) Close() error {
	return nil
}

var _ = Describe("Manager", func() {
	const topic = "the future of railways"

	var (
		ctx   context.Context
		aStub *stubCompleter
		bStub *stubCompleter
		cfg   conversation.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		aStub = &stubCompleter{reply: "Rail is due for a renaissance."}
		bStub = &stubCompleter{reply: "Only if ticketing stops being hostile."}
		cfg = conversation.Config{
			Topic:       topic,
			Temperature: 0.7,
			A: conversation.Participant{
				Name:      "Alice",
				Model:     "gpt-4.1-mini",
				Persona:   "You are a thoughtful and analytical assistant.",
				Completer: aStub,
			},
			B: conversation.Participant{
				Name:      "Bob",
				Model:     "claude-sonnet-4",
				Persona:   "You are a creative and curious assistant.",
				Completer: bStub,
			},
		}
	})

	Describe("New", func() {
		It("requires a topic", func() {
			cfg.Topic = ""
			_, err := conversation.New(cfg)
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})

		It("requires a completer for each participant", func() {
			cfg.A.Completer = nil
			_, err := conversation.New(cfg)
			Expect(err).To(MatchError(ContainSubstring("participant A")))

			cfg.A.Completer = aStub
			cfg.B.Completer = nil
			_, err = conversation.New(cfg)
			Expect(err).To(MatchError(ContainSubstring("participant B")))
		})

		It("requires a model for each participant", func() {
			cfg.B.Model = ""
			_, err := conversation.New(cfg)
			Expect(err).To(MatchError(ContainSubstring("participant B requires a model")))
		})

		It("pins participants to their positions", func() {
			cfg.A.Speaker = conversation.SpeakerB
			m, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(m.Participant(conversation.SpeakerA).Speaker).To(Equal(conversation.SpeakerA))
			Expect(m.Participant(conversation.SpeakerA).Name).To(Equal("Alice"))
			Expect(m.Participant(conversation.SpeakerB).Speaker).To(Equal(conversation.SpeakerB))
		})

		It("defaults participant names to their position", func() {
			cfg.A.Name = ""
			m, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(m.Participant(conversation.SpeakerA).Name).To(Equal("A"))
		})

		It("assigns each conversation a unique ID", func() {
			m1, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			m2, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(m1.ID()).NotTo(BeEmpty())
			Expect(m1.ID()).NotTo(Equal(m2.ID()))
		})
	})

	Describe("NextTurn", func() {
		var m *conversation.Manager

		BeforeEach(func() {
			var err error
			m, err = conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		Context("on the first turn", func() {
			It("sends the persona and rendered template as the system message", func() {
				m.NextTurn(ctx, 1)

				Expect(aStub.requests).To(HaveLen(1))
				req := aStub.requests[0]

				expected := "You are a thoughtful and analytical assistant.\n\n" +
					strings.ReplaceAll(conversation.DefaultTemplate, "{topic}", topic)
				Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
				Expect(req.Messages[0].GetText()).To(Equal(expected))
			})

			It("bootstraps speaker A with the start prompt", func() {
				m.NextTurn(ctx, 1)

				req := aStub.requests[0]
				Expect(req.Messages).To(HaveLen(2))
				Expect(req.Messages[1].Role).To(Equal(llm.RoleUser))
				Expect(req.Messages[1].GetText()).To(Equal(
					"Please start a conversation about: the future of railways. " +
						"Share your initial thoughts on this topic in 2-4 sentences."))
			})

			It("gives speaker B only the system message when the transcript is empty", func() {
				m.NextTurn(ctx, 2)

				Expect(bStub.requests).To(HaveLen(1))
				Expect(bStub.requests[0].Messages).To(HaveLen(1))
				Expect(bStub.requests[0].Messages[0].Role).To(Equal(llm.RoleSystem))
			})

			It("passes model and temperature through to the provider", func() {
				m.NextTurn(ctx, 1)

				req := aStub.requests[0]
				Expect(req.Model).To(Equal("gpt-4.1-mini"))
				Expect(req.Temperature).NotTo(BeNil())
				Expect(*req.Temperature).To(Equal(0.7))
				Expect(req.MaxTokens).To(BeNil())
			})

			It("appends the reply to the transcript", func() {
				result := m.NextTurn(ctx, 1)

				Expect(result.Failed()).To(BeFalse())
				Expect(result.Turn).To(Equal(1))
				Expect(result.Speaker).To(Equal(conversation.SpeakerA))
				Expect(result.Content).To(Equal("Rail is due for a renaissance."))
				Expect(result.StopReason).To(Equal("stop"))
				Expect(result.Timestamp).NotTo(BeZero())

				Expect(m.Len()).To(Equal(1))
				Expect(m.Transcript()).To(Equal([]conversation.Message{
					{Turn: 1, Speaker: conversation.SpeakerA, Content: "Rail is due for a renaissance."},
				}))
			})
		})

		Context("on subsequent turns", func() {
			It("shows speaker B the opener as a user message", func() {
				m.NextTurn(ctx, 1)
				m.NextTurn(ctx, 2)

				Expect(bStub.requests).To(HaveLen(1))
				req := bStub.requests[0]
				Expect(req.Messages).To(HaveLen(2))
				Expect(req.Messages[1].Role).To(Equal(llm.RoleUser))
				Expect(req.Messages[1].GetText()).To(Equal("Rail is due for a renaissance."))
			})

			It("alternates assistant and user roles from each speaker's seat", func() {
				m.NextTurn(ctx, 1)
				m.NextTurn(ctx, 2)
				aStub.reply = "Fair, ticketing is half the battle."
				m.NextTurn(ctx, 3)
				m.NextTurn(ctx, 4)

				// Turn 3 is A's view of [A, B].
				turn3 := aStub.requests[1]
				Expect(turn3.Messages).To(HaveLen(3))
				Expect(turn3.Messages[1].Role).To(Equal(llm.RoleAssistant))
				Expect(turn3.Messages[2].Role).To(Equal(llm.RoleUser))

				// Turn 4 is B's view of [A, B, A].
				turn4 := bStub.requests[1]
				Expect(turn4.Messages).To(HaveLen(4))
				Expect(turn4.Messages[1].Role).To(Equal(llm.RoleUser))
				Expect(turn4.Messages[2].Role).To(Equal(llm.RoleAssistant))
				Expect(turn4.Messages[3].Role).To(Equal(llm.RoleUser))
				Expect(turn4.Messages[3].GetText()).To(Equal("Fair, ticketing is half the battle."))
			})

			It("nudges the model when its own reply is the last entry", func() {
				m.NextTurn(ctx, 1)
				m.NextTurn(ctx, 3)

				req := aStub.requests[1]
				Expect(req.Messages).To(HaveLen(3))
				Expect(req.Messages[1].Role).To(Equal(llm.RoleAssistant))
				Expect(req.Messages[2].Role).To(Equal(llm.RoleUser))
				Expect(req.Messages[2].GetText()).To(Equal("Please continue the conversation."))
			})
		})

		Context("when the provider fails", func() {
			It("reports the error as data and leaves the transcript alone", func() {
				aStub.err = errors.New("model overloaded")

				result := m.NextTurn(ctx, 1)

				Expect(result.Failed()).To(BeTrue())
				Expect(result.Err).To(ContainSubstring("model overloaded"))
				Expect(result.Content).To(BeEmpty())
				Expect(m.Len()).To(BeZero())
			})

			It("rejects turn numbers below 1", func() {
				result := m.NextTurn(ctx, 0)

				Expect(result.Failed()).To(BeTrue())
				Expect(result.Err).To(ContainSubstring("at least 1"))
				Expect(aStub.requests).To(BeEmpty())
				Expect(bStub.requests).To(BeEmpty())
			})
		})
	})

	Describe("turn events", func() {
		var (
			pub *stubPublisher
			m   *conversation.Manager
		)

		BeforeEach(func() {
			pub = &stubPublisher{}
			cfg.Publisher = pub
			aStub.usage = &llm.Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}

			var err error
			m, err = conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("publishes one event per successful turn", func() {
			m.NextTurn(ctx, 1)

			Expect(pub.events).To(HaveLen(1))
			event := pub.events[0]
			Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
			Expect(event.EventID).NotTo(BeEmpty())
			Expect(event.EmittedAt).NotTo(BeZero())
			Expect(event.ConversationID).To(Equal(m.ID()))
			Expect(event.Topic).To(Equal(topic))
			Expect(event.Turn.Number).To(Equal(1))
			Expect(event.Turn.Speaker).To(Equal("A"))
			Expect(event.Turn.Nickname).To(Equal("Alice"))
			Expect(event.Turn.Provider).To(Equal("stub"))
			Expect(event.Turn.Model).To(Equal("gpt-4.1-mini"))
			Expect(event.Turn.Content).To(Equal("Rail is due for a renaissance."))
			Expect(event.Turn.Usage.TotalTokens).To(Equal(16))
		})

		It("publishes nothing for failed turns", func() {
			aStub.err = errors.New("model overloaded")

			m.NextTurn(ctx, 1)

			Expect(pub.events).To(BeEmpty())
		})

		It("keeps the turn successful when publishing fails", func() {
			pub.err = errors.New("broker unavailable")

			result := m.NextTurn(ctx, 1)

			Expect(result.Failed()).To(BeFalse())
			Expect(m.Len()).To(Equal(1))
		})
	})

	Describe("Transcript", func() {
		It("returns a copy the caller cannot use to mutate history", func() {
			m, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			m.NextTurn(ctx, 1)

			snapshot := m.Transcript()
			snapshot[0].Content = "tampered"

			Expect(m.Transcript()[0].Content).To(Equal("Rail is due for a renaissance."))
		})
	})

	Describe("Reset", func() {
		It("clears the transcript and keeps the conversation ID", func() {
			m, err := conversation.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			m.NextTurn(ctx, 1)
			m.NextTurn(ctx, 2)
			id := m.ID()

			m.Reset()

			Expect(m.Len()).To(BeZero())
			Expect(m.Transcript()).To(BeEmpty())
			Expect(m.ID()).To(Equal(id))

			// A reset conversation bootstraps again from scratch.
			m.NextTurn(ctx, 1)
			Expect(aStub.requests[1].Messages).To(HaveLen(2))
		})
	})
})
