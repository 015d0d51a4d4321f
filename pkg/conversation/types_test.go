package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosstalkco/crosstalk/pkg/conversation"
)

var _ = Describe("Speaker", func() {
	Describe("SpeakerFor", func() {
		It("assigns odd turns to A and even turns to B", func() {
			Expect(conversation.SpeakerFor(1)).To(Equal(conversation.SpeakerA))
			Expect(conversation.SpeakerFor(2)).To(Equal(conversation.SpeakerB))
			Expect(conversation.SpeakerFor(3)).To(Equal(conversation.SpeakerA))
			Expect(conversation.SpeakerFor(4)).To(Equal(conversation.SpeakerB))
		})
	})

	Describe("Other", func() {
		It("returns the opposite position", func() {
			Expect(conversation.SpeakerA.Other()).To(Equal(conversation.SpeakerB))
			Expect(conversation.SpeakerB.Other()).To(Equal(conversation.SpeakerA))
		})
	})
})

var _ = Describe("TurnResult", func() {
	It("reports failure only when an error is set", func() {
		Expect(conversation.TurnResult{Content: "hello"}.Failed()).To(BeFalse())
		Expect(conversation.TurnResult{Err: "boom"}.Failed()).To(BeTrue())
	})
})
