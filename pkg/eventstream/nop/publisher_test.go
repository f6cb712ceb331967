package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/s-bear/image-hash/pkg/eventstream"
	"github.com/s-bear/image-hash/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrUnknownEventType for an empty event", func() {
		p := nop.NewPublisher()
		err := p.Publish(context.Background(), eventstream.Event{})
		Expect(err).To(MatchError(eventstream.ErrUnknownEventType))
	})

	It("succeeds for a well-formed event", func() {
		p := nop.NewPublisher()
		err := p.Publish(context.Background(), eventstream.NewPointInsertedEvent(1, "deadbeef"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
