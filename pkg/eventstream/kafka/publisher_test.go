package kafka_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/s-bear/image-hash/pkg/eventstream/kafka"
)

var _ = Describe("NewPublisher", func() {
	It("rejects an empty broker list", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "imghash-events"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("builds a publisher given valid config", func() {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: []string{"localhost:9092"},
			Topic:   "imghash-events",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).NotTo(BeNil())
		Expect(p.Close()).To(Succeed())
	})
})
