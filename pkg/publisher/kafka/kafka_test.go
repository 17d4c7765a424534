package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	basepublisher "github.com/papercomputeco/tokend/pkg/publisher"
)

type mockWriter struct {
	writes     []Message
	writeErr   error
	closeErr   error
	closeCalls int
}

func (m *mockWriter) WriteMessages(_ context.Context, messages ...Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	m.writes = append(m.writes, messages...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closeCalls++
	return m.closeErr
}

func buildRefreshTestEvent() *basepublisher.Event {
	event, err := basepublisher.NewEvent("ALPHA", 3, 2*time.Second)
	Expect(err).NotTo(HaveOccurred())
	return event
}

var _ = Describe("NewPublisher", func() {
	It("returns an error when brokers are not configured", func() {
		pub, err := NewPublisher(Config{
			Topic: "tokend.refreshes.v1",
		})

		Expect(err).To(HaveOccurred())
		Expect(pub).To(BeNil())
	})

	It("returns an error when topic is empty", func() {
		pub, err := NewPublisher(Config{
			Brokers: []string{"localhost:9092"},
		})

		Expect(err).To(HaveOccurred())
		Expect(pub).To(BeNil())
	})
})

var _ = Describe("Publisher", func() {
	It("writes one keyed message containing a marshaled Event payload", func() {
		writer := &mockWriter{}
		pub, err := newPublisherWithWriter(Config{
			Topic:          "tokend.refreshes.v1",
			PublishTimeout: 2 * time.Second,
		}, writer)
		Expect(err).NotTo(HaveOccurred())

		event := buildRefreshTestEvent()
		err = pub.Publish(context.Background(), event)
		Expect(err).NotTo(HaveOccurred())

		Expect(writer.writes).To(HaveLen(1))
		Expect(string(writer.writes[0].Key)).To(Equal("ALPHA"))

		var decoded basepublisher.Event
		Expect(json.Unmarshal(writer.writes[0].Value, &decoded)).To(Succeed())
		Expect(decoded.Schema).To(Equal(basepublisher.SchemaRefreshV1))
		Expect(decoded.Key).To(Equal("ALPHA"))
		Expect(decoded.TokenCount).To(Equal(3))
	})

	It("returns writer errors from Publish", func() {
		writer := &mockWriter{
			writeErr: errors.New("write failed"),
		}
		pub, err := newPublisherWithWriter(Config{
			Topic: "tokend.refreshes.v1",
		}, writer)
		Expect(err).NotTo(HaveOccurred())

		err = pub.Publish(context.Background(), buildRefreshTestEvent())
		Expect(err).To(MatchError(ContainSubstring("write failed")))
	})

	It("returns an error from Publish for nil events", func() {
		writer := &mockWriter{}
		pub, err := newPublisherWithWriter(Config{
			Topic: "tokend.refreshes.v1",
		}, writer)
		Expect(err).NotTo(HaveOccurred())

		err = pub.Publish(context.Background(), nil)
		Expect(err).To(MatchError(errNilEvent))
	})

	It("delegates Close to the underlying writer", func() {
		writer := &mockWriter{}
		pub, err := newPublisherWithWriter(Config{
			Topic: "tokend.refreshes.v1",
		}, writer)
		Expect(err).NotTo(HaveOccurred())

		Expect(pub.Close()).To(Succeed())
		Expect(writer.closeCalls).To(Equal(1))
	})
})
