package publisher

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewEvent", func() {
	It("returns an error when the server key is empty", func() {
		event, err := NewEvent("", 3, time.Second)
		Expect(err).To(MatchError(ErrEmptyKey))
		Expect(event).To(BeNil())
	})

	It("sets schema, payload fields, and timestamp", func() {
		before := time.Now()
		event, err := NewEvent("ALPHA", 3, 1500*time.Millisecond)
		after := time.Now()

		Expect(err).NotTo(HaveOccurred())
		Expect(event).NotTo(BeNil())
		Expect(event.Schema).To(Equal(SchemaRefreshV1))
		Expect(event.Key).To(Equal("ALPHA"))
		Expect(event.TokenCount).To(Equal(3))
		Expect(event.DurationMS).To(Equal(int64(1500)))
		Expect(event.OccurredAt).To(BeTemporally(">=", before))
		Expect(event.OccurredAt).To(BeTemporally("<=", after.Add(50*time.Millisecond)))
	})

	It("allows a zero token count for degraded refreshes", func() {
		event, err := NewEvent("BETA", 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.TokenCount).To(BeZero())
	})
})
