package endpoints_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokend/pkg/endpoints"
)

var _ = Describe("Order", func() {
	It("returns a permutation covering the full endpoint set", func() {
		set := []string{"https://a/token", "https://b/token", "https://c/token"}

		order := endpoints.Order(set)

		Expect(order).To(HaveLen(3))
		Expect(order).To(ConsistOf(set[0], set[1], set[2]))
	})

	It("does not mutate the input set", func() {
		set := []string{"https://a/token", "https://b/token", "https://c/token"}

		for i := 0; i < 50; i++ {
			endpoints.Order(set)
		}

		Expect(set).To(Equal([]string{"https://a/token", "https://b/token", "https://c/token"}))
	})

	It("re-samples the order on every call", func() {
		set := []string{"https://a/token", "https://b/token"}

		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			order := endpoints.Order(set)
			seen[order[0]] = true
		}

		// With 200 independent draws the chance of never seeing one of the
		// two possible leading endpoints is 2^-200.
		Expect(seen).To(HaveLen(2))
	})

	It("handles an empty set", func() {
		Expect(endpoints.Order(nil)).To(BeEmpty())
	})

	It("handles a single endpoint", func() {
		Expect(endpoints.Order([]string{"https://a/token"})).To(Equal([]string{"https://a/token"}))
	})
})

var _ = Describe("DefaultEndpoints", func() {
	It("contains at least two interchangeable endpoints", func() {
		Expect(len(endpoints.DefaultEndpoints)).To(BeNumerically(">=", 2))
	})
})
