package mvp

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("shellBits and shellMask", func() {
	It("places each vantage point's two bits at a disjoint offset", func() {
		Expect(shellBits(3, 1)).To(Equal(int64(0b11)))
		Expect(shellBits(3, 2)).To(Equal(int64(0b1100)))
		Expect(shellMask(1)).To(Equal(int64(0b11)))
		Expect(shellMask(2)).To(Equal(int64(0b1100)))
	})
})

var _ = Describe("shellOf", func() {
	It("classifies distances against ascending boundaries", func() {
		Expect(shellOf(0, 2, 5, 9)).To(Equal(0))
		Expect(shellOf(2, 2, 5, 9)).To(Equal(1))
		Expect(shellOf(4, 2, 5, 9)).To(Equal(1))
		Expect(shellOf(5, 2, 5, 9)).To(Equal(2))
		Expect(shellOf(9, 2, 5, 9)).To(Equal(3))
		Expect(shellOf(1000, 2, 5, 9)).To(Equal(3))
	})

	It("puts everything in shell 3 when boundaries are all zero", func() {
		Expect(shellOf(0, 0, 0, 0)).To(Equal(3))
		Expect(shellOf(5, 0, 0, 0)).To(Equal(3))
	})
})

var _ = Describe("intersectingShells", func() {
	It("returns only the unbounded shell when boundaries are collapsed", func() {
		shells := intersectingShells(3, 1, 0, 0, 0)
		Expect(shells).To(Equal([]int{3}))
	})

	It("returns every shell the query ball overlaps", func() {
		shells := intersectingShells(5, 1, 2, 5, 9)
		Expect(shells).To(ContainElements(1, 2))
	})

	It("clamps a negative lower bound to zero", func() {
		shells := intersectingShells(0, 10, 2, 5, 9)
		Expect(shells).To(Equal([]int{0, 1, 2, 3}))
	})

	It("never returns a degenerate shell", func() {
		shells := intersectingShells(0, 0, 0, 5, 9)
		Expect(shells).NotTo(ContainElement(0))
	})
})

var _ = Describe("shellRanges", func() {
	It("leaves the outermost shell unbounded", func() {
		ranges := shellRanges(2, 5, 9)
		Expect(ranges[3].high).To(Equal(int64(math.MaxInt64)))
	})
})
