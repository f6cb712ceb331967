package hasher

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("tileSize", func() {
	It("distributes groups summing to a", func() {
		sizes := tileSize(10, 3)
		Expect(sizes).To(HaveLen(3))
		var sum int
		for _, s := range sizes {
			sum += s
		}
		Expect(sum).To(Equal(10))
	})

	It("gives every output one input sample when sizes match", func() {
		sizes := tileSize(5, 5)
		for _, s := range sizes {
			Expect(s).To(Equal(1))
		}
	})
})

var _ = Describe("resizeGray", func() {
	It("averages a uniform image down to a smaller uniform image", func() {
		src := make([][]float64, 8)
		for y := range src {
			src[y] = make([]float64, 8)
			for x := range src[y] {
				src[y][x] = 0.5
			}
		}
		out := resizeGray(src, 4, 4)
		Expect(out).To(HaveLen(4))
		for _, row := range out {
			Expect(row).To(HaveLen(4))
			for _, v := range row {
				Expect(v).To(BeNumerically("~", 0.5, 1e-9))
			}
		}
	})

	It("is a no-op when dimensions already match", func() {
		src := [][]float64{{1, 2}, {3, 4}}
		out := resizeGray(src, 2, 2)
		Expect(out).To(Equal(src))
	})
})
