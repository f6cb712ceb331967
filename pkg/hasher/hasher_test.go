package hasher_test

import (
	"image"
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/s-bear/image-hash/pkg/hasher"
)

func solidImage(w, h int, c color.Gray) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, c)
		}
	}
	return img
}

func checkerboardImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

var _ = Describe("BlockHash", func() {
	var h hasher.BlockHash

	It("produces an 8-byte hash", func() {
		hash, err := h.Hash(solidImage(64, 64, color.Gray{Y: 128}))
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).To(HaveLen(8))
	})

	It("errors on a nil image", func() {
		_, err := h.Hash(nil)
		Expect(err).To(HaveOccurred())
	})

	It("produces identical hashes for identical images", func() {
		img := checkerboardImage(64, 64)
		h1, err := h.Hash(img)
		Expect(err).NotTo(HaveOccurred())
		h2, err := h.Hash(img)
		Expect(err).NotTo(HaveOccurred())
		Expect(h1).To(Equal(h2))
	})

	It("produces a different hash for a very different image", func() {
		blackHash, err := h.Hash(solidImage(64, 64, color.Gray{Y: 0}))
		Expect(err).NotTo(HaveOccurred())

		checkerHash, err := h.Hash(checkerboardImage(64, 64))
		Expect(err).NotTo(HaveOccurred())

		d, err := hasher.Distance(blackHash, checkerHash)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeNumerically(">", 0))
	})
})

var _ = Describe("NewDCTHash", func() {
	It("accepts the documented sizes", func() {
		for _, size := range []int{8, 16, 24, 32} {
			_, err := hasher.NewDCTHash(size)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("rejects an unsupported size", func() {
		_, err := hasher.NewDCTHash(10)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("DCTHash", func() {
	It("produces a hash of the expected byte length for each size", func() {
		for size, wantBytes := range map[int]int{8: 8, 16: 32, 24: 72, 32: 128} {
			h, err := hasher.NewDCTHash(size)
			Expect(err).NotTo(HaveOccurred())

			hash, err := h.Hash(checkerboardImage(64, 64))
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(HaveLen(wantBytes))
		}
	})

	It("errors on a nil image", func() {
		h, err := hasher.NewDCTHash(8)
		Expect(err).NotTo(HaveOccurred())
		_, err = h.Hash(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Distance", func() {
	It("is zero for identical hashes", func() {
		d, err := hasher.Distance([]byte{0xAA, 0xBB}, []byte{0xAA, 0xBB})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("counts differing bits", func() {
		d, err := hasher.Distance([]byte{0x00}, []byte{0xFF})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(uint32(8)))
	})

	It("errors when lengths differ", func() {
		_, err := hasher.Distance([]byte{0x00}, []byte{0x00, 0x00})
		Expect(err).To(MatchError(hasher.ErrLengthMismatch))
	})
})
