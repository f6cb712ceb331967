package mvp_test

import (
	"context"
	"math/bits"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/mvp"
)

// hammingDistance is the reference metric used throughout these tests: it
// satisfies the Distance Oracle's contract (non-negative, symmetric,
// identity-of-indiscernibles, triangle inequality) over equal-length byte
// strings.
func hammingDistance(a, b []byte) (uint32, error) {
	var d uint32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d += uint32(bits.OnesCount8(a[i] ^ b[i]))
	}
	return d, nil
}

var _ = Describe("Index", func() {
	var (
		ctx    context.Context
		logger *zap.Logger
		idx    *mvp.Index
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = zap.NewNop()

		var err error
		idx, err = mvp.Open(ctx, mvp.Config{
			Path:     ":memory:",
			Distance: hammingDistance,
			Logger:   logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(idx.Close()).To(Succeed())
	})

	Describe("Open", func() {
		It("starts with an empty index", func() {
			points, err := idx.CountPoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(BeZero())

			vps, err := idx.CountVantagePoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(vps).To(BeZero())
		})

		It("returns zero matches querying an empty index", func() {
			n, err := idx.Query(ctx, []byte{0x00}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("rejects a nil distance function", func() {
			_, err := mvp.Open(ctx, mvp.Config{Path: ":memory:"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("InsertPoint", func() {
		It("assigns a fresh id to a new point", func() {
			id, err := idx.InsertPoint(ctx, []byte{0xAA})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(1)))

			n, err := idx.CountPoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("deduplicates equal values and returns the same id", func() {
			id1, err := idx.InsertPoint(ctx, []byte{0xAA})
			Expect(err).NotTo(HaveOccurred())

			id2, err := idx.InsertPoint(ctx, []byte{0xAA})
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1))

			n, err := idx.CountPoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("accepts points before any vantage point exists", func() {
			_, err := idx.InsertPoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			_, err = idx.InsertPoint(ctx, []byte{0xFF})
			Expect(err).NotTo(HaveOccurred())

			n, err := idx.CountPoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
		})
	})

	Describe("PointValue", func() {
		It("returns the stored bytes for a known point id", func() {
			id, err := idx.InsertPoint(ctx, []byte{0xAA})
			Expect(err).NotTo(HaveOccurred())

			value, err := idx.PointValue(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal([]byte{0xAA}))
		})

		It("returns ErrPointNotFound for an unknown id", func() {
			_, err := idx.PointValue(ctx, 999)
			Expect(err).To(MatchError(mvp.ErrPointNotFound))
		})
	})

	Describe("PointPartition", func() {
		It("returns the partition key computed at insertion", func() {
			_, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			id, err := idx.InsertPoint(ctx, []byte{0xFF})
			Expect(err).NotTo(HaveOccurred())

			partition, err := idx.PointPartition(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(partition).NotTo(BeZero())
		})

		It("returns ErrPointNotFound for an unknown id", func() {
			_, err := idx.PointPartition(ctx, 999)
			Expect(err).To(MatchError(mvp.ErrPointNotFound))
		})
	})

	Describe("InsertVantagePoint", func() {
		It("promotes a point's value to a vantage point", func() {
			vpID, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			Expect(vpID).To(Equal(int64(1)))

			n, err := idx.CountVantagePoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("treats re-promoting the same value as idempotent", func() {
			vpID1, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			vpID2, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).To(MatchError(mvp.ErrVantagePointExists))
			Expect(vpID2).To(Equal(vpID1))
		})

		It("backfills distances for points inserted before promotion", func() {
			_, err := idx.InsertPoint(ctx, []byte{0xFF})
			Expect(err).NotTo(HaveOccurred())

			_, err = idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			stats, err := idx.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(1))
			// one point, unbalanced below the sample threshold: everything
			// falls into the outermost shell
			Expect(stats[0].Count3).To(Equal(int64(1)))
		})

		It("keeps queries correct across points inserted after promotion", func() {
			_, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			_, err = idx.InsertPoint(ctx, []byte{0xFF})
			Expect(err).NotTo(HaveOccurred())

			n, err := idx.Query(ctx, []byte{0xFF}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("enforces the 32 vantage point capacity", func() {
			for i := 0; i < 32; i++ {
				_, err := idx.InsertVantagePoint(ctx, []byte{byte(i), byte(i >> 8)})
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := idx.InsertVantagePoint(ctx, []byte{0xFE, 0xFE})
			Expect(err).To(MatchError(mvp.ErrCapacity))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			for _, v := range [][]byte{{0x00}, {0x01}, {0x03}, {0x07}, {0xFF}} {
				_, err := idx.InsertPoint(ctx, v)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("finds exact matches at radius zero", func() {
			n, err := idx.Query(ctx, []byte{0x03}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("never misses a point within radius (soundness)", func() {
			n, err := idx.Query(ctx, []byte{0x00}, 1)
			Expect(err).NotTo(HaveOccurred())
			// 0x00 itself and 0x01 (Hamming distance 1) qualify
			Expect(n).To(Equal(int64(2)))
		})

		It("stays correct after a vantage point is promoted", func() {
			_, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			n, err := idx.Query(ctx, []byte{0x00}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
		})

		It("returns every point when the radius covers the whole space", func() {
			n, err := idx.Query(ctx, []byte{0x00}, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(5)))
		})

		It("makes matching ids and distances readable via QueryResults", func() {
			n, err := idx.Query(ctx, []byte{0x00}, 1)
			Expect(err).NotTo(HaveOccurred())

			results, err := idx.QueryResults(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(int(n)))

			for i := 1; i < len(results); i++ {
				Expect(results[i].Distance).To(BeNumerically(">=", results[i-1].Distance))
			}
			for _, r := range results {
				Expect(r.Distance).To(BeNumerically("<=", 1))
			}
		})
	})

	Describe("Balance", func() {
		It("brings shell counts within one of N/4 for N>=8", func() {
			vpID, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 50; i++ {
				_, err := idx.InsertPoint(ctx, []byte{byte(i), byte(i * 7)})
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(idx.Balance(ctx, vpID)).To(Succeed())

			stats, err := idx.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(1))

			n, err := idx.CountPoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			quarter := float64(n) / 4

			s := stats[0]
			Expect(float64(s.Count0)).To(BeNumerically("~", quarter, 1))
			Expect(float64(s.Count1)).To(BeNumerically("~", quarter, 1))
			Expect(float64(s.Count2)).To(BeNumerically("~", quarter, 1))
			Expect(float64(s.Count3)).To(BeNumerically("~", quarter, 1))
		})

		It("is idempotent when re-run against unchanged data", func() {
			vpID, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 20; i++ {
				_, err := idx.InsertPoint(ctx, []byte{byte(i), byte(i * 3)})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(idx.Balance(ctx, vpID)).To(Succeed())

			first, err := idx.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(idx.Balance(ctx, vpID)).To(Succeed())

			second, err := idx.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
		})
	})

	Describe("CheckBalance", func() {
		It("returns nothing below the minimum sample count", func() {
			vpID, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			_ = vpID

			ids, err := idx.CheckBalance(ctx, 100, 0.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("FindVantagePoint", func() {
		It("errors on an empty index", func() {
			_, err := idx.FindVantagePoint(ctx, 25)
			Expect(err).To(MatchError(mvp.ErrEmptyIndex))
		})

		It("prefers the point maximizing distance sum when no vantage point exists", func() {
			for _, v := range [][]byte{{0x00}, {0x00}, {0xFF}} {
				if v[0] == 0x00 {
					continue
				}
				_, err := idx.InsertPoint(ctx, v)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := idx.InsertPoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			_, err = idx.InsertPoint(ctx, []byte{0x0F})
			Expect(err).NotTo(HaveOccurred())

			value, err := idx.FindVantagePoint(ctx, 25)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).NotTo(BeNil())
			// Distance sums: 0xFF and 0x00 score 12 each, 0x0F scores 8.
			Expect(value).To(Or(Equal([]byte{0xFF}), Equal([]byte{0x00})))
		})

		It("returns a value from the maximum-partition bucket once a vantage point exists", func() {
			_, err := idx.InsertVantagePoint(ctx, []byte{0x00})
			Expect(err).NotTo(HaveOccurred())
			_, err = idx.InsertPoint(ctx, []byte{0xFF})
			Expect(err).NotTo(HaveOccurred())

			value, err := idx.FindVantagePoint(ctx, 25)
			Expect(err).NotTo(HaveOccurred())
			Expect(value).NotTo(BeNil())
			Expect(value).To(Equal([]byte{0xFF}))
		})
	})

	Describe("AutoVantagePoint", func() {
		It("does not exceed the 32 vantage point capacity", func() {
			for i := 0; i < 500; i++ {
				_, err := idx.InsertPoint(ctx, []byte{byte(i), byte(i >> 8), byte(i >> 16)})
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := idx.AutoVantagePoint(ctx, 2)
			Expect(err).NotTo(HaveOccurred())

			n, err := idx.CountVantagePoints(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically("<=", 32))
		})
	})
})
