package items_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/s-bear/image-hash/pkg/items"
)

var _ = Describe("Store", func() {
	var (
		store *items.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = items.Open(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Insert", func() {
		It("assigns a fresh id to a new path", func() {
			id, err := store.Insert(ctx, "photos/a.jpg", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(1)))
		})

		It("is idempotent on path and keeps the original point id", func() {
			id1, err := store.Insert(ctx, "photos/a.jpg", 1)
			Expect(err).NotTo(HaveOccurred())

			id2, err := store.Insert(ctx, "photos/a.jpg", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1))

			item, err := store.Get(ctx, "photos/a.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.PointID).To(Equal(int64(1)))
		})
	})

	Describe("Get", func() {
		It("returns ErrNotFound for a missing path", func() {
			_, err := store.Get(ctx, "missing.jpg")
			var notFound items.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFound))
		})

		It("retrieves a stored item", func() {
			_, err := store.Insert(ctx, "photos/a.jpg", 7)
			Expect(err).NotTo(HaveOccurred())

			item, err := store.Get(ctx, "photos/a.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Path).To(Equal("photos/a.jpg"))
			Expect(item.PointID).To(Equal(int64(7)))
		})
	})

	Describe("PathForPoint", func() {
		It("returns the path recorded for a point id", func() {
			_, err := store.Insert(ctx, "photos/a.jpg", 5)
			Expect(err).NotTo(HaveOccurred())

			path, err := store.PathForPoint(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("photos/a.jpg"))
		})

		It("returns ErrNotFound for an unknown point id", func() {
			_, err := store.PathForPoint(ctx, 99)
			var notFound items.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFound))
		})
	})

	Describe("Exists", func() {
		It("reports false for a missing path", func() {
			ok, err := store.Exists(ctx, "missing.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reports true once inserted", func() {
			_, err := store.Insert(ctx, "photos/a.jpg", 1)
			Expect(err).NotTo(HaveOccurred())

			ok, err := store.Exists(ctx, "photos/a.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Rename", func() {
		BeforeEach(func() {
			_, err := store.Insert(ctx, "photos/a.jpg", 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("moves the path in place", func() {
			Expect(store.Rename(ctx, "photos/a.jpg", "photos/b.jpg")).To(Succeed())

			_, err := store.Get(ctx, "photos/a.jpg")
			Expect(err).To(HaveOccurred())

			item, err := store.Get(ctx, "photos/b.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.PointID).To(Equal(int64(1)))
		})

		It("errors when the source path is unknown", func() {
			err := store.Rename(ctx, "missing.jpg", "photos/c.jpg")
			var notFound items.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFound))
		})

		It("errors when the destination path already exists", func() {
			_, err := store.Insert(ctx, "photos/b.jpg", 2)
			Expect(err).NotTo(HaveOccurred())

			err = store.Rename(ctx, "photos/a.jpg", "photos/b.jpg")
			var existsErr items.ErrExists
			Expect(err).To(BeAssignableToTypeOf(existsErr))
		})
	})

	Describe("Remove", func() {
		It("deletes an existing item", func() {
			_, err := store.Insert(ctx, "photos/a.jpg", 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Remove(ctx, "photos/a.jpg")).To(Succeed())

			ok, err := store.Exists(ctx, "photos/a.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("is idempotent for a missing path", func() {
			Expect(store.Remove(ctx, "missing.jpg")).To(Succeed())
		})
	})
})
