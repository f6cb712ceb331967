package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/watch"
)

var _ = Describe("Watcher", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "watch-test-")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("rejects a missing root", func() {
		_, err := watch.New(watch.Config{}, func(string) error { return nil })
		Expect(err).To(HaveOccurred())
	})

	It("rejects a nil callback", func() {
		_, err := watch.New(watch.Config{Root: dir}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("calls back once a new file has been quiet for the debounce window", func() {
		var (
			mu  sync.Mutex
			got []string
		)

		w, err := watch.New(watch.Config{
			Root:     dir,
			Debounce: 20 * time.Millisecond,
			Logger:   zap.NewNop(),
		}, func(path string) error {
			mu.Lock()
			got = append(got, path)
			mu.Unlock()
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go w.Run(runCtx)

		target := filepath.Join(dir, "photo.jpg")
		Expect(os.WriteFile(target, []byte("data"), 0o644)).To(Succeed())

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), got...)
		}, time.Second, 10*time.Millisecond).Should(ContainElement(target))
	})

	It("closes cleanly with no pending events", func() {
		w, err := watch.New(watch.Config{Root: dir}, func(string) error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
	})
})
