// Package indexctx builds the shared pkg/mvp.Index, pkg/items.Store, and
// pkg/hasher.Hasher that every imghash subcommand operates on, resolved from
// a loaded *config.Config. This mirrors cmd/tapes/sqlitepath's role: one
// small shared resolver instead of every subcommand repeating the same
// open-and-wire sequence.
package indexctx

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/eventstream"
	"github.com/s-bear/image-hash/pkg/eventstream/kafka"
	"github.com/s-bear/image-hash/pkg/hasher"
	"github.com/s-bear/image-hash/pkg/items"
	"github.com/s-bear/image-hash/pkg/mvp"
)

// Context bundles the index, item store, and hasher a command needs,
// along with the logger they were built with.
type Context struct {
	Index  *mvp.Index
	Items  *items.Store
	Hasher hasher.Hasher
	Logger *zap.Logger
}

// Open opens the index and item store at cfg.Index.Path, sharing one
// on-disk SQLite file, and resolves the configured hasher and publisher.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Context, error) {
	h, err := resolveHasher(cfg.Index.Hasher, cfg.Index.DCTSize)
	if err != nil {
		return nil, err
	}

	publisher, err := resolvePublisher(cfg)
	if err != nil {
		return nil, err
	}

	idx, err := mvp.Open(ctx, mvp.Config{
		Path:      cfg.Index.Path,
		Distance:  hasher.Distance,
		Logger:    logger,
		Publisher: publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	itemStore, err := items.Open(ctx, cfg.Index.Path)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("opening item store: %w", err)
	}

	return &Context{
		Index:  idx,
		Items:  itemStore,
		Hasher: h,
		Logger: logger,
	}, nil
}

// Close closes the item store and index, returning the first error
// encountered (both are attempted regardless).
func (c *Context) Close() error {
	itemsErr := c.Items.Close()
	indexErr := c.Index.Close()
	if itemsErr != nil {
		return itemsErr
	}
	return indexErr
}

// IngestImage hashes img with the configured hasher, inserts the resulting
// point, and records path in the item store. Returns the new point id.
func (c *Context) IngestImage(ctx context.Context, img image.Image, path string) (int64, error) {
	sum, err := c.Hasher.Hash(img)
	if err != nil {
		return 0, fmt.Errorf("hashing image: %w", err)
	}

	pointID, err := c.Index.InsertPoint(ctx, sum)
	if err != nil {
		return 0, fmt.Errorf("inserting point: %w", err)
	}

	if _, err := c.Items.Insert(ctx, path, pointID); err != nil {
		return 0, fmt.Errorf("recording item: %w", err)
	}

	return pointID, nil
}

func resolveHasher(name string, dctSize int) (hasher.Hasher, error) {
	switch name {
	case "", "block":
		return hasher.BlockHash{}, nil
	case "dct":
		return hasher.NewDCTHash(dctSize)
	default:
		return nil, fmt.Errorf("unknown hasher %q (expected \"block\" or \"dct\")", name)
	}
}

func resolvePublisher(cfg *config.Config) (eventstream.Publisher, error) {
	if len(cfg.EventStream.KafkaBrokers) == 0 {
		return nil, nil
	}

	return kafka.NewPublisher(kafka.Config{
		Brokers: cfg.EventStream.KafkaBrokers,
		Topic:   cfg.EventStream.KafkaTopic,
	})
}
