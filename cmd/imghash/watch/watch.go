// Package watchcmder provides the watch command for continuously ingesting
// new or changed files under a directory.
package watchcmder

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
	"github.com/s-bear/image-hash/pkg/watch"
)

const watchLongDesc string = `Watch a directory and ingest new or changed image files as they appear.

Recursively watches DIR, including subdirectories created after startup.
A file is ingested once it has gone watch.debounce_ms (200ms by default)
without a further write, so
in-progress copies are not hashed mid-write. Runs until interrupted.

Examples:
  imghash watch ./incoming/`

const watchShortDesc string = "Ingest new files as they appear under a directory"

type watchCommander struct {
	debug     bool
	configDir string
}

// NewWatchCmd builds the watch command.
func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}
			return cmder.run(args[0])
		},
	}

	return cmd
}

func (c *watchCommander) run(dir string) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	bgCtx := context.Background()

	ictx, err := indexctx.Open(bgCtx, cfg, log)
	if err != nil {
		return err
	}
	defer ictx.Close()

	w, err := watch.New(watch.Config{
		Root:     dir,
		Debounce: watchDebounce(cfg.Watch.DebounceMS),
		Logger:   log,
	}, func(path string) error {
		return ingestOne(bgCtx, ictx, path)
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	log.Info("watching for changes", zap.String("root", dir))

	runCtx, cancel := context.WithCancel(bgCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Run(runCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil && runCtx.Err() == nil {
			return fmt.Errorf("watcher stopped: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		return nil
	}
}

func ingestOne(ctx context.Context, ictx *indexctx.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	_, err = ictx.IngestImage(ctx, img, path)
	return err
}

func watchDebounce(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
