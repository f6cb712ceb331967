// Package ingestcmder provides the ingest command for hashing and indexing
// files or directories of images.
package ingestcmder

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/cliui"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
)

const ingestLongDesc string = `Hash and index one or more image files or directories.

Directories are walked recursively; every regular file found is hashed and
inserted into the index, and its path is recorded in the item store so query
results can be reported by path rather than opaque point id.

Examples:
  imghash ingest photo.jpg
  imghash ingest ./photos/`

const ingestShortDesc string = "Hash and index files or directories"

type ingestCommander struct {
	debug     bool
	configDir string
}

// NewIngestCmd builds the ingest command.
func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest PATH...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
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
			return cmder.run(args)
		},
	}

	return cmd
}

func (c *ingestCommander) run(paths []string) error {
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

	ictx, err := indexctx.Open(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer ictx.Close()

	files, err := expandPaths(paths)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range files {
		err := cliui.Step(os.Stdout, path, func() error {
			return ingestOne(context.Background(), ictx, path)
		})
		if err != nil {
			log.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(files))
	}
	return nil
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

// expandPaths walks every directory argument, collecting regular files, and
// passes file arguments through unchanged.
func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			files = append(files, p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}
	return files, nil
}
