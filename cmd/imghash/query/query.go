// Package querycmder provides the query command for finding indexed images
// similar to a given file.
package querycmder

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
	"github.com/s-bear/image-hash/pkg/mvp"
)

const queryLongDesc string = `Find indexed images similar to FILE.

Hashes FILE, runs a radius-bounded similarity query against the index, and
prints matching paths sorted by Hamming distance.

Examples:
  imghash query photo.jpg --radius 4
  imghash query photo.jpg --radius 8 --limit 10`

const queryShortDesc string = "Find indexed images similar to a file"

type queryCommander struct {
	radius    uint
	limit     int
	debug     bool
	configDir string
}

// NewQueryCmd builds the query command.
func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: queryShortDesc,
		Long:  queryLongDesc,
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

	cmd.Flags().UintVar(&cmder.radius, "radius", 4, "Maximum Hamming distance to match")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Maximum number of results to print (0 for no limit)")

	return cmd
}

func (c *queryCommander) run(path string) error {
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

	ctx := context.Background()

	ictx, err := indexctx.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer ictx.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	sum, err := ictx.Hasher.Hash(img)
	if err != nil {
		return fmt.Errorf("hashing image: %w", err)
	}

	if _, err := ictx.Index.Query(ctx, sum, uint32(c.radius)); err != nil {
		return fmt.Errorf("querying index: %w", err)
	}

	results, err := ictx.Index.QueryResults(ctx)
	if err != nil {
		return fmt.Errorf("reading query results: %w", err)
	}

	if c.limit > 0 && len(results) > c.limit {
		results = results[:c.limit]
	}

	printResults(ctx, os.Stdout, ictx, results)
	return nil
}

// printResults prints results in the ascending-distance order QueryResults
// already returns them in.
func printResults(ctx context.Context, w *os.File, ictx *indexctx.Context, results []mvp.QueryResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No similar images found.")
		return
	}

	for _, r := range results {
		path, err := ictx.Items.PathForPoint(ctx, r.ID)
		if err != nil {
			path = fmt.Sprintf("(point %d)", r.ID)
		}
		fmt.Fprintf(w, "%3d  %s\n", r.Distance, path)
	}
}
