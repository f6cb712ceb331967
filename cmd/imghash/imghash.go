// Package imghashcmder assembles the imghash cobra command tree.
package imghashcmder

import (
	balancecmder "github.com/s-bear/image-hash/cmd/imghash/balance"
	hashcmder "github.com/s-bear/image-hash/cmd/imghash/hash"
	ingestcmder "github.com/s-bear/image-hash/cmd/imghash/ingest"
	querycmder "github.com/s-bear/image-hash/cmd/imghash/query"
	servecmder "github.com/s-bear/image-hash/cmd/imghash/serve"
	statscmder "github.com/s-bear/image-hash/cmd/imghash/stats"
	vantagepointcmder "github.com/s-bear/image-hash/cmd/imghash/vantagepoint"
	watchcmder "github.com/s-bear/image-hash/cmd/imghash/watch"
	"github.com/spf13/cobra"
)

const imghashLongDesc string = `imghash is a perceptual-hash similarity index for images.

Run commands using:
  imghash hash FILE...         Print the perceptual hash of one or more files
  imghash ingest PATH...       Hash and index files or directories
  imghash watch DIR            Ingest files as they appear under DIR
  imghash query FILE           Find indexed images similar to FILE
  imghash vantage-point        Manage vantage points
  imghash balance              Recompute partition shell boundaries
  imghash stats                Show index counts and occupancy
  imghash serve                Run the HTTP API (and optionally MCP) server`

const imghashShortDesc string = "imghash - perceptual image similarity index"

// NewImghashCmd builds the root imghash command.
func NewImghashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imghash",
		Short: imghashShortDesc,
		Long:  imghashLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .imghash/ config directory")

	cmd.AddCommand(hashcmder.NewHashCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(vantagepointcmder.NewVantagePointCmd())
	cmd.AddCommand(balancecmder.NewBalanceCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())

	return cmd
}
