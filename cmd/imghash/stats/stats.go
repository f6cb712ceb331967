// Package statscmder provides the stats command for printing index counts
// and per-vantage-point shell occupancy.
package statscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/cliui"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
)

const statsLongDesc string = `Show index counts and per-vantage-point shell occupancy.

Examples:
  imghash stats`

const statsShortDesc string = "Show index counts and occupancy"

type statsCommander struct {
	debug     bool
	configDir string
}

// NewStatsCmd builds the stats command.
func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}
			return cmder.run()
		},
	}

	return cmd
}

func (c *statsCommander) run() error {
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

	points, err := ictx.Index.CountPoints(ctx)
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	vps, err := ictx.Index.CountVantagePoints(ctx)
	if err != nil {
		return fmt.Errorf("counting vantage points: %w", err)
	}

	fmt.Printf("%s %d\n", cliui.StepStyle.Render("points:"), points)
	fmt.Printf("%s %d\n", cliui.StepStyle.Render("vantage points:"), vps)

	stats, err := ictx.Index.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading vantage point stats: %w", err)
	}

	for _, s := range stats {
		fmt.Printf("  vp %d  bounds=[%d %d %d]  shells=[%d %d %d %d]\n",
			s.ID, s.Bound1, s.Bound2, s.Bound3, s.Count0, s.Count1, s.Count2, s.Count3)
	}

	return nil
}
