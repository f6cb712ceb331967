// Package balancecmder provides the balance command for recomputing
// partition shell boundaries.
package balancecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s-bear/image-hash/cmd/imghash/indexctx"
	"github.com/s-bear/image-hash/pkg/config"
	"github.com/s-bear/image-hash/pkg/logger"
)

const balanceLongDesc string = `Recompute partition shell boundaries for one or all vantage points.

Without --vp, checks every vantage point against --threshold (fraction of
N/4 a shell count may deviate by before it's considered unbalanced) and
lists any that are out of range; add --auto to rebalance those. With --vp,
rebalances that vantage point unconditionally.

Examples:
  imghash balance --vp 3
  imghash balance --auto --threshold 0.25`

const balanceShortDesc string = "Recompute partition shell boundaries"

type balanceCommander struct {
	vp        int64
	auto      bool
	threshold float64
	minCount  int64
	debug     bool
	configDir string
}

// NewBalanceCmd builds the balance command.
func NewBalanceCmd() *cobra.Command {
	cmder := &balanceCommander{}

	cmd := &cobra.Command{
		Use:   "balance",
		Short: balanceShortDesc,
		Long:  balanceLongDesc,
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

	cmd.Flags().Int64Var(&cmder.vp, "vp", 0, "Rebalance only this vantage point id")
	cmd.Flags().BoolVar(&cmder.auto, "auto", false, "Rebalance every vantage point whose shell counts have drifted")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", 0.25, "Allowed fractional deviation from N/4 before a shell is considered unbalanced")
	cmd.Flags().Int64Var(&cmder.minCount, "min-count", 8, "Minimum point count before balance checks apply")

	return cmd
}

func (c *balanceCommander) run() error {
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

	if c.vp != 0 {
		if err := ictx.Index.Balance(ctx, c.vp); err != nil {
			return fmt.Errorf("balancing vantage point %d: %w", c.vp, err)
		}
		fmt.Printf("rebalanced vantage point %d\n", c.vp)
		return nil
	}

	if c.auto {
		if err := ictx.Index.AutoBalance(ctx, c.minCount, c.threshold); err != nil {
			return fmt.Errorf("auto-balancing: %w", err)
		}
		fmt.Println("rebalanced all drifted vantage points")
		return nil
	}

	drifted, err := ictx.Index.CheckBalance(ctx, c.minCount, c.threshold)
	if err != nil {
		return fmt.Errorf("checking balance: %w", err)
	}
	if len(drifted) == 0 {
		fmt.Println("all vantage points are balanced")
		return nil
	}
	fmt.Printf("vantage points needing rebalance: %v (pass --auto to rebalance them)\n", drifted)
	return nil
}
