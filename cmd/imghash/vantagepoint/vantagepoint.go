// Package vantagepointcmder provides the vantage-point command and its
// add/auto subcommands for managing the index's vantage points.
package vantagepointcmder

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
)

const vantagePointShortDesc string = "Manage vantage points"

const vantagePointLongDesc string = `Manage the index's vantage points.

Use subcommands to promote a specific file to a vantage point, or let the
index pick and promote vantage points automatically up to a target count:
  imghash vantage-point add FILE        Promote FILE's hash to a vantage point
  imghash vantage-point auto --target N Promote vantage points automatically`

// NewVantagePointCmd builds the vantage-point command.
func NewVantagePointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vantage-point",
		Short: vantagePointShortDesc,
		Long:  vantagePointLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newAutoCmd())

	return cmd
}

type flags struct {
	debug     bool
	configDir string
}

func bindFlags(cmd *cobra.Command, f *flags) error {
	var err error
	f.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("could not get debug flag: %w", err)
	}
	f.configDir, err = cmd.Flags().GetString("config-dir")
	if err != nil {
		return fmt.Errorf("could not get config-dir flag: %w", err)
	}
	return nil
}

func openContext(f *flags) (*config.Config, *indexctx.Context, error) {
	log := logger.NewLogger(f.debug)

	cfger, err := config.NewConfiger(f.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	ictx, err := indexctx.Open(context.Background(), cfg, log)
	if err != nil {
		return nil, nil, err
	}

	return cfg, ictx, nil
}

func newAddCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Promote a file's hash to a vantage point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, f); err != nil {
				return err
			}
			return runAdd(f, args[0])
		},
	}

	return cmd
}

func runAdd(f *flags, path string) error {
	_, ictx, err := openContext(f)
	if err != nil {
		return err
	}
	defer ictx.Close()
	defer func() { _ = ictx.Logger.Sync() }()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	sum, err := ictx.Hasher.Hash(img)
	if err != nil {
		return fmt.Errorf("hashing image: %w", err)
	}

	vpID, err := ictx.Index.InsertVantagePoint(context.Background(), sum)
	if err != nil {
		return fmt.Errorf("promoting vantage point: %w", err)
	}

	fmt.Printf("promoted vantage point %d from %s\n", vpID, path)
	return nil
}

func newAutoCmd() *cobra.Command {
	f := &flags{}
	var target uint

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Promote vantage points automatically up to a target count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(cmd, f); err != nil {
				return err
			}
			return runAuto(f, int64(target))
		},
	}

	cmd.Flags().UintVar(&target, "target", 8, "Target average shell occupancy per vantage point")

	return cmd
}

func runAuto(f *flags, target int64) error {
	_, ictx, err := openContext(f)
	if err != nil {
		return err
	}
	defer ictx.Close()
	defer func() { _ = ictx.Logger.Sync() }()

	last, err := ictx.Index.AutoVantagePoint(context.Background(), target)
	if err != nil {
		return fmt.Errorf("auto-promoting vantage points: %w", err)
	}

	count, err := ictx.Index.CountVantagePoints(context.Background())
	if err != nil {
		return fmt.Errorf("counting vantage points: %w", err)
	}

	fmt.Printf("index now has %d vantage point(s), last promoted: %d\n", count, last)
	return nil
}
