package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/config"
)

// cli carries the state shared by every subcommand of one invocation
type cli struct {
	configPath string
	verbose    bool
	noColor    bool

	cfg      *config.Config
	logger   *slog.Logger
	analyzer *analysis.Analyzer
	printer  *printer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tubectl",
		Short: "Rank YouTube videos and upload time slots with SAW",
		Long: `tubectl scores a channel's videos and its upload time slots with
Simple Additive Weighting.

Example usage:
  tubectl fetch --channel UC... --out videos.json   # download uploads
  tubectl rank --input videos.json                  # rank videos
  tubectl timeslots --input videos.json             # rank upload slots
  tubectl weights validate views=0.5,likes=0.5      # check a weight set`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		c.newRankCmd(),
		c.newTimeSlotsCmd(),
		c.newWeightsCmd(),
		c.newFetchCmd(),
	)
	return root
}

// init loads configuration and builds the analyzer
func (c *cli) init(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	path := c.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	c.analyzer = analysis.NewAnalyzer(cfg.Analysis.DataDir,
		analysis.WithStrictWeights(cfg.Analysis.StrictWeights),
		analysis.WithDayNames(analysis.DayNamesFor(cfg.Analysis.DayLocale)),
		analysis.WithVideoLimit(cfg.Analysis.VideoLimit),
	)
	c.printer = newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !c.noColor)

	c.logger.Debug("Configuration loaded", "config", path, "data_dir", cfg.Analysis.DataDir,
		"strict_weights", cfg.Analysis.StrictWeights, "day_locale", cfg.Analysis.DayLocale)
	return nil
}
