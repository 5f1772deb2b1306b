package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/classify"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/security"
)

func (c *cli) newFetchCmd() *cobra.Command {
	var (
		channel string
		limit   int
		out     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a channel's latest uploads from the YouTube Data API",
		Long: `Download channel statistics and the latest uploads to a JSON file that
rank and timeslots can read. Needs YOUTUBE_API_KEY or youtube.api_key.

Example:
  tubectl fetch --channel UCxxxxxxxxxxxxxxxxxxxxxx --limit 50 --out videos.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := security.ValidateChannelID(channel); err != nil {
				return err
			}
			if limit <= 0 {
				limit = c.cfg.Analysis.VideoLimit
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			yt := adapters.NewYouTubeAdapter(c.cfg.YouTube,
				adapters.WithQuotaObserver(func(endpoint string, units int) {
					c.logger.Debug("YouTube call", "endpoint", endpoint, "units", units)
				}),
			)
			defer errors.SafeClose(yt, "youtube adapter")

			if !yt.HasKey() {
				return fmt.Errorf("no YouTube API key: set YOUTUBE_API_KEY or youtube.api_key")
			}

			info, videos, err := yt.FetchChannelVideos(ctx, channel, limit)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(videoFile{
				Channel:   info,
				FetchedAt: time.Now().UTC(),
				Videos:    videos,
			}, "", "  ")
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = c.printer.out.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			category := classify.Categorize(info.Stats)
			c.printer.Success("wrote %d videos of %q to %s", len(videos), info.Title, out)
			fmt.Fprintf(c.printer.out, "niche: %s, tier: %s, quota used: %d units\n",
				info.Niche, category.Level, yt.Quota().Used)
			return nil
		},
	}
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "channel ID (UC...)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of latest uploads (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - or empty for stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall request timeout")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}
