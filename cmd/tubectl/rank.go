package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/export"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/insights"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// videoFile is what fetch writes. A bare JSON array of videos is also read.
type videoFile struct {
	Channel   *types.ChannelInfo `json:"channel,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
	Videos    []types.Video      `json:"videos"`
}

type rankOptions struct {
	input    string
	weights  string
	profile  string
	format   string
	out      string
	top      int
	year     int
	minViews int64
}

func (o *rankOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "videos JSON file, - for stdin")
	cmd.Flags().StringVarP(&o.weights, "weights", "w", "", "weights as name=value,... (overrides the profile)")
	cmd.Flags().StringVarP(&o.profile, "profile", "p", "", "named weight profile")
	cmd.Flags().StringVarP(&o.format, "format", "f", "table", "output format: table, json, xlsx, csv")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&o.top, "top", 0, "show only the best N rows (table format)")
	_ = cmd.MarkFlagRequired("input")
}

func (c *cli) newRankCmd() *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank videos by views, likes, comments and engagement rate",
		Long: `Rank every video of an exported channel with SAW.

Examples:
  tubectl rank -i videos.json
  tubectl rank -i videos.json -w views=0.4,likes=0.2,comments=0.2,engagement_rate=0.2
  tubectl rank -i videos.json --year 2024 --min-views 1000
  tubectl rank -i videos.json -f xlsx -o ranking.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRanking(analysis.PipelineVideo, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().IntVar(&opts.year, "year", 0, "only show videos published in this year (WIB)")
	cmd.Flags().Int64Var(&opts.minViews, "min-views", 0, "only show videos with at least this many views")
	return cmd
}

func (c *cli) newTimeSlotsCmd() *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:     "timeslots",
		Aliases: []string{"slots"},
		Short:   "Rank upload time slots (day and hour in WIB)",
		Long: `Group videos by the WIB day and hour they were published and rank the
slots by mean views, likes and comments.

Examples:
  tubectl timeslots -i videos.json
  tubectl timeslots -i videos.json -w views=0.6,likes=0.2,comments=0.2 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRanking(analysis.PipelineTimeSlot, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (c *cli) runRanking(pipeline analysis.Pipeline, opts *rankOptions) error {
	format := opts.format
	if format != "table" && format != "json" {
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == export.FormatXLSX && opts.out == "" {
			return fmt.Errorf("--out is required for %s output", format)
		}
	}

	videos, err := readVideos(opts.input)
	if err != nil {
		return err
	}

	var explicit analysis.WeightSet
	if opts.weights != "" {
		if explicit, err = parseWeights(opts.weights); err != nil {
			return err
		}
	}
	profile := opts.profile
	if profile == "" {
		profile = c.cfg.Analysis.DefaultProfile
	}

	var ranking analysis.Ranking
	start := time.Now()
	switch pipeline {
	case analysis.PipelineTimeSlot:
		_, weights, werr := c.analyzer.ResolveWeights(profile, nil, explicit)
		if werr != nil {
			return werr
		}
		ranking, err = c.analyzer.RankTimeSlots(videos, weights)
	default:
		weights, _, werr := c.analyzer.ResolveWeights(profile, explicit, nil)
		if werr != nil {
			return werr
		}
		ranking, err = c.analyzer.RankVideos(videos, weights)
	}
	if err != nil {
		return err
	}
	c.logger.Debug("Ranking complete", "pipeline", pipeline, "videos", len(videos),
		"alternatives", len(ranking.Alternatives), "duration_ms", time.Since(start).Milliseconds())

	if !ranking.Validation.Valid {
		for _, issue := range ranking.Validation.Issues {
			c.printer.Warn("%s %s", pipeline, issue)
		}
	}

	if pipeline == analysis.PipelineVideo && (opts.year != 0 || opts.minViews != 0) {
		filter := insights.Filter{Year: opts.year, MinViews: opts.minViews}
		ranking.Alternatives = filter.Apply(ranking.Alternatives, videos)
	}

	return c.writeRanking(ranking, videos, opts)
}

func (c *cli) writeRanking(r analysis.Ranking, videos []types.Video, opts *rankOptions) error {
	var buf bytes.Buffer
	switch opts.format {
	case "table":
		if err := c.renderRanking(&buf, r, videos, opts.top); err != nil {
			return err
		}
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	default:
		format, _ := export.ParseFormat(opts.format)
		table := export.BuildTable(r, videos)
		var err error
		if format == export.FormatCSV {
			err = export.WriteCSV(&buf, table)
		} else {
			err = export.WriteXLSX(&buf, table, sheetName(r.Pipeline))
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
	}

	if opts.out == "" {
		_, err := buf.WriteTo(c.printer.out)
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	c.printer.Success("wrote %d rows to %s", len(r.Alternatives), opts.out)
	return nil
}

func (c *cli) renderRanking(w io.Writer, r analysis.Ranking, videos []types.Video, top int) error {
	headers := []string{"RANK", "ID", "LABEL"}
	for _, crit := range r.Criteria {
		headers = append(headers, crit.Name)
	}
	headers = append(headers, "SCORE")

	t := newTable(w, headers)
	for _, a := range r.Top(top) {
		row := []string{fmt.Sprint(a.Rank), a.ID, truncate(a.Label, 48)}
		for _, crit := range r.Criteria {
			row = append(row, formatValue(a.Raw[crit.Name]))
		}
		row = append(row, formatScore(a.Score))
		t.AddRow(row)
	}
	if err := t.Render(); err != nil {
		return err
	}

	if r.Pipeline == analysis.PipelineTimeSlot {
		if best, ok := insights.BestUploadTime(videos, c.analyzer.DayNames()); ok {
			fmt.Fprintf(w, "\nbest day: %s (mean views %s), best hour: %02d:00 (mean views %s)\n",
				best.Day, formatValue(best.DayMeanViews), best.Hour, formatValue(best.HourMeanViews))
		}
	}
	return nil
}

func sheetName(p analysis.Pipeline) string {
	if p == analysis.PipelineTimeSlot {
		return "Waktu Upload"
	}
	return "Ranking"
}

// readVideos loads a fetch output file or a bare array of videos
func readVideos(path string) ([]types.Video, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read videos: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("read videos: empty input")
	}

	if data[0] == '[' {
		var videos []types.Video
		if err := json.Unmarshal(data, &videos); err != nil {
			return nil, fmt.Errorf("parse videos: %w", err)
		}
		return videos, nil
	}

	var file videoFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse videos: %w", err)
	}
	return file.Videos, nil
}
