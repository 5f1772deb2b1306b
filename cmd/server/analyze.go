package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/adapters"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/classify"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/insights"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// analysisReport is the response of a full channel analysis
type analysisReport struct {
	RunID           string                    `json:"run_id"`
	Channel         types.ChannelInfo         `json:"channel"`
	Category        classify.Category         `json:"category"`
	Position        classify.Position         `json:"position"`
	VideoRanking    analysis.Ranking          `json:"video_ranking"`
	FilteredVideos  []analysis.Alternative    `json:"filtered_videos"`
	Filter          insights.Filter           `json:"filter"`
	TimeSlots       []analysis.TimeSlot       `json:"time_slots"`
	TimeSlotRanking analysis.Ranking          `json:"time_slot_ranking"`
	Insights        insights.Dashboard        `json:"insights"`
	Competitors     []insights.ChannelSummary `json:"competitors"`
	Quota           adapters.QuotaUsage       `json:"quota"`
	Warnings        []string                  `json:"warnings,omitempty"`
	GeneratedAt     time.Time                 `json:"generated_at"`

	videos []types.Video
}

// runAnalysis fetches the channel and its competitors, ranks videos and
// upload slots, and derives the dashboard statistics
func (a *app) runAnalysis(ctx context.Context, req *types.AnalyzeRequest) (*analysisReport, error) {
	start := time.Now()
	runID := uuid.NewString()

	profile := req.WeightProfile
	if profile == "" {
		profile = a.cfg.Analysis.DefaultProfile
	}
	videoWeights, slotWeights, err := a.analyzer.ResolveWeights(profile, req.VideoWeights, req.SlotWeights)
	if err != nil {
		return nil, err
	}

	limit := req.VideoLimit
	if limit <= 0 {
		limit = a.cfg.Analysis.VideoLimit
	}

	fetchStart := time.Now()
	info, videos, err := a.youtube.FetchChannelVideos(ctx, req.ChannelID, limit)
	a.logger.ExternalAPILogger("youtube", "fetch_channel_videos", req.ChannelID, 0, time.Since(fetchStart), err == nil)
	a.metrics.RecordExternalAPIRequest(adapters.ServiceName, err == nil)
	if err != nil {
		return nil, err
	}

	prepared, err := a.analyzer.Prepare(videos)
	if err != nil {
		return nil, err
	}

	report := &analysisReport{
		RunID:       runID,
		Channel:     *info,
		Category:    classify.Categorize(info.Stats),
		Filter:      insights.Filter{Year: req.Year, MinViews: req.MinViews},
		GeneratedAt: time.Now().UTC(),
		videos:      prepared,
	}

	competitors, warnings := a.fetchCompetitors(ctx, req, info, limit)
	report.Warnings = append(report.Warnings, warnings...)

	report.VideoRanking, err = a.analyzer.RankVideos(videos, videoWeights)
	if err != nil {
		return nil, err
	}
	a.recordRanking(runID, report.VideoRanking, time.Since(start))

	report.TimeSlots, err = a.analyzer.TimeSlots(videos)
	if err != nil {
		return nil, err
	}
	report.TimeSlotRanking, err = a.analyzer.RankTimeSlots(videos, slotWeights)
	if err != nil {
		return nil, err
	}
	a.recordRanking(runID, report.TimeSlotRanking, time.Since(start))

	for _, r := range []analysis.Ranking{report.VideoRanking, report.TimeSlotRanking} {
		if !r.Validation.Valid {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s weights sum to %.2f, not 1", r.Pipeline, r.Validation.Sum))
		}
	}

	report.FilteredVideos = report.Filter.Apply(report.VideoRanking.Alternatives, report.videos)
	report.Insights = insights.BuildDashboard(report.VideoRanking, report.videos, a.analyzer.DayNames())

	infos := make([]types.ChannelInfo, len(competitors))
	for i, c := range competitors {
		infos[i] = c.Info
	}
	report.Position = classify.ComparePosition(*info, infos)
	report.Competitors = insights.CompareChannels(insights.ChannelVideos{Info: *info, Videos: report.videos}, competitors)
	report.Quota = a.youtube.Quota()

	return report, nil
}

// fetchCompetitors loads the requested competitors, or searches the main
// channel's niche when asked to. A competitor that cannot be fetched is
// skipped with a warning rather than failing the run.
func (a *app) fetchCompetitors(ctx context.Context, req *types.AnalyzeRequest, main *types.ChannelInfo, limit int) ([]insights.ChannelVideos, []string) {
	var warnings []string

	ids := req.CompetitorIDs
	if len(ids) == 0 && req.AutoCompetitor {
		found, err := a.youtube.SearchCompetitorsByNiche(ctx, main.Niche, main.ChannelID, a.cfg.Analysis.CompetitorLimit)
		if err != nil {
			slog.Warn("Competitor search failed", "niche", main.Niche, "error", err)
			warnings = append(warnings, "competitor search failed: "+err.Error())
		}
		for _, c := range found {
			ids = append(ids, c.ChannelID)
		}
	}

	out := make([]insights.ChannelVideos, 0, len(ids))
	seen := map[string]bool{main.ChannelID: true}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		info, videos, err := a.youtube.FetchChannelVideos(ctx, id, limit)
		a.metrics.RecordExternalAPIRequest(adapters.ServiceName, err == nil)
		if err != nil {
			slog.Warn("Skipping competitor", "channel_id", id, "error", err)
			warnings = append(warnings, fmt.Sprintf("competitor %s skipped: %v", id, err))
			continue
		}
		prepared, err := a.analyzer.Prepare(videos)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("competitor %s skipped: %v", id, err))
			continue
		}
		out = append(out, insights.ChannelVideos{Info: *info, Videos: prepared})
	}
	return out, warnings
}

// recordRanking feeds a finished ranking into the logs and metrics
func (a *app) recordRanking(runID string, r analysis.Ranking, elapsed time.Duration) {
	pipeline := string(r.Pipeline)
	best := 0.0
	if top, ok := r.Best(); ok {
		best = top.Score
	}

	a.metrics.RecordAnalysis(pipeline, len(r.Alternatives), elapsed)
	a.logger.AnalysisLogger(runID, pipeline, len(r.Alternatives), best, r.Validation.Valid, elapsed, false)
	if !r.Validation.Valid {
		a.metrics.IncrementWeightWarning(pipeline)
		a.logger.WeightWarningLogger(runID, pipeline, r.Validation.Sum, r.Validation.Issues)
	}
}
