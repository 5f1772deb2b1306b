package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/classify"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/export"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/security"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

func (a *app) handleHealth(c *gin.Context) {
	services := a.degradation.GetAllServiceHealth()

	response := gin.H{
		"status":             "ok",
		"timestamp":          time.Now().Format(time.RFC3339),
		"version":            serviceVersion,
		"youtube_configured": a.youtube.HasKey(),
		"services":           services,
	}

	for _, service := range services {
		if service.Level == resilience.LevelEmergency {
			response["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

func (a *app) handleServiceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":         a.degradation.GetAllServiceHealth(),
		"circuit_breakers": a.breakers.GetStats(),
		"quota":            a.youtube.Quota(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func (a *app) handleMetrics(c *gin.Context) {
	stats := a.metrics.GetStats()
	stats["youtube_pool"] = a.youtube.GetPoolStats()
	stats["cache"] = a.cache.Stats()
	stats["compression"] = a.compression.GetStats()
	c.JSON(http.StatusOK, stats)
}

func (a *app) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, a.cache.Stats())
}

// queryLimit reads an optional positive integer query parameter
func queryLimit(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.NewValidationError("limit must be a positive integer", raw)
	}
	return n, nil
}

func (a *app) handleSearchChannels(c *gin.Context) {
	limit, err := queryLimit(c, 5)
	if err != nil {
		fail(c, err)
		return
	}

	results, err := a.youtube.SearchChannels(c.Request.Context(), c.GetString("sanitized_query"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": results, "quota": a.youtube.Quota()})
}

func (a *app) handleChannelInfo(c *gin.Context) {
	info, err := a.youtube.GetChannelInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"channel":  info,
		"category": classify.Categorize(info.Stats),
	})
}

func (a *app) handleCompetitors(c *gin.Context) {
	limit, err := queryLimit(c, a.cfg.Analysis.CompetitorLimit)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	info, err := a.youtube.GetChannelInfo(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	competitors, err := a.youtube.SearchCompetitorsByNiche(ctx, info.Niche, info.ChannelID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"niche":       info.Niche,
		"competitors": competitors,
		"quota":       a.youtube.Quota(),
	})
}

func (a *app) handleAnalyze(c *gin.Context) {
	req := c.MustGet(security.AnalyzeRequestKey).(*types.AnalyzeRequest)

	report, err := a.runAnalysis(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *app) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, errors.NewValidationError(err.Error()))
		return
	}
	req := c.MustGet(security.AnalyzeRequestKey).(*types.AnalyzeRequest)

	report, err := a.runAnalysis(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	ranking := report.VideoRanking
	sheet := "Ranking"
	if c.Query("pipeline") == string(analysis.PipelineTimeSlot) {
		ranking = report.TimeSlotRanking
		sheet = "Waktu Upload"
	}
	if ranking.Pipeline == analysis.PipelineVideo {
		ranking.Alternatives = report.FilteredVideos
	}
	table := export.BuildTable(ranking, report.videos)

	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, table)
	default:
		err = export.WriteXLSX(&buf, table, sheet)
	}
	if err != nil {
		fail(c, errors.NewInternalError("Failed to render export", err))
		return
	}

	name := format.FileName(fmt.Sprintf("ranking_%s_%s", report.Channel.ChannelID, ranking.Pipeline))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (a *app) handleRank(c *gin.Context) {
	var req types.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.NewValidationError("invalid JSON body", err.Error()))
		return
	}

	criteria := make([]analysis.Criterion, len(req.Criteria))
	for i, rc := range req.Criteria {
		polarity := analysis.Polarity(strings.ToLower(rc.Polarity))
		if polarity == "" {
			polarity = analysis.PolarityBenefit
		}
		criteria[i] = analysis.Criterion{Name: rc.Name, Polarity: polarity}
	}

	alts := make([]analysis.Alternative, len(req.Alternatives))
	for i, ra := range req.Alternatives {
		label := ra.Label
		if label == "" {
			label = ra.ID
		}
		alts[i] = analysis.Alternative{ID: ra.ID, Label: label, Raw: ra.Values}
	}

	start := time.Now()
	ranking, err := a.analyzer.RankAlternatives(analysis.PipelineCustom, criteria, alts, analysis.WeightSet(req.Weights))
	if err != nil {
		fail(c, err)
		return
	}
	runID := c.GetString("request_id")
	a.recordRanking(runID, ranking, time.Since(start))

	c.JSON(http.StatusOK, ranking)
}

func (a *app) handleValidateWeights(c *gin.Context) {
	var req types.WeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.NewValidationError("invalid JSON body", err.Error()))
		return
	}
	weights := analysis.WeightSet(req.Weights)

	response := gin.H{
		"validation": analysis.ValidateWeights(weights),
		"strict":     a.analyzer.StrictWeights(),
	}

	var criteria []analysis.Criterion
	switch analysis.Pipeline(c.Query("pipeline")) {
	case analysis.PipelineVideo:
		criteria = analysis.VideoCriteria()
	case analysis.PipelineTimeSlot:
		criteria = analysis.TimeSlotCriteria()
	}
	if criteria != nil {
		if err := analysis.CheckWeights(criteria, weights); err != nil {
			response["criteria_match"] = false
			response["criteria_error"] = err.Error()
		} else {
			response["criteria_match"] = true
		}
	}

	c.JSON(http.StatusOK, response)
}

func (a *app) handleWeightProfile(c *gin.Context) {
	profile, err := a.analyzer.Profiles().LoadProfile(c.Param("name"))
	if err != nil {
		fail(c, errors.NewValidationError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"video":     analysis.ValidateWeights(profile.Video),
		"time_slot": analysis.ValidateWeights(profile.TimeSlot),
	})
}

func (a *app) handleQuota(c *gin.Context) {
	c.JSON(http.StatusOK, a.youtube.Quota())
}

type updateKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// handleUpdateKey swaps the YouTube API key and drops every cached result
// fetched with the previous one
func (a *app) handleUpdateKey(c *gin.Context) {
	var req updateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.NewValidationError("api_key is required"))
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if err := a.security.ValidateInput(key); err != nil || strings.ContainsAny(key, " \t\r\n") {
		fail(c, errors.NewValidationError("api_key is malformed"))
		return
	}

	a.youtube.UpdateKey(key)
	a.youtube.PurgeCache()
	a.cache.Clear()
	a.logger.SystemLogger("youtube_key_updated", "API key replaced, caches purged")

	c.JSON(http.StatusOK, gin.H{"configured": true, "quota": a.youtube.Quota()})
}
