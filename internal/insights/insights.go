package insights

import (
	"sort"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// TopCount is how many videos are listed in the top chart
const TopCount = 5

// Overview is the headline numbers of a channel's fetched videos
type Overview struct {
	Videos             int     `json:"videos"`
	TotalViews         int64   `json:"total_views"`
	MeanViews          float64 `json:"mean_views"`
	MeanEngagementRate float64 `json:"mean_engagement_rate"`
}

// Summarize computes the overview of a set of videos
func Summarize(videos []analysis.VideoMetrics) Overview {
	o := Overview{Videos: len(videos)}
	if len(videos) == 0 {
		return o
	}
	er := 0.0
	for _, v := range videos {
		o.TotalViews += v.ViewCount
		er += v.EngagementRate
	}
	o.MeanViews = float64(o.TotalViews) / float64(len(videos))
	o.MeanEngagementRate = er / float64(len(videos))
	return o
}

// Status marks a channel in a comparison
type Status string

const (
	StatusMain       Status = "Utama"
	StatusCompetitor Status = "Kompetitor"
)

// ChannelVideos pairs a channel with its fetched videos
type ChannelVideos struct {
	Info   types.ChannelInfo
	Videos []types.Video
}

// ChannelSummary is one row of the competitor comparison
type ChannelSummary struct {
	ChannelID          string  `json:"channel_id"`
	Title              string  `json:"title"`
	Niche              string  `json:"niche"`
	Subscribers        int64   `json:"subscribers"`
	MeanViews          float64 `json:"mean_views"`
	MeanEngagementRate float64 `json:"mean_engagement_rate"`
	Status             Status  `json:"status"`
}

// CompareChannels summarizes the main channel followed by its competitors
func CompareChannels(main ChannelVideos, competitors []ChannelVideos) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(competitors)+1)
	out = append(out, summarizeChannel(main, StatusMain))
	for _, c := range competitors {
		out = append(out, summarizeChannel(c, StatusCompetitor))
	}
	return out
}

func summarizeChannel(c ChannelVideos, status Status) ChannelSummary {
	o := Summarize(analysis.DeriveEngagement(c.Videos))
	return ChannelSummary{
		ChannelID:          c.Info.ChannelID,
		Title:              c.Info.Title,
		Niche:              c.Info.Niche,
		Subscribers:        c.Info.Stats.Subscribers,
		MeanViews:          o.MeanViews,
		MeanEngagementRate: o.MeanEngagementRate,
		Status:             status,
	}
}

// Filter narrows a ranking table for display. Zero values disable a field.
type Filter struct {
	Year     int   `json:"year,omitempty"`
	MinViews int64 `json:"min_views,omitempty"`
}

// Apply keeps the ranked alternatives whose video matches the filter. Ranks
// and scores are those of the full ranking.
func (f Filter) Apply(alts []analysis.Alternative, videos []types.Video) []analysis.Alternative {
	byID := make(map[string]types.Video, len(videos))
	for _, v := range videos {
		byID[v.VideoID] = v
	}

	out := make([]analysis.Alternative, 0, len(alts))
	for _, a := range alts {
		v, ok := byID[a.ID]
		if !ok {
			continue
		}
		if f.Year != 0 && analysis.LocalTime(v.PublishedAt).Year() != f.Year {
			continue
		}
		if v.ViewCount < f.MinViews {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Years lists the WIB publish years present, newest first
func Years(videos []types.Video) []int {
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, v := range videos {
		y := analysis.LocalTime(v.PublishedAt).Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Dashboard is everything shown beside a video ranking
type Dashboard struct {
	Overview    Overview               `json:"overview"`
	BestVideo   *analysis.Alternative  `json:"best_video,omitempty"`
	TopVideos   []analysis.Alternative `json:"top_videos"`
	UploadTime  *UploadTime            `json:"upload_time,omitempty"`
	DailyTrend  []DayStat              `json:"daily_trend"`
	Heatmap     Heatmap                `json:"heatmap"`
	Correlation Correlation            `json:"correlation"`
	Statistics  Statistics             `json:"statistics"`
	Terms       []Term                 `json:"terms"`
	Years       []int                  `json:"years"`
}

// BuildDashboard derives the display statistics for a ranked set of videos
func BuildDashboard(ranking analysis.Ranking, videos []types.Video, days analysis.DayNames) Dashboard {
	metrics := analysis.DeriveEngagement(videos)

	d := Dashboard{
		Overview:    Summarize(metrics),
		TopVideos:   ranking.Top(TopCount),
		DailyTrend:  DailyTrend(videos, days),
		Heatmap:     BuildHeatmap(videos, days),
		Correlation: ViewsEngagementCorrelation(metrics),
		Statistics:  DescribeVideos(metrics),
		Years:       Years(videos),
	}
	if best, ok := ranking.Best(); ok {
		d.BestVideo = &best
	}
	if ut, ok := BestUploadTime(videos, days); ok {
		d.UploadTime = &ut
	}

	titles := make([]string, 0, TitleSampleSize)
	for _, a := range ranking.Top(TitleSampleSize) {
		titles = append(titles, a.Label)
	}
	d.Terms = WordFrequencies(titles, 0)
	return d
}
