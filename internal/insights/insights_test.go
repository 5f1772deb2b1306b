package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// wib returns a publish time given as WIB wall clock
func wib(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, analysis.WIB).UTC()
}

func fixtureVideos() []types.Video {
	return []types.Video{
		// 2024-01-01 is a Monday
		{VideoID: "a", Title: "Review HP murah terbaik", PublishedAt: wib(2024, 1, 1, 19), ViewCount: 1000, LikeCount: 100, CommentCount: 10},
		{VideoID: "b", Title: "Review laptop gaming", PublishedAt: wib(2024, 1, 8, 19), ViewCount: 3000, LikeCount: 150, CommentCount: 30},
		{VideoID: "c", Title: "Unboxing HP baru", PublishedAt: wib(2024, 1, 5, 12), ViewCount: 500, LikeCount: 60, CommentCount: 5},
		{VideoID: "d", Title: "Vlog akhir tahun", PublishedAt: wib(2023, 12, 31, 8), ViewCount: 200, LikeCount: 20, CommentCount: 2},
	}
}

func TestSummarize(t *testing.T) {
	o := Summarize(analysis.DeriveEngagement(fixtureVideos()))
	assert.Equal(t, 4, o.Videos)
	assert.Equal(t, int64(4700), o.TotalViews)
	assert.InDelta(t, 1175.0, o.MeanViews, 1e-9)
	assert.Greater(t, o.MeanEngagementRate, 0.0)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Videos)
	assert.Equal(t, 0.0, empty.MeanViews)
}

func TestDailyTrend(t *testing.T) {
	trend := DailyTrend(fixtureVideos(), analysis.IndonesianDays)
	require.Len(t, trend, 7)

	assert.Equal(t, "Senin", trend[0].Day)
	assert.Equal(t, 2, trend[0].Videos)
	assert.InDelta(t, 2000.0, trend[0].MeanViews, 1e-9)
	assert.True(t, trend[0].Observed)

	assert.Equal(t, "Selasa", trend[1].Day)
	assert.False(t, trend[1].Observed)
	assert.Equal(t, 0.0, trend[1].MeanViews)

	assert.Equal(t, "Jumat", trend[4].Day)
	assert.InDelta(t, 500.0, trend[4].MeanViews, 1e-9)
	assert.Equal(t, "Minggu", trend[6].Day)
	assert.True(t, trend[6].Observed)
}

func TestBuildHeatmap(t *testing.T) {
	hm := BuildHeatmap(fixtureVideos(), analysis.IndonesianDays)
	assert.Equal(t, analysis.IndonesianDays.Ordered(), hm.Days)
	assert.Equal(t, []int{8, 12, 19}, hm.Hours)
	require.Len(t, hm.Cells, 7)
	assert.Equal(t, []float64{0, 0, 2000}, hm.Cells[0])
	assert.Equal(t, []float64{0, 0, 0}, hm.Cells[1])
	assert.Equal(t, []float64{0, 500, 0}, hm.Cells[4])
	assert.Equal(t, []float64{200, 0, 0}, hm.Cells[6])

	empty := BuildHeatmap(nil, analysis.EnglishDays)
	assert.Len(t, empty.Cells, 7)
	assert.Empty(t, empty.Hours)
}

func TestBestUploadTime(t *testing.T) {
	t.Run("picks the best day and hour", func(t *testing.T) {
		best, ok := BestUploadTime(fixtureVideos(), analysis.IndonesianDays)
		require.True(t, ok)
		assert.Equal(t, "Senin", best.Day)
		assert.Equal(t, 19, best.Hour)
		assert.InDelta(t, 2000.0, best.HourMeanViews, 1e-9)
	})

	t.Run("reports absence for no videos", func(t *testing.T) {
		_, ok := BestUploadTime(nil, analysis.IndonesianDays)
		assert.False(t, ok)
	})

	t.Run("ties go to the earlier hour", func(t *testing.T) {
		videos := []types.Video{
			{VideoID: "x", PublishedAt: wib(2024, 1, 2, 20), ViewCount: 100},
			{VideoID: "y", PublishedAt: wib(2024, 1, 3, 9), ViewCount: 100},
		}
		best, ok := BestUploadTime(videos, analysis.IndonesianDays)
		require.True(t, ok)
		assert.Equal(t, 9, best.Hour)
		assert.Equal(t, "Selasa", best.Day)
	})
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected Summary
	}{
		{
			name:     "empty sample",
			values:   nil,
			expected: Summary{},
		},
		{
			name:     "single value has zero deviation",
			values:   []float64{7},
			expected: Summary{Count: 1, Mean: 7, Min: 7, Q1: 7, Median: 7, Q3: 7, Max: 7},
		},
		{
			name:   "interpolated quartiles",
			values: []float64{4, 1, 3, 2},
			expected: Summary{
				Count: 4, Mean: 2.5, StdDev: 1.2909944487358056,
				Min: 1, Q1: 1.75, Median: 2.5, Q3: 3.25, Max: 4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Describe(tt.values)
			assert.Equal(t, tt.expected.Count, s.Count)
			assert.InDelta(t, tt.expected.Mean, s.Mean, 1e-9)
			assert.InDelta(t, tt.expected.StdDev, s.StdDev, 1e-9)
			assert.InDelta(t, tt.expected.Min, s.Min, 1e-9)
			assert.InDelta(t, tt.expected.Q1, s.Q1, 1e-9)
			assert.InDelta(t, tt.expected.Median, s.Median, 1e-9)
			assert.InDelta(t, tt.expected.Q3, s.Q3, 1e-9)
			assert.InDelta(t, tt.expected.Max, s.Max, 1e-9)
		})
	}

	t.Run("does not reorder the input", func(t *testing.T) {
		values := []float64{3, 1, 2}
		_ = Describe(values)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func TestDescribeVideos(t *testing.T) {
	st := DescribeVideos(analysis.DeriveEngagement(fixtureVideos()))
	assert.Equal(t, 4, st.Views.Count)
	assert.Equal(t, StabilityVolatile, st.Stability)

	steady := []types.Video{
		{VideoID: "1", ViewCount: 1000},
		{VideoID: "2", ViewCount: 1100},
		{VideoID: "3", ViewCount: 900},
	}
	assert.Equal(t, StabilityConsistent, DescribeVideos(analysis.DeriveEngagement(steady)).Stability)
	assert.Equal(t, StabilityUnknown, DescribeVideos(nil).Stability)
}

func TestViewsEngagementCorrelation(t *testing.T) {
	metric := func(views int64, er float64) analysis.VideoMetrics {
		return analysis.VideoMetrics{Video: types.Video{ViewCount: views}, EngagementRate: er}
	}

	tests := []struct {
		name     string
		videos   []analysis.VideoMetrics
		strength CorrelationStrength
		defined  bool
	}{
		{
			name:     "positive relation",
			videos:   []analysis.VideoMetrics{metric(100, 1), metric(200, 2), metric(300, 3)},
			strength: CorrelationStrongPositive,
			defined:  true,
		},
		{
			name:     "negative relation",
			videos:   []analysis.VideoMetrics{metric(100, 3), metric(200, 2), metric(300, 1)},
			strength: CorrelationNegative,
			defined:  true,
		},
		{
			name:     "weak relation",
			videos:   []analysis.VideoMetrics{metric(100, 1), metric(200, 3), metric(300, 1), metric(400, 3)},
			strength: CorrelationWeak,
			defined:  true,
		},
		{
			name:     "single video is undefined",
			videos:   []analysis.VideoMetrics{metric(100, 1)},
			strength: CorrelationWeak,
		},
		{
			name:     "constant column is undefined",
			videos:   []analysis.VideoMetrics{metric(100, 2), metric(200, 2)},
			strength: CorrelationWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ViewsEngagementCorrelation(tt.videos)
			assert.Equal(t, tt.strength, c.Strength)
			assert.Equal(t, tt.defined, c.Defined)
			assert.GreaterOrEqual(t, c.Coefficient, -1.0)
			assert.LessOrEqual(t, c.Coefficient, 1.0)
		})
	}
}

func TestWordFrequencies(t *testing.T) {
	titles := []string{
		"Review HP murah!",
		"review HP gaming - the best",
		"Tutorial: cara install Go 1.23",
	}

	terms := WordFrequencies(titles, 0)
	require.NotEmpty(t, terms)
	assert.Equal(t, Term{Word: "hp", Count: 2}, terms[0])
	assert.Equal(t, Term{Word: "review", Count: 2}, terms[1])

	words := make(map[string]bool)
	for _, term := range terms {
		words[term.Word] = true
	}
	assert.False(t, words["the"])
	assert.True(t, words["23"])
	assert.False(t, words["1.23"])

	assert.Len(t, WordFrequencies(titles, 3), 3)
	assert.Empty(t, WordFrequencies(nil, 10))
}

func TestCompareChannels(t *testing.T) {
	main := ChannelVideos{
		Info:   types.ChannelInfo{ChannelID: "UCmain", Title: "Main", Stats: types.ChannelStats{Subscribers: 1200}},
		Videos: fixtureVideos(),
	}
	comp := ChannelVideos{
		Info:   types.ChannelInfo{ChannelID: "UCcomp", Title: "Rival", Stats: types.ChannelStats{Subscribers: 5000}},
		Videos: []types.Video{{VideoID: "r1", ViewCount: 400, LikeCount: 40}},
	}

	rows := CompareChannels(main, []ChannelVideos{comp})
	require.Len(t, rows, 2)
	assert.Equal(t, StatusMain, rows[0].Status)
	assert.InDelta(t, 1175.0, rows[0].MeanViews, 1e-9)
	assert.Equal(t, StatusCompetitor, rows[1].Status)
	assert.InDelta(t, 10.0, rows[1].MeanEngagementRate, 1e-9)
	assert.Equal(t, int64(5000), rows[1].Subscribers)
}

func TestFilter(t *testing.T) {
	videos := fixtureVideos()
	alts := []analysis.Alternative{{ID: "b", Rank: 1}, {ID: "a", Rank: 2}, {ID: "c", Rank: 3}, {ID: "d", Rank: 4}, {ID: "ghost", Rank: 5}}

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "zero filter keeps known videos", filter: Filter{}, expected: []string{"b", "a", "c", "d"}},
		{name: "year filter", filter: Filter{Year: 2023}, expected: []string{"d"}},
		{name: "minimum views", filter: Filter{MinViews: 1000}, expected: []string{"b", "a"}},
		{name: "combined", filter: Filter{Year: 2024, MinViews: 600}, expected: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(alts, videos)
			ids := make([]string, len(got))
			for i, a := range got {
				ids[i] = a.ID
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	assert.Equal(t, []int{2024, 2023}, Years(videos))
}

func TestBuildDashboard(t *testing.T) {
	a := analysis.NewAnalyzer(t.TempDir())
	videos := fixtureVideos()
	ranking, err := a.RankVideos(videos, analysis.DefaultVideoWeights())
	require.NoError(t, err)

	d := BuildDashboard(ranking, videos, analysis.IndonesianDays)
	require.NotNil(t, d.BestVideo)
	assert.Equal(t, ranking.Alternatives[0].ID, d.BestVideo.ID)
	assert.Len(t, d.TopVideos, 4)
	require.NotNil(t, d.UploadTime)
	assert.Len(t, d.DailyTrend, 7)
	assert.NotEmpty(t, d.Terms)
	assert.Equal(t, 4, d.Overview.Videos)

	empty := BuildDashboard(analysis.Ranking{}, nil, analysis.IndonesianDays)
	assert.Nil(t, empty.BestVideo)
	assert.Nil(t, empty.UploadTime)
	assert.Empty(t, empty.Terms)
}
