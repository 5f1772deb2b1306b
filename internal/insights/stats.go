// Package insights computes the descriptive statistics shown next to a
// ranking: upload timing, correlation, distribution summaries, title terms
// and channel comparisons.
package insights

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
)

// Summary mirrors a describe() table for one column
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe summarizes a sample. StdDev is the sample (n-1) deviation and is
// zero for fewer than two values.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q1:     quantile(0.25, sorted),
		Median: quantile(0.5, sorted),
		Q3:     quantile(0.75, sorted),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// quantile interpolates linearly between closest ranks, position p*(n-1)
func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	frac := pos - lo
	return sorted[int(lo)]*(1-frac) + sorted[int(hi)]*frac
}

// Stability classifies how consistent view counts are
type Stability string

const (
	StabilityConsistent Stability = "consistent"
	StabilityVolatile   Stability = "volatile"
	StabilityUnknown    Stability = "unknown"
)

// Statistics is the distribution summary of a channel's videos
type Statistics struct {
	Views          Summary   `json:"views"`
	Likes          Summary   `json:"likes"`
	EngagementRate Summary   `json:"engagement_rate"`
	Stability      Stability `json:"stability"`
}

// DescribeVideos summarizes views, likes and engagement rate. Views are
// volatile when their standard deviation exceeds their mean.
func DescribeVideos(videos []analysis.VideoMetrics) Statistics {
	views := make([]float64, len(videos))
	likes := make([]float64, len(videos))
	er := make([]float64, len(videos))
	for i, v := range videos {
		views[i] = float64(v.ViewCount)
		likes[i] = float64(v.LikeCount)
		er[i] = v.EngagementRate
	}

	st := Statistics{
		Views:          Describe(views),
		Likes:          Describe(likes),
		EngagementRate: Describe(er),
		Stability:      StabilityUnknown,
	}
	if st.Views.Count > 1 {
		st.Stability = StabilityConsistent
		if st.Views.StdDev > st.Views.Mean {
			st.Stability = StabilityVolatile
		}
	}
	return st
}

// CorrelationStrength interprets a Pearson coefficient
type CorrelationStrength string

const (
	CorrelationStrongPositive CorrelationStrength = "strong_positive"
	CorrelationNegative       CorrelationStrength = "negative"
	CorrelationWeak           CorrelationStrength = "weak"
)

// Correlation relates views to engagement rate
type Correlation struct {
	Coefficient float64             `json:"coefficient"`
	Strength    CorrelationStrength `json:"strength"`
	Defined     bool                `json:"defined"`
}

// ViewsEngagementCorrelation computes Pearson r between views and
// engagement rate. It is undefined for fewer than two videos or when either
// column is constant.
func ViewsEngagementCorrelation(videos []analysis.VideoMetrics) Correlation {
	if len(videos) < 2 {
		return Correlation{Strength: CorrelationWeak}
	}
	views := make([]float64, len(videos))
	er := make([]float64, len(videos))
	for i, v := range videos {
		views[i] = float64(v.ViewCount)
		er[i] = v.EngagementRate
	}

	r := stat.Correlation(views, er, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Correlation{Strength: CorrelationWeak}
	}

	c := Correlation{Coefficient: r, Defined: true, Strength: CorrelationWeak}
	switch {
	case r > 0.5:
		c.Strength = CorrelationStrongPositive
	case r < -0.5:
		c.Strength = CorrelationNegative
	}
	return c
}
