package insights

import (
	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// DayStat is the mean views for one weekday
type DayStat struct {
	Day       string  `json:"day"`
	Videos    int     `json:"videos"`
	MeanViews float64 `json:"mean_views"`
	Observed  bool    `json:"observed"`
}

// HourStat is the mean views for one hour of the day
type HourStat struct {
	Hour      int     `json:"hour"`
	Videos    int     `json:"videos"`
	MeanViews float64 `json:"mean_views"`
}

type meanAcc struct {
	n   int
	sum float64
}

func (m meanAcc) mean() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// DailyTrend returns mean views for all seven days, Monday first. Days with
// no uploads are reported with zero views and Observed=false.
func DailyTrend(videos []types.Video, days analysis.DayNames) []DayStat {
	var acc [7]meanAcc
	for _, v := range videos {
		local := analysis.LocalTime(v.PublishedAt)
		i := (int(local.Weekday()) + 6) % 7
		acc[i].n++
		acc[i].sum += float64(v.ViewCount)
	}

	out := make([]DayStat, 7)
	for i, name := range days.Ordered() {
		out[i] = DayStat{
			Day:       name,
			Videos:    acc[i].n,
			MeanViews: acc[i].mean(),
			Observed:  acc[i].n > 0,
		}
	}
	return out
}

// HourlyTrend returns mean views for every observed WIB hour, in hour order
func HourlyTrend(videos []types.Video) []HourStat {
	var acc [24]meanAcc
	for _, v := range videos {
		h := analysis.LocalTime(v.PublishedAt).Hour()
		acc[h].n++
		acc[h].sum += float64(v.ViewCount)
	}

	out := make([]HourStat, 0, 24)
	for h, a := range acc {
		if a.n == 0 {
			continue
		}
		out = append(out, HourStat{Hour: h, Videos: a.n, MeanViews: a.mean()})
	}
	return out
}

// Heatmap holds mean views by day (rows, Monday first) and hour (columns)
type Heatmap struct {
	Days  []string    `json:"days"`
	Hours []int       `json:"hours"`
	Cells [][]float64 `json:"cells"`
}

// BuildHeatmap reindexes the day-by-hour mean views on the canonical seven
// days and the observed hours, filling empty cells with zero.
func BuildHeatmap(videos []types.Video, days analysis.DayNames) Heatmap {
	var acc [7][24]meanAcc
	var seenHour [24]bool
	for _, v := range videos {
		local := analysis.LocalTime(v.PublishedAt)
		d := (int(local.Weekday()) + 6) % 7
		h := local.Hour()
		acc[d][h].n++
		acc[d][h].sum += float64(v.ViewCount)
		seenHour[h] = true
	}

	hm := Heatmap{Days: days.Ordered(), Hours: []int{}}
	for h, seen := range seenHour {
		if seen {
			hm.Hours = append(hm.Hours, h)
		}
	}
	hm.Cells = make([][]float64, 7)
	for d := range hm.Cells {
		row := make([]float64, len(hm.Hours))
		for i, h := range hm.Hours {
			row[i] = acc[d][h].mean()
		}
		hm.Cells[d] = row
	}
	return hm
}

// UploadTime is the best day and the best hour by mean views
type UploadTime struct {
	Day           string  `json:"day"`
	DayMeanViews  float64 `json:"day_mean_views"`
	Hour          int     `json:"hour"`
	HourMeanViews float64 `json:"hour_mean_views"`
}

// BestUploadTime picks the day and the hour with the highest mean views.
// Ties go to the earlier day or hour. It reports false for no videos.
func BestUploadTime(videos []types.Video, days analysis.DayNames) (UploadTime, bool) {
	if len(videos) == 0 {
		return UploadTime{}, false
	}

	var best UploadTime
	first := true
	for _, d := range DailyTrend(videos, days) {
		if !d.Observed {
			continue
		}
		if first || d.MeanViews > best.DayMeanViews {
			best.Day, best.DayMeanViews = d.Day, d.MeanViews
			first = false
		}
	}

	first = true
	for _, h := range HourlyTrend(videos) {
		if first || h.MeanViews > best.HourMeanViews {
			best.Hour, best.HourMeanViews = h.Hour, h.MeanViews
			first = false
		}
	}
	return best, true
}
