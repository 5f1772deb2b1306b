package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// WIB is the fixed UTC+7 zone all publish times are bucketed in
var WIB = time.FixedZone("WIB", 7*60*60)

// DayNames holds localized weekday names indexed by time.Weekday
type DayNames [7]string

var (
	IndonesianDays = DayNames{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	EnglishDays    = DayNames{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

// DayNamesFor returns the day names for a locale, defaulting to Indonesian
func DayNamesFor(locale string) DayNames {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return EnglishDays
	}
	return IndonesianDays
}

// Name returns the localized name of a weekday
func (d DayNames) Name(w time.Weekday) string {
	return d[w]
}

// Ordered returns the canonical Monday-first list of day names
func (d DayNames) Ordered() []string {
	out := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		out = append(out, d[i%7])
	}
	return out
}

// Index returns the Monday-first position of a day name, or -1
func (d DayNames) Index(name string) int {
	for i, n := range d.Ordered() {
		if n == name {
			return i
		}
	}
	return -1
}

// dayIndex converts time.Weekday to a Monday-first index
func dayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// LocalTime converts a publish time into WIB
func LocalTime(t time.Time) time.Time {
	return t.In(WIB)
}

// SlotKey builds the bucket key for a localized day and hour
func SlotKey(day string, hour int) string {
	return fmt.Sprintf("%s %02d:00", day, hour)
}

// TimeSlot is one observed (day, hour) bucket with mean statistics
type TimeSlot struct {
	Key            string  `json:"key"`
	Day            string  `json:"day"`
	DayIndex       int     `json:"day_index"`
	Hour           int     `json:"hour"`
	Videos         int     `json:"videos"`
	MeanViews      float64 `json:"mean_views"`
	MeanLikes      float64 `json:"mean_likes"`
	MeanComments   float64 `json:"mean_comments"`
	EngagementRate float64 `json:"engagement_rate"`
}

type slotAccumulator struct {
	slot                   TimeSlot
	views, likes, comments float64
}

// AggregateTimeSlots groups videos by WIB day and hour and averages their
// counts. Only observed buckets are returned, Monday first then by hour.
func AggregateTimeSlots(videos []types.Video, days DayNames) []TimeSlot {
	if len(videos) == 0 {
		return []TimeSlot{}
	}

	buckets := make(map[string]*slotAccumulator)
	for _, v := range videos {
		local := LocalTime(v.PublishedAt)
		day := days.Name(local.Weekday())
		key := SlotKey(day, local.Hour())

		acc, ok := buckets[key]
		if !ok {
			acc = &slotAccumulator{slot: TimeSlot{
				Key:      key,
				Day:      day,
				DayIndex: dayIndex(local.Weekday()),
				Hour:     local.Hour(),
			}}
			buckets[key] = acc
		}
		acc.slot.Videos++
		acc.views += float64(v.ViewCount)
		acc.likes += float64(v.LikeCount)
		acc.comments += float64(v.CommentCount)
	}

	slots := make([]TimeSlot, 0, len(buckets))
	for _, acc := range buckets {
		n := float64(acc.slot.Videos)
		s := acc.slot
		s.MeanViews = acc.views / n
		s.MeanLikes = acc.likes / n
		s.MeanComments = acc.comments / n
		if s.MeanViews > 0 {
			s.EngagementRate = (s.MeanLikes + s.MeanComments) / s.MeanViews * 100
		}
		slots = append(slots, s)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayIndex != slots[j].DayIndex {
			return slots[i].DayIndex < slots[j].DayIndex
		}
		return slots[i].Hour < slots[j].Hour
	})
	return slots
}

// TimeSlotAlternatives builds one alternative per bucket
func TimeSlotAlternatives(slots []TimeSlot) []Alternative {
	alts := make([]Alternative, len(slots))
	for i, s := range slots {
		alts[i] = Alternative{
			ID:    s.Key,
			Label: s.Key,
			Raw: map[string]float64{
				CriterionViews:    s.MeanViews,
				CriterionLikes:    s.MeanLikes,
				CriterionComments: s.MeanComments,
			},
		}
	}
	return alts
}
