package classify

import (
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// Level is a subscriber tier
type Level string

const (
	LevelBeginner     Level = "pemula"
	LevelIntermediate Level = "menengah"
	LevelEstablished  Level = "mapan"
	LevelProfessional Level = "profesional"
)

// Benchmark describes what a channel in a tier should work on next
type Benchmark struct {
	SubsTarget string `json:"subs_target"`
	Focus      string `json:"focus"`
	Challenge  string `json:"challenge"`
	Strategy   string `json:"strategy"`
}

// Category is the result of categorizing a channel
type Category struct {
	Label       string    `json:"category"`
	Level       Level     `json:"level"`
	Rank        int       `json:"rank"`
	Color       string    `json:"color"`
	Subscribers int64     `json:"subs"`
	AvgViews    float64   `json:"avg_views"`
	TotalVideos int64     `json:"total_videos"`
	Benchmark   Benchmark `json:"benchmark"`
}

type tier struct {
	below     int64
	label     string
	level     Level
	color     string
	benchmark Benchmark
}

// tiers are checked in order; the last one has no upper bound
var tiers = []tier{
	{
		below: 10_000,
		label: "Pemula (Beginner)",
		level: LevelBeginner,
		color: "#6c757d",
		benchmark: Benchmark{
			SubsTarget: "10K subscribers",
			Focus:      "Konsistensi upload, niche yang jelas, SEO dasar",
			Challenge:  "Membangun audience awal, menemukan gaya konten",
			Strategy:   "Upload rutin (2-3x/minggu), riset keyword, kolaborasi micro-influencer",
		},
	},
	{
		below: 100_000,
		label: "Menengah (Intermediate)",
		level: LevelIntermediate,
		color: "#0dcaf0",
		benchmark: Benchmark{
			SubsTarget: "100K subscribers",
			Focus:      "Engagement rate, kualitas produksi, branding",
			Challenge:  "Meningkatkan retention, monetisasi, scaling content",
			Strategy:   "Optimalkan CTR & AVD, diversifikasi konten, sponsorship",
		},
	},
	{
		below: 1_000_000,
		label: "Mapan (Established)",
		level: LevelEstablished,
		color: "#ffc107",
		benchmark: Benchmark{
			SubsTarget: "1M subscribers (Gold Button)",
			Focus:      "Skalabilitas, tim produksi, multiple revenue streams",
			Challenge:  "Mempertahankan growth, kompetisi ketat, burnout",
			Strategy:   "Professional production, merchandise, komunitas loyal",
		},
	},
	{
		below: -1,
		label: "Profesional (Pro/Celebrity)",
		level: LevelProfessional,
		color: "#dc3545",
		benchmark: Benchmark{
			SubsTarget: "Maintain & grow beyond 1M",
			Focus:      "Brand deals, media exposure, viral content",
			Challenge:  "Inovasi konten, stay relevant, manajemen tim besar",
			Strategy:   "Multi-platform presence, exclusive content, big collaborations",
		},
	},
}

// Categorize places a channel in a subscriber tier
func Categorize(stats types.ChannelStats) Category {
	avgViews := 0.0
	if stats.TotalVideos > 0 {
		avgViews = float64(stats.TotalViews) / float64(stats.TotalVideos)
	}

	for i, t := range tiers {
		if t.below < 0 || stats.Subscribers < t.below {
			return Category{
				Label:       t.label,
				Level:       t.level,
				Rank:        i + 1,
				Color:       t.color,
				Subscribers: stats.Subscribers,
				AvgViews:    avgViews,
				TotalVideos: stats.TotalVideos,
				Benchmark:   t.benchmark,
			}
		}
	}
	// unreachable: the last tier is unbounded
	return Category{}
}

// Position summarizes where the main channel stands among competitors
type Position struct {
	Main             Category         `json:"main"`
	Competitors      map[string]Level `json:"competitors"`
	SameTier         int              `json:"same_tier"`
	HigherTier       int              `json:"higher_tier"`
	LowerTier        int              `json:"lower_tier"`
	SubscriberRank   int              `json:"subscriber_rank"`
	ChannelsCompared int              `json:"channels_compared"`
}

// ComparePosition categorizes the main channel and its competitors
func ComparePosition(main types.ChannelInfo, competitors []types.ChannelInfo) Position {
	mainCat := Categorize(main.Stats)
	pos := Position{
		Main:             mainCat,
		Competitors:      make(map[string]Level, len(competitors)),
		SubscriberRank:   1,
		ChannelsCompared: len(competitors) + 1,
	}

	for _, c := range competitors {
		cat := Categorize(c.Stats)
		pos.Competitors[c.ChannelID] = cat.Level
		switch {
		case cat.Rank == mainCat.Rank:
			pos.SameTier++
		case cat.Rank > mainCat.Rank:
			pos.HigherTier++
		default:
			pos.LowerTier++
		}
		if c.Stats.Subscribers > main.Stats.Subscribers {
			pos.SubscriberRank++
		}
	}
	return pos
}
