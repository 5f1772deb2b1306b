package analysis

import "github.com/ZanzyTHEbar/tube-o-meter/internal/types"

// VideoMetrics is a video with its derived engagement rate
type VideoMetrics struct {
	types.Video
	EngagementRate float64 `json:"engagement_rate"`
}

// EngagementRate returns (likes+comments)/views as a percentage, or 0 when
// the video has no views.
func EngagementRate(likes, comments, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes+comments) / float64(views) * 100
}

// DeriveEngagement attaches an engagement rate to every video
func DeriveEngagement(videos []types.Video) []VideoMetrics {
	out := make([]VideoMetrics, len(videos))
	for i, v := range videos {
		out[i] = VideoMetrics{
			Video:          v,
			EngagementRate: EngagementRate(v.LikeCount, v.CommentCount, v.ViewCount),
		}
	}
	return out
}

// VideoAlternatives builds one alternative per video
func VideoAlternatives(videos []VideoMetrics) []Alternative {
	alts := make([]Alternative, len(videos))
	for i, v := range videos {
		alts[i] = Alternative{
			ID:    v.VideoID,
			Label: v.Title,
			Raw: map[string]float64{
				CriterionViews:          float64(v.ViewCount),
				CriterionLikes:          float64(v.LikeCount),
				CriterionComments:       float64(v.CommentCount),
				CriterionEngagementRate: v.EngagementRate,
			},
		}
	}
	return alts
}
