package types

import "time"

// Video is a single upload as returned by the YouTube adapter
type Video struct {
	VideoID      string    `json:"video_id"`
	ChannelID    string    `json:"channel_id,omitempty"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	Duration     string    `json:"duration,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
}

// ChannelStats holds the public statistics of a channel
type ChannelStats struct {
	Subscribers int64 `json:"subscribers"`
	TotalViews  int64 `json:"total_views"`
	TotalVideos int64 `json:"total_videos"`
}

// ChannelInfo describes a channel and where its uploads live
type ChannelInfo struct {
	ChannelID       string       `json:"channel_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Thumbnail       string       `json:"thumbnail,omitempty"`
	UploadsPlaylist string       `json:"uploads_playlist"`
	Niche           string       `json:"niche"`
	Stats           ChannelStats `json:"stats"`
}

// ChannelSearchResult is a single hit from a channel search
type ChannelSearchResult struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// AnalyzeRequest represents the request structure for the analyze endpoint
type AnalyzeRequest struct {
	ChannelID      string             `json:"channel_id" binding:"required"`
	CompetitorIDs  []string           `json:"competitor_ids,omitempty"`
	VideoLimit     int                `json:"video_limit,omitempty"`
	VideoWeights   map[string]float64 `json:"video_weights,omitempty"`
	SlotWeights    map[string]float64 `json:"slot_weights,omitempty"`
	WeightProfile  string             `json:"weight_profile,omitempty"`
	Year           int                `json:"year,omitempty"`
	MinViews       int64              `json:"min_views,omitempty"`
	AutoCompetitor bool               `json:"auto_competitor,omitempty"`
}

// RankRequest scores a caller-supplied decision matrix
type RankRequest struct {
	Criteria     []RankCriterion    `json:"criteria" binding:"required"`
	Alternatives []RankAlternative  `json:"alternatives"`
	Weights      map[string]float64 `json:"weights" binding:"required"`
}

// RankCriterion names a column of a decision matrix
type RankCriterion struct {
	Name     string `json:"name" binding:"required"`
	Polarity string `json:"polarity,omitempty"`
}

// RankAlternative is one row of a decision matrix
type RankAlternative struct {
	ID     string             `json:"id" binding:"required"`
	Label  string             `json:"label,omitempty"`
	Values map[string]float64 `json:"values"`
}

// WeightsRequest carries a weight set to validate
type WeightsRequest struct {
	Weights map[string]float64 `json:"weights" binding:"required"`
}
