package analysis

import (
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// Builder describes how a pipeline turns cleaned videos into alternatives
type Builder struct {
	Pipeline Pipeline
	Criteria []Criterion
	Build    func(videos []types.Video) []Alternative
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithStrictWeights rejects weight sets that fail validation instead of
// scoring them with a warning.
func WithStrictWeights(strict bool) Option {
	return func(a *Analyzer) { a.strictWeights = strict }
}

// WithDayNames sets the locale used for time-slot keys
func WithDayNames(days DayNames) Option {
	return func(a *Analyzer) { a.days = days }
}

// WithVideoLimit caps how many of the leading videos are ranked
func WithVideoLimit(limit int) Option {
	return func(a *Analyzer) { a.preprocessor = NewPreprocessor(limit) }
}

// Analyzer orchestrates preprocessing, matrix construction, normalization
// and scoring. It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	preprocessor  *Preprocessor
	profiles      *ProfileStore
	days          DayNames
	strictWeights bool
}

// NewAnalyzer creates a new analyzer with all components
func NewAnalyzer(dataDir string, opts ...Option) *Analyzer {
	a := &Analyzer{
		preprocessor: NewPreprocessor(0),
		profiles:     NewProfileStore(dataDir),
		days:         IndonesianDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DayNames returns the locale used for time-slot keys
func (a *Analyzer) DayNames() DayNames {
	return a.days
}

// Profiles returns the weight profile store
func (a *Analyzer) Profiles() *ProfileStore {
	return a.profiles
}

// StrictWeights reports whether invalid weights are rejected
func (a *Analyzer) StrictWeights() bool {
	return a.strictWeights
}

// VideoBuilder ranks each video directly
func (a *Analyzer) VideoBuilder() Builder {
	return Builder{
		Pipeline: PipelineVideo,
		Criteria: VideoCriteria(),
		Build: func(videos []types.Video) []Alternative {
			return VideoAlternatives(DeriveEngagement(videos))
		},
	}
}

// TimeSlotBuilder ranks (day, hour) buckets built from mean counts
func (a *Analyzer) TimeSlotBuilder() Builder {
	return Builder{
		Pipeline: PipelineTimeSlot,
		Criteria: TimeSlotCriteria(),
		Build: func(videos []types.Video) []Alternative {
			return TimeSlotAlternatives(AggregateTimeSlots(videos, a.days))
		},
	}
}

// Prepare cleans videos the same way every pipeline does
func (a *Analyzer) Prepare(videos []types.Video) ([]types.Video, error) {
	return a.preprocessor.ProcessVideos(videos)
}

// Rank runs a builder over videos and scores the result
func (a *Analyzer) Rank(videos []types.Video, b Builder, weights WeightSet) (Ranking, error) {
	cleaned, err := a.Prepare(videos)
	if err != nil {
		return Ranking{}, err
	}
	return a.RankAlternatives(b.Pipeline, b.Criteria, b.Build(cleaned), weights)
}

// RankVideos ranks every video on views, likes, comments and engagement rate
func (a *Analyzer) RankVideos(videos []types.Video, weights WeightSet) (Ranking, error) {
	return a.Rank(videos, a.VideoBuilder(), weights)
}

// RankTimeSlots ranks upload slots on mean views, likes and comments
func (a *Analyzer) RankTimeSlots(videos []types.Video, weights WeightSet) (Ranking, error) {
	return a.Rank(videos, a.TimeSlotBuilder(), weights)
}

// TimeSlots returns the aggregated buckets without scoring them
func (a *Analyzer) TimeSlots(videos []types.Video) ([]TimeSlot, error) {
	cleaned, err := a.Prepare(videos)
	if err != nil {
		return nil, err
	}
	return AggregateTimeSlots(cleaned, a.days), nil
}

// RankAlternatives is the generic engine: validate weights, build the
// matrix, normalize and score.
func (a *Analyzer) RankAlternatives(p Pipeline, criteria []Criterion, alts []Alternative, weights WeightSet) (Ranking, error) {
	validation := ValidateWeights(weights)
	if !validation.Valid && a.strictWeights {
		return Ranking{}, &WeightSumError{Validation: validation}
	}
	if err := CheckWeights(criteria, weights); err != nil {
		return Ranking{}, err
	}

	matrix, err := NewDecisionMatrix(criteria, alts)
	if err != nil {
		return Ranking{}, err
	}

	scored, err := Score(Normalize(matrix), weights)
	if err != nil {
		return Ranking{}, err
	}

	return Ranking{
		Pipeline:     p,
		Criteria:     criteria,
		Weights:      weights.Clone(),
		Validation:   validation,
		Alternatives: scored,
	}, nil
}

// ResolveWeights picks the weights for both pipelines: explicit sets win,
// then the named profile, then the defaults.
func (a *Analyzer) ResolveWeights(profile string, video, slot WeightSet) (WeightSet, WeightSet, error) {
	p, err := a.profiles.LoadProfile(profile)
	if err != nil {
		return nil, nil, err
	}
	if len(video) == 0 {
		video = p.Video
	}
	if len(slot) == 0 {
		slot = p.TimeSlot
	}
	return video, slot, nil
}
