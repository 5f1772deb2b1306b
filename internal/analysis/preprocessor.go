package analysis

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// Preprocessor cleans fetched videos before alternatives are built
type Preprocessor struct {
	limit int
}

// NewPreprocessor creates a preprocessor keeping at most limit videos.
// A limit of zero keeps everything.
func NewPreprocessor(limit int) *Preprocessor {
	if limit < 0 {
		limit = 0
	}
	return &Preprocessor{limit: limit}
}

// ProcessVideos removes duplicate IDs (first occurrence wins) and applies the
// limit to the leading videos. Input order is preserved so score ties keep
// it; fetched uploads already arrive newest first. A video without an ID is
// an InvalidValueError. The input slice is not modified.
func (p *Preprocessor) ProcessVideos(videos []types.Video) ([]types.Video, error) {
	cleaned, err := p.removeDuplicates(videos)
	if err != nil {
		return nil, err
	}
	if p.limit > 0 && len(cleaned) > p.limit {
		cleaned = cleaned[:p.limit]
	}
	return cleaned, nil
}

// removeDuplicates keeps the first occurrence of every video ID
func (p *Preprocessor) removeDuplicates(videos []types.Video) ([]types.Video, error) {
	seen := make(map[string]bool, len(videos))
	cleaned := make([]types.Video, 0, len(videos))
	for i, v := range videos {
		id := strings.TrimSpace(v.VideoID)
		if id == "" {
			return nil, &InvalidValueError{Reason: fmt.Sprintf("video at index %d has no id", i)}
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		cleaned = append(cleaned, v)
	}
	return cleaned, nil
}
