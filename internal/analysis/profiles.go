package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// WeightProfile holds the weights for both built-in pipelines
type WeightProfile struct {
	Name     string    `json:"name"`
	Video    WeightSet `json:"video"`
	TimeSlot WeightSet `json:"time_slot"`
}

// DefaultVideoWeights returns the weights used when a caller supplies none
func DefaultVideoWeights() WeightSet {
	return WeightSet{
		CriterionViews:          0.30,
		CriterionLikes:          0.25,
		CriterionComments:       0.20,
		CriterionEngagementRate: 0.25,
	}
}

// DefaultTimeSlotWeights returns the slot weights used when a caller supplies none
func DefaultTimeSlotWeights() WeightSet {
	return WeightSet{
		CriterionViews:    0.50,
		CriterionLikes:    0.30,
		CriterionComments: 0.20,
	}
}

// DefaultProfile returns the built-in weight profile
func DefaultProfile() *WeightProfile {
	return &WeightProfile{
		Name:     "default",
		Video:    DefaultVideoWeights(),
		TimeSlot: DefaultTimeSlotWeights(),
	}
}

var profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ProfileStore reads named weight profiles from <dataDir>/weights/<name>.json
type ProfileStore struct {
	dataDir string
}

// NewProfileStore creates a new profile store
func NewProfileStore(dataDir string) *ProfileStore {
	return &ProfileStore{dataDir: dataDir}
}

func (s *ProfileStore) path(name string) string {
	return filepath.Join(s.dataDir, "weights", fmt.Sprintf("%s.json", name))
}

// LoadProfile loads a named profile. An empty name or a missing file yields
// the default profile; sections absent from the file fall back to defaults.
func (s *ProfileStore) LoadProfile(name string) (*WeightProfile, error) {
	if name == "" || name == "default" {
		return DefaultProfile(), nil
	}
	if !profileNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid weight profile name %q", name)
	}

	filePath := s.path(name)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return DefaultProfile(), nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open weight profile: %w", err)
	}
	defer file.Close()

	var profile WeightProfile
	if err := json.NewDecoder(file).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode weight profile: %w", err)
	}

	profile.Name = name
	if len(profile.Video) == 0 {
		profile.Video = DefaultVideoWeights()
	}
	if len(profile.TimeSlot) == 0 {
		profile.TimeSlot = DefaultTimeSlotWeights()
	}
	return &profile, nil
}

// SaveProfile writes a profile so the CLI can reuse tuned weights
func (s *ProfileStore) SaveProfile(profile *WeightProfile) error {
	if profile == nil || !profileNamePattern.MatchString(profile.Name) {
		return fmt.Errorf("invalid weight profile")
	}

	filePath := s.path(profile.Name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create weight profile directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create weight profile: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(profile); err != nil {
		return fmt.Errorf("failed to encode weight profile: %w", err)
	}

	return nil
}
