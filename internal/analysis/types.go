package analysis

import (
	"math"
	"sort"
)

// Polarity tells the normalizer which direction of a criterion is better
type Polarity string

const (
	PolarityBenefit Polarity = "benefit"
	PolarityCost    Polarity = "cost"
)

// Criterion names used by the built-in pipelines
const (
	CriterionViews          = "views"
	CriterionLikes          = "likes"
	CriterionComments       = "comments"
	CriterionEngagementRate = "engagement_rate"
)

// Pipeline identifies how alternatives were built
type Pipeline string

const (
	PipelineVideo    Pipeline = "video"
	PipelineTimeSlot Pipeline = "time_slot"
	PipelineCustom   Pipeline = "custom"
)

// Criterion is a column of the decision matrix
type Criterion struct {
	Name     string   `json:"name"`
	Polarity Polarity `json:"polarity"`
}

// Benefit returns a benefit criterion with the given name
func Benefit(name string) Criterion {
	return Criterion{Name: name, Polarity: PolarityBenefit}
}

// VideoCriteria are the columns used when each video is an alternative
func VideoCriteria() []Criterion {
	return []Criterion{
		Benefit(CriterionViews),
		Benefit(CriterionLikes),
		Benefit(CriterionComments),
		Benefit(CriterionEngagementRate),
	}
}

// TimeSlotCriteria are the columns used when each upload slot is an alternative
func TimeSlotCriteria() []Criterion {
	return []Criterion{
		Benefit(CriterionViews),
		Benefit(CriterionLikes),
		Benefit(CriterionComments),
	}
}

// WeightSet maps criterion name to its weight
type WeightSet map[string]float64

// Sum returns the total of all weights, added in name order
func (w WeightSet) Sum() float64 {
	s := 0.0
	for _, name := range w.Names() {
		s += w[name]
	}
	return s
}

// Names returns the criterion names in sorted order
func (w WeightSet) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy
func (w WeightSet) Clone() WeightSet {
	out := make(WeightSet, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Alternative is a row of the decision matrix
type Alternative struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Raw        map[string]float64 `json:"raw"`
	Normalized map[string]float64 `json:"normalized,omitempty"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
}

func (a Alternative) clone() Alternative {
	out := a
	out.Raw = copyValues(a.Raw)
	out.Normalized = copyValues(a.Normalized)
	return out
}

func copyValues(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecisionMatrix is built fresh for every run and never stored
type DecisionMatrix struct {
	Criteria     []Criterion   `json:"criteria"`
	Alternatives []Alternative `json:"alternatives"`
}

// NewDecisionMatrix checks that every alternative carries a finite,
// non-negative value for every criterion.
func NewDecisionMatrix(criteria []Criterion, alternatives []Alternative) (DecisionMatrix, error) {
	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		if c.Name == "" {
			return DecisionMatrix{}, &InvalidValueError{Reason: "criterion name is empty"}
		}
		if seen[c.Name] {
			return DecisionMatrix{}, &InvalidValueError{Criterion: c.Name, Reason: "duplicate criterion"}
		}
		seen[c.Name] = true
		if c.Polarity != PolarityBenefit && c.Polarity != PolarityCost {
			return DecisionMatrix{}, &InvalidValueError{Criterion: c.Name, Reason: "unknown polarity " + string(c.Polarity)}
		}
	}

	for _, alt := range alternatives {
		for _, c := range criteria {
			v, ok := alt.Raw[c.Name]
			if !ok {
				return DecisionMatrix{}, &InvalidValueError{Alternative: alt.ID, Criterion: c.Name, Reason: "missing value"}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return DecisionMatrix{}, &InvalidValueError{Alternative: alt.ID, Criterion: c.Name, Value: v, Reason: "value must be finite and non-negative"}
			}
		}
	}

	return DecisionMatrix{Criteria: criteria, Alternatives: alternatives}, nil
}

// CriterionNames returns the matrix columns in order
func (m DecisionMatrix) CriterionNames() []string {
	names := make([]string, len(m.Criteria))
	for i, c := range m.Criteria {
		names[i] = c.Name
	}
	return names
}

// WeightValidation is the advisory result of checking a weight set
type WeightValidation struct {
	Valid  bool     `json:"valid"`
	Sum    float64  `json:"sum"`
	Issues []string `json:"issues,omitempty"`
}

// Ranking is the output of a scoring run, sorted best first
type Ranking struct {
	Pipeline     Pipeline         `json:"pipeline"`
	Criteria     []Criterion      `json:"criteria"`
	Weights      WeightSet        `json:"weights"`
	Validation   WeightValidation `json:"validation"`
	Alternatives []Alternative    `json:"alternatives"`
}

// Best returns the top-ranked alternative, if any
func (r Ranking) Best() (Alternative, bool) {
	if len(r.Alternatives) == 0 {
		return Alternative{}, false
	}
	return r.Alternatives[0], true
}

// Top returns at most n alternatives from the head of the ranking
func (r Ranking) Top(n int) []Alternative {
	if n < 0 || n > len(r.Alternatives) {
		n = len(r.Alternatives)
	}
	return r.Alternatives[:n]
}
