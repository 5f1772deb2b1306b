package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Normalize scales every criterion into [0,1]. Benefit criteria divide by
// the column maximum and cost criteria divide the column minimum by the
// value. A column whose guard value is zero normalizes to 0 for benefit.
// The input matrix is left untouched.
func Normalize(m DecisionMatrix) DecisionMatrix {
	out := DecisionMatrix{
		Criteria:     m.Criteria,
		Alternatives: make([]Alternative, len(m.Alternatives)),
	}
	for i, alt := range m.Alternatives {
		out.Alternatives[i] = alt.clone()
		out.Alternatives[i].Normalized = make(map[string]float64, len(m.Criteria))
	}
	if len(m.Alternatives) == 0 {
		return out
	}

	for _, c := range m.Criteria {
		lo, hi := columnBounds(m.Alternatives, c.Name)
		for i := range out.Alternatives {
			raw := out.Alternatives[i].Raw[c.Name]
			out.Alternatives[i].Normalized[c.Name] = normalizeValue(c.Polarity, raw, lo, hi)
		}
	}
	return out
}

func columnBounds(alts []Alternative, name string) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, a := range alts {
		v := a.Raw[name]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func normalizeValue(p Polarity, raw, lo, hi float64) float64 {
	switch p {
	case PolarityCost:
		// a zero cost is the column minimum and therefore the best value
		if raw <= 0 {
			return 1
		}
		return lo / raw
	default:
		if hi <= 0 {
			return 0
		}
		return raw / hi
	}
}

// CheckWeights verifies that the weight keys are exactly the criterion names
func CheckWeights(criteria []Criterion, weights WeightSet) error {
	known := make(map[string]bool, len(criteria))
	mismatch := &ConfigMismatchError{}
	for _, c := range criteria {
		known[c.Name] = true
		if _, ok := weights[c.Name]; !ok {
			mismatch.Missing = append(mismatch.Missing, c.Name)
		}
	}
	for name := range weights {
		if !known[name] {
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		}
	}
	if len(mismatch.Missing) == 0 && len(mismatch.Unexpected) == 0 {
		return nil
	}
	sort.Strings(mismatch.Unexpected)
	return mismatch
}

// Score computes V = sum(w * r) for every alternative of a normalized
// matrix, sorts descending with ties kept in input order, and assigns
// 1-based ranks.
func Score(m DecisionMatrix, weights WeightSet) ([]Alternative, error) {
	if err := CheckWeights(m.Criteria, weights); err != nil {
		return nil, err
	}

	scored := make([]Alternative, len(m.Alternatives))
	for i, alt := range m.Alternatives {
		a := alt.clone()
		if a.Normalized == nil {
			return nil, &InvalidValueError{Alternative: a.ID, Reason: "alternative has not been normalized"}
		}
		// summed in criterion order so repeated runs are bit-identical
		v := 0.0
		for _, c := range m.Criteria {
			v += weights[c.Name] * a.Normalized[c.Name]
		}
		a.Score = v
		scored[i] = a
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, nil
}

// ValidateWeights checks that every weight is in [0,1] and that the sum,
// rounded to two decimals, equals 1. The result is advisory.
func ValidateWeights(weights WeightSet) WeightValidation {
	sum := weights.Sum()
	result := WeightValidation{Valid: true, Sum: sum}

	for _, name := range weights.Names() {
		w := weights[name]
		if math.IsNaN(w) || w < 0 || w > 1 {
			result.Valid = false
			result.Issues = append(result.Issues, fmt.Sprintf("weight %s=%v is outside [0,1]", name, w))
		}
	}
	if math.Round(sum*100)/100 != 1.0 {
		result.Valid = false
		result.Issues = append(result.Issues, fmt.Sprintf("weights sum to %.2f, expected 1.00", sum))
	}
	return result
}
