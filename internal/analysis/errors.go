package analysis

import (
	"fmt"
	"strings"
)

// ConfigMismatchError reports a weight set whose keys differ from the
// matrix criteria.
type ConfigMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *ConfigMismatchError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing weights for "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "weights for unknown criteria "+strings.Join(e.Unexpected, ", "))
	}
	return "weight set does not match criteria: " + strings.Join(parts, "; ")
}

// InvalidValueError reports a decision matrix cell or criterion that cannot be scored
type InvalidValueError struct {
	Alternative string
	Criterion   string
	Value       float64
	Reason      string
}

func (e *InvalidValueError) Error() string {
	switch {
	case e.Alternative != "":
		return fmt.Sprintf("invalid value for %s/%s: %s", e.Alternative, e.Criterion, e.Reason)
	case e.Criterion != "":
		return fmt.Sprintf("invalid criterion %s: %s", e.Criterion, e.Reason)
	default:
		return "invalid decision matrix: " + e.Reason
	}
}

// WeightSumError is returned instead of a warning when strict weights are enabled
type WeightSumError struct {
	Validation WeightValidation
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("weights rejected (sum %.2f): %s", e.Validation.Sum, strings.Join(e.Validation.Issues, "; "))
}
