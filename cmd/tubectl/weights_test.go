package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
)

func TestParseWeights(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    analysis.WeightSet
		wantErr string
	}{
		{
			name:  "comma separated pairs",
			input: "views=0.5,likes=0.3,comments=0.2",
			want:  analysis.WeightSet{"views": 0.5, "likes": 0.3, "comments": 0.2},
		},
		{
			name:  "spaces and trailing comma are ignored",
			input: " views = 0.6 , likes=0.4, ",
			want:  analysis.WeightSet{"views": 0.6, "likes": 0.4},
		},
		{
			name:  "values outside [0,1] parse and are reported later",
			input: "views=1.5",
			want:  analysis.WeightSet{"views": 1.5},
		},
		{name: "missing equals sign", input: "views", wantErr: "expected name=value"},
		{name: "missing name", input: "=0.5", wantErr: "expected name=value"},
		{name: "non numeric value", input: "views=high", wantErr: "views"},
		{name: "nan value", input: "views=NaN", wantErr: "must be finite"},
		{name: "infinite value", input: "views=+Inf", wantErr: "must be finite"},
		{name: "duplicate name", input: "views=0.5,views=0.5", wantErr: "given twice"},
		{name: "empty input", input: " , ", wantErr: "no weights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWeights(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeightsValidateCommand(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantOut    string
		wantStderr string
	}{
		{
			name:    "weights summing to one are valid",
			args:    []string{"weights", "validate", "views=0.5,likes=0.3,comments=0.2"},
			wantOut: "weights are valid",
		},
		{
			name:       "sum above one is rejected",
			args:       []string{"weights", "validate", "views=0.6,likes=0.3,comments=0.2"},
			wantErr:    errInvalidWeights,
			wantStderr: "warning:",
		},
		{
			name:    "names matching the time slot pipeline",
			args:    []string{"weights", "validate", "--pipeline", "time_slot", "views=0.5,likes=0.3,comments=0.2"},
			wantOut: "weights are valid",
		},
		{
			name:       "names missing a video criterion",
			args:       []string{"weights", "validate", "--pipeline", "video", "views=0.5,likes=0.3,comments=0.2"},
			wantErr:    errInvalidWeights,
			wantStderr: "engagement_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, err := run(t, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err, stderr)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out, tt.wantOut)
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}

	t.Run("unknown pipeline", func(t *testing.T) {
		_, _, err := run(t, "weights", "validate", "--pipeline", "shorts", "views=1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown pipeline")
	})

	t.Run("argument is required", func(t *testing.T) {
		_, _, err := run(t, "weights", "validate")
		assert.Error(t, err)
	})
}

func TestWeightsSaveAndShow(t *testing.T) {
	setupEnv(t)

	out, stderr, err := run(t, "weights", "save", "reach",
		"--video", "views=0.7,likes=0.1,comments=0.1,engagement_rate=0.1")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "saved profile reach")

	t.Run("saved profile falls back to default slot weights", func(t *testing.T) {
		out, _, err := run(t, "weights", "show", "reach", "--json")
		require.NoError(t, err)

		var profile analysis.WeightProfile
		require.NoError(t, json.Unmarshal([]byte(out), &profile))
		assert.Equal(t, "reach", profile.Name)
		assert.InDelta(t, 0.7, profile.Video[analysis.CriterionViews], 1e-9)
		assert.Equal(t, analysis.DefaultTimeSlotWeights(), profile.TimeSlot)
	})

	t.Run("default profile renders as a table", func(t *testing.T) {
		out, _, err := run(t, "weights", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "Profile default")
		assert.Contains(t, out, "engagement_rate")
		assert.Contains(t, out, "time_slot")
	})

	t.Run("mismatched names are not saved", func(t *testing.T) {
		_, _, err := run(t, "weights", "save", "broken", "--video", "views=1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "video weights")
	})

	t.Run("at least one pipeline is required", func(t *testing.T) {
		_, _, err := run(t, "weights", "save", "empty")
		assert.Error(t, err)
	})

	t.Run("invalid profile name", func(t *testing.T) {
		_, _, err := run(t, "weights", "show", "../etc")
		assert.Error(t, err)
	})
}
