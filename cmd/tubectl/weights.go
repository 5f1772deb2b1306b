package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
)

var errInvalidWeights = errors.New("weights are invalid")

// parseWeights reads "name=value,name=value" into a weight set
func parseWeights(s string) (analysis.WeightSet, error) {
	weights := analysis.WeightSet{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("weight %q: expected name=value", pair)
		}
		if _, dup := weights[name]; dup {
			return nil, fmt.Errorf("weight %q given twice", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("weight %q: must be finite", name)
		}
		weights[name] = v
	}
	if len(weights) == 0 {
		return nil, errors.New("no weights given")
	}
	return weights, nil
}

// criteriaFor returns the built-in criteria of a pipeline
func criteriaFor(pipeline string) ([]analysis.Criterion, error) {
	switch analysis.Pipeline(pipeline) {
	case analysis.PipelineVideo:
		return analysis.VideoCriteria(), nil
	case analysis.PipelineTimeSlot:
		return analysis.TimeSlotCriteria(), nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q: must be video or time_slot", pipeline)
	}
}

func (c *cli) newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect and manage weight sets",
	}
	cmd.AddCommand(c.newWeightsValidateCmd(), c.newWeightsShowCmd(), c.newWeightsSaveCmd())
	return cmd
}

func (c *cli) newWeightsValidateCmd() *cobra.Command {
	var pipeline string
	cmd := &cobra.Command{
		Use:   "validate NAME=VALUE,...",
		Short: "Check that weights lie in [0,1] and sum to 1",
		Long: `Check a weight set. With --pipeline the names are also matched against
that pipeline's criteria.

Examples:
  tubectl weights validate views=0.5,likes=0.3,comments=0.2
  tubectl weights validate --pipeline time_slot views=0.5,likes=0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := parseWeights(args[0])
			if err != nil {
				return err
			}

			v := analysis.ValidateWeights(weights)
			c.printWeights(weights)
			fmt.Fprintf(c.printer.out, "sum: %s\n", strconv.FormatFloat(v.Sum, 'f', -1, 64))
			for _, issue := range v.Issues {
				c.printer.Warn("%s", issue)
			}

			valid := v.Valid
			if pipeline != "" {
				criteria, err := criteriaFor(pipeline)
				if err != nil {
					return err
				}
				if err := analysis.CheckWeights(criteria, weights); err != nil {
					c.printer.Warn("%v", err)
					valid = false
				}
			}

			if !valid {
				return errInvalidWeights
			}
			c.printer.Success("weights are valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "also match names against a pipeline (video, time_slot)")
	return cmd
}

func (c *cli) newWeightsShowCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show [PROFILE]",
		Short: "Print a weight profile (default: the built-in one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := c.cfg.Analysis.DefaultProfile
			if len(args) == 1 {
				name = args[0]
			}
			profile, err := c.analyzer.Profiles().LoadProfile(name)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(c.printer.out)
				enc.SetIndent("", "  ")
				return enc.Encode(profile)
			}

			c.printer.Header(fmt.Sprintf("Profile %s", profile.Name))
			t := newTable(c.printer.out, []string{"PIPELINE", "CRITERION", "WEIGHT"})
			for _, section := range []struct {
				pipeline analysis.Pipeline
				weights  analysis.WeightSet
			}{
				{analysis.PipelineVideo, profile.Video},
				{analysis.PipelineTimeSlot, profile.TimeSlot},
			} {
				for _, name := range section.weights.Names() {
					t.AddRow([]string{string(section.pipeline), name, formatValue(section.weights[name])})
				}
			}
			return t.Render()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func (c *cli) newWeightsSaveCmd() *cobra.Command {
	var video, slot string
	cmd := &cobra.Command{
		Use:   "save PROFILE",
		Short: "Store a named weight profile in the data directory",
		Long: `Store a named weight profile. Pipelines left out fall back to the
defaults when the profile is loaded.

Example:
  tubectl weights save reach --video views=0.6,likes=0.2,comments=0.1,engagement_rate=0.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if video == "" && slot == "" {
				return errors.New("give --video and/or --time-slot weights")
			}
			profile := &analysis.WeightProfile{Name: args[0]}
			sections := []struct {
				raw      string
				pipeline analysis.Pipeline
				target   *analysis.WeightSet
			}{
				{video, analysis.PipelineVideo, &profile.Video},
				{slot, analysis.PipelineTimeSlot, &profile.TimeSlot},
			}
			for _, s := range sections {
				if s.raw == "" {
					continue
				}
				weights, err := parseWeights(s.raw)
				if err != nil {
					return fmt.Errorf("%s weights: %w", s.pipeline, err)
				}
				criteria, _ := criteriaFor(string(s.pipeline))
				if err := analysis.CheckWeights(criteria, weights); err != nil {
					return fmt.Errorf("%s weights: %w", s.pipeline, err)
				}
				if v := analysis.ValidateWeights(weights); !v.Valid {
					c.printer.Warn("%s weights sum to %.2f, not 1", s.pipeline, v.Sum)
				}
				*s.target = weights
			}

			if err := c.analyzer.Profiles().SaveProfile(profile); err != nil {
				return err
			}
			c.printer.Success("saved profile %s", profile.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&video, "video", "", "video weights as name=value,...")
	cmd.Flags().StringVar(&slot, "time-slot", "", "time-slot weights as name=value,...")
	return cmd
}

func (c *cli) printWeights(weights analysis.WeightSet) {
	t := newTable(c.printer.out, []string{"CRITERION", "WEIGHT"})
	for _, name := range weights.Names() {
		t.AddRow([]string{name, formatValue(weights[name])})
	}
	if err := t.Render(); err != nil {
		c.logger.Warn("Failed to render table", "error", err)
	}
}
