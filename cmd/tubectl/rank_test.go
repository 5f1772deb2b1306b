package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
)

func TestRankCommand(t *testing.T) {
	dir := setupEnv(t)
	input := writeVideos(t, dir, videosJSON)

	t.Run("json output is ranked best first", func(t *testing.T) {
		out, stderr, err := run(t, "rank", "-i", input, "-f", "json")
		require.NoError(t, err, stderr)

		r := decodeRanking(t, out)
		assert.Equal(t, analysis.PipelineVideo, r.Pipeline)
		assert.Equal(t, []string{"v3", "v1", "v2"}, rankedIDs(r))
		assert.InDelta(t, 1.0, r.Alternatives[0].Score, 1e-9)
		assert.True(t, r.Validation.Valid)
		assert.Empty(t, stderr)
	})

	t.Run("table output lists every criterion", func(t *testing.T) {
		out, _, err := run(t, "rank", "-i", input)
		require.NoError(t, err)
		assert.Contains(t, out, "SCORE")
		assert.Contains(t, out, "Main game horor")
		assert.Less(t, strings.Index(out, "v3"), strings.Index(out, "v1"))
		assert.Less(t, strings.Index(out, "v1"), strings.Index(out, "v2"))
	})

	t.Run("top limits table rows", func(t *testing.T) {
		out, _, err := run(t, "rank", "-i", input, "--top", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "v3")
		assert.NotContains(t, out, "v2")
	})

	t.Run("filters keep full-ranking scores", func(t *testing.T) {
		out, _, err := run(t, "rank", "-i", input, "-f", "json", "--year", "2024", "--min-views", "1500")
		require.NoError(t, err)
		r := decodeRanking(t, out)
		require.Equal(t, []string{"v3"}, rankedIDs(r))
		assert.Equal(t, 1, r.Alternatives[0].Rank)
	})

	t.Run("soft weights are scored with a warning", func(t *testing.T) {
		out, stderr, err := run(t, "rank", "-i", input, "-f", "json",
			"-w", "views=0.4,likes=0.3,comments=0.2,engagement_rate=0.2")
		require.NoError(t, err)
		r := decodeRanking(t, out)
		assert.False(t, r.Validation.Valid)
		assert.InDelta(t, 1.1, r.Validation.Sum, 1e-9)
		assert.Contains(t, stderr, "warning: video weights sum to 1.10")
	})

	t.Run("mismatched weight names fail", func(t *testing.T) {
		_, _, err := run(t, "rank", "-i", input, "-w", "views=1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing weights")
	})

	t.Run("fetch output files are accepted", func(t *testing.T) {
		wrapped := filepath.Join(dir, "fetched.json")
		content := `{"channel":{"channel_id":"UCabcdefghijklmnopqrstuv","title":"Main"},"videos":` + videosJSON + `}`
		require.NoError(t, os.WriteFile(wrapped, []byte(content), 0o644))

		out, _, err := run(t, "rank", "-i", wrapped, "-f", "json")
		require.NoError(t, err)
		assert.Equal(t, []string{"v3", "v1", "v2"}, rankedIDs(decodeRanking(t, out)))
	})

	t.Run("csv export writes the WIB wall clock", func(t *testing.T) {
		path := filepath.Join(dir, "ranking.csv")
		out, _, err := run(t, "rank", "-i", input, "-f", "csv", "-o", path)
		require.NoError(t, err)
		assert.Contains(t, out, "wrote 3 rows")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "1", records[1][0])
		assert.Equal(t, "v3", records[1][1])
		assert.Equal(t, "2024-03-06 19:10:00", records[1][3])
	})

	t.Run("xlsx export is a zip workbook", func(t *testing.T) {
		path := filepath.Join(dir, "ranking.xlsx")
		_, _, err := run(t, "rank", "-i", input, "-f", "xlsx", "-o", path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("PK")))
	})

	errorCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "xlsx needs an output file", args: []string{"rank", "-i", input, "-f", "xlsx"}, wantErr: "--out"},
		{name: "unknown format", args: []string{"rank", "-i", input, "-f", "pdf"}, wantErr: "pdf"},
		{name: "missing input file", args: []string{"rank", "-i", filepath.Join(dir, "nope.json")}, wantErr: "read videos"},
		{name: "input flag is required", args: []string{"rank"}, wantErr: "input"},
		{name: "malformed weights", args: []string{"rank", "-i", input, "-w", "views"}, wantErr: "name=value"},
		{
			name:    "non finite weight",
			args:    []string{"rank", "-i", input, "-f", "json", "-w", "views=NaN,likes=0.25,comments=0.2,engagement_rate=0.25"},
			wantErr: "must be finite",
		},
		{
			name:    "video without an id",
			args:    []string{"rank", "-i", writeVideos(t, t.TempDir(), `[{"video_id":"v1","view_count":10},{"video_id":"","view_count":5000}]`)},
			wantErr: "index 1 has no id",
		},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRankCommand_StrictWeights(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("STRICT_WEIGHTS", "true")
	input := writeVideos(t, dir, videosJSON)

	_, _, err := run(t, "rank", "-i", input, "-w", "views=0.4,likes=0.3,comments=0.2,engagement_rate=0.2")
	assert.Error(t, err)

	_, stderr, err := run(t, "rank", "-i", input)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestRankCommand_Profile(t *testing.T) {
	dir := setupEnv(t)
	input := writeVideos(t, dir, `[
		{"video_id":"popular","published_at":"2024-03-04T12:00:00Z","view_count":9000,"like_count":10,"comment_count":1},
		{"video_id":"engaging","published_at":"2024-03-05T12:00:00Z","view_count":1000,"like_count":400,"comment_count":100}
	]`)

	out, _, err := run(t, "rank", "-i", input, "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, "engaging", rankedIDs(decodeRanking(t, out))[0])

	_, _, err = run(t, "weights", "save", "reach", "--video", "views=1,likes=0,comments=0,engagement_rate=0")
	require.NoError(t, err)

	out, _, err = run(t, "rank", "-i", input, "-f", "json", "-p", "reach")
	require.NoError(t, err)
	assert.Equal(t, "popular", rankedIDs(decodeRanking(t, out))[0])
}

func TestTimeSlotsCommand(t *testing.T) {
	dir := setupEnv(t)
	input := writeVideos(t, dir, videosJSON)

	t.Run("slots are keyed by WIB day and hour", func(t *testing.T) {
		out, stderr, err := run(t, "timeslots", "-i", input, "-f", "json")
		require.NoError(t, err, stderr)

		r := decodeRanking(t, out)
		assert.Equal(t, analysis.PipelineTimeSlot, r.Pipeline)
		assert.Equal(t, []string{"Rabu 19:00", "Senin 19:00", "Minggu 20:00"}, rankedIDs(r))
	})

	t.Run("english day names", func(t *testing.T) {
		t.Setenv("DAY_LOCALE", "en")
		out, _, err := run(t, "slots", "-i", input, "-f", "json")
		require.NoError(t, err)
		assert.Equal(t, "Wednesday 19:00", rankedIDs(decodeRanking(t, out))[0])
	})

	t.Run("table output names the best upload time", func(t *testing.T) {
		out, _, err := run(t, "timeslots", "-i", input)
		require.NoError(t, err)
		assert.Contains(t, out, "best day: Rabu")
		assert.Contains(t, out, "best hour: 19:00")
	})

	t.Run("video weights are rejected for slots", func(t *testing.T) {
		_, _, err := run(t, "timeslots", "-i", input, "-w", "views=0.3,likes=0.25,comments=0.2,engagement_rate=0.25")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engagement_rate")
	})

	t.Run("no videos yields an empty ranking", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
		out, _, err := run(t, "timeslots", "-i", empty, "-f", "json")
		require.NoError(t, err)
		assert.Empty(t, decodeRanking(t, out).Alternatives)
	})
}
