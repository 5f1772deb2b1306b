package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
)

// v3 dominates every criterion; v1 sits between; v2 has no reactions
const videosJSON = `[
	{"video_id":"v1","title":"Main game santai","published_at":"2024-03-04T12:00:00Z","view_count":1000,"like_count":100,"comment_count":10},
	{"video_id":"v2","title":"Live tanpa komentar","published_at":"2023-11-05T13:30:00Z","view_count":500},
	{"video_id":"v3","title":"Main game horor","published_at":"2024-03-06T12:10:00Z","view_count":2000,"like_count":300,"comment_count":30}
]`

// setupEnv isolates configuration from the host environment
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("STRICT_WEIGHTS", "false")
	t.Setenv("DAY_LOCALE", "id")
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("YOUTUBE_BASE_URL", "")
	return dir
}

func writeVideos(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "videos.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes tubectl with args and returns stdout and stderr
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeRanking(t *testing.T, out string) analysis.Ranking {
	t.Helper()
	var r analysis.Ranking
	require.NoError(t, json.Unmarshal([]byte(out), &r), out)
	return r
}

func rankedIDs(r analysis.Ranking) []string {
	ids := make([]string, len(r.Alternatives))
	for i, a := range r.Alternatives {
		ids[i] = a.ID
	}
	return ids
}
