package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelID = "UCabcdefghijklmnopqrstuv"

func newDataAPIStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		switch r.URL.Path {
		case "/channels":
			if r.URL.Query().Get("id") != channelID {
				body = `{"items":[]}`
				break
			}
			body = `{"items":[{"id":"` + channelID + `","snippet":{"title":"Main Gaming Indonesia"},
				"contentDetails":{"relatedPlaylists":{"uploads":"UUmain"}},
				"statistics":{"subscriberCount":"54000","viewCount":"1200000","videoCount":"120"}}]}`
		case "/playlistItems":
			body = `{"items":[{"contentDetails":{"videoId":"v1"}},{"contentDetails":{"videoId":"v3"}}]}`
		case "/videos":
			body = `{"items":[
				{"id":"v1","snippet":{"title":"Main game santai","publishedAt":"2024-03-04T12:00:00Z"},
				 "statistics":{"viewCount":"1000","likeCount":"100","commentCount":"10"}},
				{"id":"v3","snippet":{"title":"Main game horor","publishedAt":"2024-03-06T12:10:00Z"},
				 "statistics":{"viewCount":"2000","likeCount":"300","commentCount":"30"}}]}`
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCommand(t *testing.T) {
	dir := setupEnv(t)
	stub := newDataAPIStub(t)
	t.Setenv("YOUTUBE_BASE_URL", stub.URL)
	t.Setenv("YOUTUBE_API_KEY", "test-key")

	out := filepath.Join(dir, "videos.json")

	t.Run("writes channel and videos", func(t *testing.T) {
		stdout, stderr, err := run(t, "fetch", "--channel", channelID, "--out", out)
		require.NoError(t, err, stderr)
		assert.Contains(t, stdout, "wrote 2 videos")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var file videoFile
		require.NoError(t, json.Unmarshal(data, &file))
		require.NotNil(t, file.Channel)
		assert.Equal(t, "Main Gaming Indonesia", file.Channel.Title)
		assert.Len(t, file.Videos, 2)
		assert.False(t, file.FetchedAt.IsZero())
	})

	t.Run("fetched file feeds rank", func(t *testing.T) {
		stdout, _, err := run(t, "rank", "-i", out, "-f", "json")
		require.NoError(t, err)
		assert.Equal(t, []string{"v3", "v1"}, rankedIDs(decodeRanking(t, stdout)))
	})

	t.Run("stdout when no file is given", func(t *testing.T) {
		stdout, _, err := run(t, "fetch", "-c", channelID)
		require.NoError(t, err)
		var file videoFile
		require.NoError(t, json.Unmarshal([]byte(stdout), &file))
		assert.Len(t, file.Videos, 2)
	})

	errorCases := []struct {
		name string
		args []string
	}{
		{name: "malformed channel id", args: []string{"fetch", "--channel", "abc"}},
		{name: "unknown channel", args: []string{"fetch", "--channel", "UCzzzzzzzzzzzzzzzzzzzzzz"}},
		{name: "channel flag is required", args: []string{"fetch"}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestFetchCommand_MissingKey(t *testing.T) {
	setupEnv(t)

	_, _, err := run(t, "fetch", "--channel", channelID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YOUTUBE_API_KEY")
}
