package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/config"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/monitoring"
)

const (
	mainChannel  = "UCabcdefghijklmnopqrstuv"
	rivalChannel = "UC0123456789_-ABCDEFGHIJ"
	ghostChannel = "UCzzzzzzzzzzzzzzzzzzzzzz"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	channelBodies = map[string]string{
		mainChannel: `{"items":[{"id":"` + mainChannel + `","snippet":{"title":"Main Gaming Indonesia","description":"Main game harian"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UUmain"}},
			"statistics":{"subscriberCount":"54000","viewCount":"1200000","videoCount":"120"},
			"topicDetails":{"topicCategories":["https://en.wikipedia.org/wiki/Video_game_culture"]}}]}`,
		rivalChannel: `{"items":[{"id":"` + rivalChannel + `","snippet":{"title":"Rival Games"},
			"contentDetails":{"relatedPlaylists":{"uploads":"UUrival"}},
			"statistics":{"subscriberCount":"250000","viewCount":"9000000","videoCount":"300"}}]}`,
	}

	playlistBodies = map[string]string{
		"UUmain":  `{"items":[{"contentDetails":{"videoId":"v1"}},{"contentDetails":{"videoId":"v2"}},{"contentDetails":{"videoId":"v3"}}]}`,
		"UUrival": `{"items":[{"contentDetails":{"videoId":"r1"}}]}`,
	}

	// v3 dominates every criterion; v1 sits between; v2 has no reactions
	mainVideosBody = `{"items":[
		{"id":"v1","snippet":{"title":"Main game santai","publishedAt":"2024-03-04T12:00:00Z"},
		 "statistics":{"viewCount":"1000","likeCount":"100","commentCount":"10"}},
		{"id":"v2","snippet":{"title":"Live tanpa komentar","publishedAt":"2023-11-05T13:30:00Z"},
		 "statistics":{"viewCount":"500"}},
		{"id":"v3","snippet":{"title":"Main game horor","publishedAt":"2024-03-06T12:10:00Z"},
		 "statistics":{"viewCount":"2000","likeCount":"300","commentCount":"30"}}]}`

	rivalVideosBody = `{"items":[{"id":"r1","snippet":{"title":"Rival upload","publishedAt":"2024-02-01T10:00:00Z"},
		"statistics":{"viewCount":"40000","likeCount":"2000","commentCount":"100"}}]}`

	searchBody = `{"items":[
		{"id":{"channelId":"` + mainChannel + `"},"snippet":{"title":"Main"}},
		{"id":{"channelId":"` + rivalChannel + `"},"snippet":{"title":"Rival Games"}}]}`
)

// youtubeStub serves canned Data API responses keyed by request parameters
type youtubeStub struct {
	*httptest.Server
	hits atomic.Int32
}

func newYouTubeStub(t *testing.T) *youtubeStub {
	t.Helper()
	s := &youtubeStub{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		q := r.URL.Query()
		body := ""
		switch r.URL.Path {
		case "/channels":
			body = channelBodies[q.Get("id")]
			if body == "" {
				body = `{"items":[]}`
			}
		case "/playlistItems":
			body = playlistBodies[q.Get("playlistId")]
		case "/videos":
			if strings.HasPrefix(q.Get("id"), "r") {
				body = rivalVideosBody
			} else {
				body = mainVideosBody
			}
		case "/search":
			body = searchBody
		}
		if body == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.YouTube.APIKey = "test-key"
	cfg.YouTube.BaseURL = baseURL
	cfg.Analysis.DataDir = t.TempDir()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*app, *gin.Engine) {
	t.Helper()
	a := newApp(cfg, monitoring.NewLoggerTo(io.Discard, slog.LevelError))
	t.Cleanup(a.close)
	return a, a.router()
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func alternativeIDs(t *testing.T, ranking interface{}) []string {
	t.Helper()
	alts := ranking.(map[string]interface{})["alternatives"].([]interface{})
	ids := make([]string, len(alts))
	for i, alt := range alts {
		ids[i] = alt.(map[string]interface{})["id"].(string)
	}
	return ids
}

func TestAnalyzeEndpoint(t *testing.T) {
	stub := newYouTubeStub(t)
	a, r := newTestApp(t, testConfig(t, stub.URL))

	req := map[string]interface{}{"channel_id": mainChannel, "competitor_ids": []string{rivalChannel}}
	w := doJSON(r, http.MethodPost, "/api/v1/analyze", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["run_id"])
	assert.Equal(t, mainChannel, body["channel"].(map[string]interface{})["channel_id"])

	t.Run("videos are ranked best first", func(t *testing.T) {
		ranking := body["video_ranking"]
		assert.Equal(t, []string{"v3", "v1", "v2"}, alternativeIDs(t, ranking))

		best := ranking.(map[string]interface{})["alternatives"].([]interface{})[0].(map[string]interface{})
		assert.InDelta(t, 1.0, best["score"], 1e-9)
		assert.EqualValues(t, 1, best["rank"])
		assert.Equal(t, true, ranking.(map[string]interface{})["validation"].(map[string]interface{})["valid"])
	})

	t.Run("time slots use WIB buckets", func(t *testing.T) {
		ids := alternativeIDs(t, body["time_slot_ranking"])
		assert.Len(t, ids, 3)
		assert.Contains(t, ids, "Rabu 19:00", "2024-03-06 12:10 UTC is Wednesday 19:10 WIB")
		assert.Equal(t, "Rabu 19:00", ids[0])
	})

	t.Run("competitors and position are reported", func(t *testing.T) {
		competitors := body["competitors"].([]interface{})
		require.Len(t, competitors, 2)
		assert.Equal(t, "Utama", competitors[0].(map[string]interface{})["status"])
		assert.Equal(t, rivalChannel, competitors[1].(map[string]interface{})["channel_id"])

		position := body["position"].(map[string]interface{})
		assert.EqualValues(t, 2, position["subscriber_rank"])
	})

	t.Run("insights and quota are attached", func(t *testing.T) {
		dash := body["insights"].(map[string]interface{})
		assert.EqualValues(t, 3, dash["overview"].(map[string]interface{})["videos"])
		assert.Equal(t, "v3", dash["best_video"].(map[string]interface{})["id"])

		quota := body["quota"].(map[string]interface{})
		assert.EqualValues(t, 6, quota["used"], "two channels, each one channel, playlist and videos call")
	})

	t.Run("identical request is served from the response cache", func(t *testing.T) {
		before := stub.hits.Load()
		again := doJSON(r, http.MethodPost, "/api/v1/analyze", req)
		require.Equal(t, http.StatusOK, again.Code)
		assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
		assert.Equal(t, before, stub.hits.Load())
	})

	t.Run("metrics record both pipelines", func(t *testing.T) {
		stats := a.metrics.GetAnalysisStats()
		assert.EqualValues(t, 1, stats["video"].(map[string]interface{})["runs"])
		assert.EqualValues(t, 3, stats["time_slot"].(map[string]interface{})["alternatives_scored"])
	})
}

func TestAnalyzeEndpoint_Filters(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", map[string]interface{}{
		"channel_id": mainChannel,
		"year":       2024,
		"min_views":  1500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)

	filtered := body["filtered_videos"].([]interface{})
	require.Len(t, filtered, 1)
	assert.Equal(t, "v3", filtered[0].(map[string]interface{})["id"])
	assert.Len(t, body["video_ranking"].(map[string]interface{})["alternatives"], 3, "the full ranking is kept")
	assert.Empty(t, body["competitors"].([]interface{})[1:])
}

func TestAnalyzeEndpoint_AutoCompetitor(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", map[string]interface{}{
		"channel_id":      mainChannel,
		"auto_competitor": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	competitors := decodeBody(t, w)["competitors"].([]interface{})
	require.Len(t, competitors, 2, "the main channel is excluded from search results")
	assert.Equal(t, rivalChannel, competitors[1].(map[string]interface{})["channel_id"])
}

func TestAnalyzeEndpoint_Weights(t *testing.T) {
	stub := newYouTubeStub(t)

	t.Run("soft validation scores and warns", func(t *testing.T) {
		a, r := newTestApp(t, testConfig(t, stub.URL))
		w := doJSON(r, http.MethodPost, "/api/v1/analyze", map[string]interface{}{
			"channel_id":    mainChannel,
			"video_weights": map[string]float64{"views": 0.5, "likes": 0.3, "comments": 0.2, "engagement_rate": 0.1},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decodeBody(t, w)
		validation := body["video_ranking"].(map[string]interface{})["validation"].(map[string]interface{})
		assert.Equal(t, false, validation["valid"])
		assert.InDelta(t, 1.1, validation["sum"], 1e-9)
		assert.Contains(t, body["warnings"], "video weights sum to 1.10, not 1")
		assert.Equal(t, []string{"v3", "v1", "v2"}, alternativeIDs(t, body["video_ranking"]))
		assert.EqualValues(t, 1, a.metrics.GetStats()["weight_warnings"])
	})

	t.Run("strict validation rejects", func(t *testing.T) {
		cfg := testConfig(t, stub.URL)
		cfg.Analysis.StrictWeights = true
		_, r := newTestApp(t, cfg)

		w := doJSON(r, http.MethodPost, "/api/v1/analyze", map[string]interface{}{
			"channel_id": mainChannel,
			"slot_weights": map[string]float64{"views": 0.5, "likes": 0.3, "comments": 0.3},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("named profile from the data directory", func(t *testing.T) {
		cfg := testConfig(t, stub.URL)
		a, r := newTestApp(t, cfg)
		require.NoError(t, a.analyzer.Profiles().SaveProfile(profileFixture()))

		w := doJSON(r, http.MethodPost, "/api/v1/analyze", map[string]interface{}{
			"channel_id":     mainChannel,
			"weight_profile": "views-only",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		weights := decodeBody(t, w)["video_ranking"].(map[string]interface{})["weights"].(map[string]interface{})
		assert.EqualValues(t, 1, weights["views"])
	})
}

func TestAnalyzeEndpoint_InvalidRequests(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	tests := []struct {
		name        string
		body        interface{}
		contentType string
		status      int
		wantInBody  string
	}{
		{name: "missing channel id", body: map[string]interface{}{}, status: http.StatusBadRequest},
		{name: "malformed channel id", body: map[string]interface{}{"channel_id": "not-a-channel"}, status: http.StatusBadRequest, wantInBody: "channel_id"},
		{name: "malformed competitor id", body: map[string]interface{}{"channel_id": mainChannel, "competitor_ids": []string{"x"}}, status: http.StatusBadRequest, wantInBody: "competitor_ids[0]"},
		{name: "negative min views", body: map[string]interface{}{"channel_id": mainChannel, "min_views": -1}, status: http.StatusBadRequest, wantInBody: "min_views"},
		{name: "malformed JSON", body: `{"channel_id":`, status: http.StatusBadRequest},
		{name: "unsupported content type", body: "channel_id=x", contentType: "text/plain", status: http.StatusUnsupportedMediaType},
		{name: "weights for unknown criteria", body: map[string]interface{}{"channel_id": mainChannel, "video_weights": map[string]float64{"views": 1}}, status: http.StatusUnprocessableEntity, wantInBody: "engagement_rate"},
		{name: "unknown channel", body: map[string]interface{}{"channel_id": ghostChannel}, status: http.StatusNotFound, wantInBody: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tt.contentType != "" {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tt.body.(string)))
				req.Header.Set("Content-Type", tt.contentType)
				w = httptest.NewRecorder()
				r.ServeHTTP(w, req)
			} else {
				w = doJSON(r, http.MethodPost, "/api/v1/analyze", tt.body)
			}

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.wantInBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantInBody)
			}
		})
	}
}

func TestAnalyzeEndpoint_MissingAPIKey(t *testing.T) {
	stub := newYouTubeStub(t)
	cfg := testConfig(t, stub.URL)
	cfg.YouTube.APIKey = ""
	_, r := newTestApp(t, cfg)

	req := map[string]interface{}{"channel_id": mainChannel}
	w := doJSON(r, http.MethodPost, "/api/v1/analyze", req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIGURATION_ERROR")
	assert.Equal(t, int32(0), stub.hits.Load())

	health := decodeBody(t, doJSON(r, http.MethodGet, "/health", nil))
	assert.Equal(t, false, health["youtube_configured"])

	t.Run("key can be supplied at runtime", func(t *testing.T) {
		w := doJSON(r, http.MethodPut, "/api/v1/youtube/key", map[string]string{"api_key": "fresh-key"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doJSON(r, http.MethodPost, "/api/v1/analyze", req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("blank key is rejected", func(t *testing.T) {
		w := doJSON(r, http.MethodPut, "/api/v1/youtube/key", map[string]string{"api_key": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChannelEndpoints(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	t.Run("search", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/search?q=main+game", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, decodeBody(t, w)["channels"], 2)
	})

	t.Run("search without query", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/search", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("search with bad limit", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/search?q=main&limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("channel info with tier", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/"+mainChannel, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, "UUmain", body["channel"].(map[string]interface{})["uploads_playlist"])
		assert.Equal(t, "Menengah (Intermediate)", body["category"].(map[string]interface{})["label"])
	})

	t.Run("invalid channel id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("competitors exclude the channel itself", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/channels/"+mainChannel+"/competitors?limit=3", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		competitors := decodeBody(t, w)["competitors"].([]interface{})
		require.Len(t, competitors, 1)
		assert.Equal(t, rivalChannel, competitors[0].(map[string]interface{})["channel_id"])
	})
}

func TestRankEndpoint(t *testing.T) {
	_, r := newTestApp(t, testConfig(t, "http://127.0.0.1:0"))

	matrix := map[string]interface{}{
		"criteria": []map[string]string{{"name": "views"}, {"name": "likes"}, {"name": "comments"}},
		"alternatives": []map[string]interface{}{
			{"id": "a1", "values": map[string]float64{"views": 1000, "likes": 100, "comments": 10}},
			{"id": "a2", "values": map[string]float64{"views": 500, "likes": 50, "comments": 5}},
			{"id": "a3", "values": map[string]float64{"views": 2000, "likes": 300, "comments": 40}},
		},
		"weights": map[string]float64{"views": 0.5, "likes": 0.3, "comments": 0.2},
	}

	t.Run("scores the three alternative example", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/rank", matrix)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, []string{"a3", "a1", "a2"}, alternativeIDs(t, body))

		alts := body["alternatives"].([]interface{})
		assert.InDelta(t, 1.0, alts[0].(map[string]interface{})["score"], 1e-9)
		assert.InDelta(t, 0.4, alts[1].(map[string]interface{})["score"], 1e-9)
		assert.InDelta(t, 0.2, alts[2].(map[string]interface{})["score"], 1e-9)
		assert.Equal(t, "custom", body["pipeline"])
	})

	t.Run("cost criterion prefers the smallest value", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/rank", map[string]interface{}{
			"criteria": []map[string]string{{"name": "duration", "polarity": "cost"}},
			"alternatives": []map[string]interface{}{
				{"id": "long", "values": map[string]float64{"duration": 600}},
				{"id": "short", "values": map[string]float64{"duration": 60}},
			},
			"weights": map[string]float64{"duration": 1},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"short", "long"}, alternativeIDs(t, decodeBody(t, w)))
	})

	t.Run("empty alternatives give an empty ranking", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/rank", map[string]interface{}{
			"criteria": []map[string]string{{"name": "views"}},
			"weights":  map[string]float64{"views": 1},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Empty(t, decodeBody(t, w)["alternatives"])
	})

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{
			name: "negative value",
			body: map[string]interface{}{
				"criteria":     []map[string]string{{"name": "views"}},
				"alternatives": []map[string]interface{}{{"id": "x", "values": map[string]float64{"views": -1}}},
				"weights":      map[string]float64{"views": 1},
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "missing value",
			body: map[string]interface{}{
				"criteria":     []map[string]string{{"name": "views"}},
				"alternatives": []map[string]interface{}{{"id": "x", "values": map[string]float64{}}},
				"weights":      map[string]float64{"views": 1},
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown polarity",
			body: map[string]interface{}{
				"criteria": []map[string]string{{"name": "views", "polarity": "sideways"}},
				"weights":  map[string]float64{"views": 1},
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "missing weights",
			body:   map[string]interface{}{"criteria": []map[string]string{{"name": "views"}}},
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/v1/rank", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestWeightEndpoints(t *testing.T) {
	a, r := newTestApp(t, testConfig(t, "http://127.0.0.1:0"))

	tests := []struct {
		name      string
		path      string
		weights   map[string]float64
		wantValid bool
		wantMatch interface{}
	}{
		{name: "defaults are valid", path: "/api/v1/weights/validate?pipeline=video",
			weights: map[string]float64{"views": 0.30, "likes": 0.25, "comments": 0.20, "engagement_rate": 0.25}, wantValid: true, wantMatch: true},
		{name: "sum above one", path: "/api/v1/weights/validate",
			weights: map[string]float64{"views": 0.5, "likes": 0.3, "comments": 0.3}, wantValid: false},
		{name: "wrong criteria for pipeline", path: "/api/v1/weights/validate?pipeline=time_slot",
			weights: map[string]float64{"views": 1}, wantValid: true, wantMatch: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, tt.path, map[string]interface{}{"weights": tt.weights})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantValid, body["validation"].(map[string]interface{})["valid"])
			assert.Equal(t, tt.wantMatch, body["criteria_match"])
		})
	}

	t.Run("profile lookup", func(t *testing.T) {
		require.NoError(t, a.analyzer.Profiles().SaveProfile(profileFixture()))

		w := doJSON(r, http.MethodGet, "/api/v1/weights/profiles/views-only", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, "views-only", body["profile"].(map[string]interface{})["name"])
		assert.Equal(t, true, body["video"].(map[string]interface{})["valid"])

		w = doJSON(r, http.MethodGet, "/api/v1/weights/profiles/bad.name", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportEndpoint(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))
	req := map[string]interface{}{"channel_id": mainChannel}

	t.Run("csv video ranking", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/export?format=csv", req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "ranking_"+mainChannel+"_video.csv")

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "rank,video_id,title,published_at"))
		assert.True(t, strings.HasPrefix(lines[1], "1,v3,"))
		assert.Contains(t, lines[1], "2024-03-06 19:10:00", "timestamps are WIB wall clock")
	})

	t.Run("xlsx time slot ranking", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/export?format=xlsx&pipeline=time_slot", req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Disposition"), "_time_slot.xlsx")
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
	})

	t.Run("unknown format", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/v1/export?format=pdf", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/v1/channels/"+mainChannel, nil).Code)

	t.Run("quota", func(t *testing.T) {
		body := decodeBody(t, doJSON(r, http.MethodGet, "/api/v1/quota", nil))
		assert.EqualValues(t, 1, body["used"])
		assert.EqualValues(t, 10000, body["limit"])
		assert.Equal(t, false, body["enforced"])
	})

	t.Run("json metrics", func(t *testing.T) {
		body := decodeBody(t, doJSON(r, http.MethodGet, "/metrics", nil))
		assert.EqualValues(t, 1, body["youtube_quota_units"])
		assert.Contains(t, body, "youtube_pool")
		assert.Contains(t, body, "rate_limit")
	})

	t.Run("prometheus metrics", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/metrics/prometheus", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `tubeometer_youtube_quota_units_total{endpoint="channels"} 1`)
	})

	t.Run("service health", func(t *testing.T) {
		body := decodeBody(t, doJSON(r, http.MethodGet, "/health/services", nil))
		breakers := body["circuit_breakers"].(map[string]interface{})
		assert.Equal(t, "closed", breakers["youtube-api"].(map[string]interface{})["state"])
	})

	t.Run("rate limit status", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/ratelimit/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["redis_enabled"])
	})

	t.Run("cache stats", func(t *testing.T) {
		body := decodeBody(t, doJSON(r, http.MethodGet, "/cache/stats", nil))
		assert.EqualValues(t, 512, body["max_items"])
	})

	t.Run("swagger document", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/swagger/doc.json", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/analyze")
	})

	t.Run("security headers and request id", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/health", nil)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, w.Header().Get(monitoring.RequestIDHeader))
	})
}

func TestResponseCompression(t *testing.T) {
	stub := newYouTubeStub(t)
	_, r := newTestApp(t, testConfig(t, stub.URL))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"channel_id":"`+mainChannel+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(zr).Decode(&body))
	assert.Equal(t, []string{"v3", "v1", "v2"}, alternativeIDs(t, body["video_ranking"]))

	t.Run("metrics count compressed responses", func(t *testing.T) {
		body := decodeBody(t, doJSON(r, http.MethodGet, "/metrics", nil))
		compression := body["compression"].(map[string]interface{})
		assert.EqualValues(t, 1, compression["compressed_requests"])
	})
}

func TestAnalyzeRateLimit(t *testing.T) {
	stub := newYouTubeStub(t)
	cfg := testConfig(t, stub.URL)
	cfg.RateLimit.AnalyzeLimitPerHour = 2
	cfg.Cache.Enabled = false
	_, r := newTestApp(t, cfg)

	req := map[string]interface{}{"channel_id": mainChannel}
	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodPost, "/api/v1/analyze", req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Empty(t, w.Header().Get("X-Cache"), "response cache disabled")
	}

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// the generic engine does not spend quota and is not analyze-limited
	w = doJSON(r, http.MethodPost, "/api/v1/weights/validate", map[string]interface{}{"weights": map[string]float64{"views": 1}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func profileFixture() *analysis.WeightProfile {
	return &analysis.WeightProfile{
		Name: "views-only",
		Video: analysis.WeightSet{
			analysis.CriterionViews:          1,
			analysis.CriterionLikes:          0,
			analysis.CriterionComments:       0,
			analysis.CriterionEngagementRate: 0,
		},
		TimeSlot: analysis.DefaultTimeSlotWeights(),
	}
}
