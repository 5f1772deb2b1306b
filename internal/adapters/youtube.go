package adapters

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/classify"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/resilience"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

const (
	// DefaultBaseURL is the YouTube Data API v3 root
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// ServiceName identifies the API in breaker and degradation reports
	ServiceName = "youtube-api"

	// MaxResults is the largest page the Data API returns
	MaxResults = 50

	placeholderThumbnail = "https://via.placeholder.com/150"
)

var (
	// ErrMissingAPIKey is wrapped by the configuration error returned when no
	// key has been set
	ErrMissingAPIKey = stderrors.New("youtube api key not configured")

	// ErrNotFound is wrapped by the not-found error for unknown channels
	ErrNotFound = stderrors.New("youtube resource not found")
)

// YouTubeConfig configures the Data API client
type YouTubeConfig struct {
	APIKey         string                          `yaml:"api_key"`
	BaseURL        string                          `yaml:"base_url"`
	CacheSize      int                             `yaml:"cache_size"`
	CacheTTL       time.Duration                   `yaml:"cache_ttl"`
	DailyQuota     int                             `yaml:"daily_quota"`
	EnforceQuota   bool                            `yaml:"enforce_quota"`
	Pool           resilience.PoolConfig           `yaml:"pool"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ChannelClassifier labels a channel from its metadata
type ChannelClassifier interface {
	ClassifyChannel(title, description string, topicURLs []string) string
}

// YouTubeOption customises a YouTubeAdapter
type YouTubeOption func(*YouTubeAdapter)

// WithCircuitBreaker shares a breaker, typically one from a registry
func WithCircuitBreaker(cb *resilience.CircuitBreaker) YouTubeOption {
	return func(y *YouTubeAdapter) { y.breaker = cb }
}

// WithRetryManager sets the retry policies used for API calls
func WithRetryManager(rm *resilience.RetryManager) YouTubeOption {
	return func(y *YouTubeAdapter) { y.retries = rm }
}

// WithDegradationManager records call outcomes and refuses calls while the
// API is in emergency state
func WithDegradationManager(dm *resilience.DegradationManager) YouTubeOption {
	return func(y *YouTubeAdapter) { y.health = dm }
}

// WithClassifier replaces the niche classifier
func WithClassifier(c ChannelClassifier) YouTubeOption {
	return func(y *YouTubeAdapter) { y.classifier = c }
}

// WithQuotaObserver is called with the endpoint and units of every charged call
func WithQuotaObserver(fn func(endpoint string, units int)) YouTubeOption {
	return func(y *YouTubeAdapter) { y.quota.observer = fn }
}

// YouTubeAdapter fetches channels and videos from the YouTube Data API
type YouTubeAdapter struct {
	mu         sync.RWMutex
	apiKey     string
	baseURL    string
	breaker    *resilience.CircuitBreaker
	pool       *resilience.ConnectionPool
	retries    *resilience.RetryManager
	health     *resilience.DegradationManager
	cache      *expirable.LRU[string, []byte]
	quota      *QuotaTracker
	classifier ChannelClassifier
}

// NewYouTubeAdapter creates an adapter. An empty API key is allowed; calls
// fail with a configuration error until UpdateKey is called.
func NewYouTubeAdapter(config YouTubeConfig, opts ...YouTubeOption) *YouTubeAdapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 256
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}

	y := &YouTubeAdapter{
		apiKey:     strings.TrimSpace(config.APIKey),
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		cache:      expirable.NewLRU[string, []byte](config.CacheSize, nil, config.CacheTTL),
		quota:      NewQuotaTracker(config.DailyQuota, config.EnforceQuota),
		classifier: classify.NewNicheClassifier(),
	}
	for _, opt := range opts {
		opt(y)
	}

	if y.breaker == nil {
		y.breaker = resilience.NewCircuitBreaker(config.CircuitBreaker)
	}
	if y.retries == nil {
		y.retries = resilience.NewRetryManager()
		y.retries.RegisterPolicy(ServiceName, resilience.StandardRetryPolicy)
	}
	y.pool = resilience.NewConnectionPool(config.Pool, y.breaker)

	return y
}

// UpdateKey swaps the API key used for subsequent calls
func (y *YouTubeAdapter) UpdateKey(key string) {
	y.mu.Lock()
	y.apiKey = strings.TrimSpace(key)
	y.mu.Unlock()
	slog.Info("YouTube API key updated", "configured", y.HasKey())
}

// HasKey reports whether an API key is configured
func (y *YouTubeAdapter) HasKey() bool {
	y.mu.RLock()
	defer y.mu.RUnlock()
	return y.apiKey != ""
}

func (y *YouTubeAdapter) key() string {
	y.mu.RLock()
	defer y.mu.RUnlock()
	return y.apiKey
}

// Quota reports the units charged so far today
func (y *YouTubeAdapter) Quota() QuotaUsage {
	return y.quota.Usage()
}

// Data API wire types. Counts arrive as decimal strings.

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
}

func (t thumbnails) best(fallback string) string {
	for _, th := range []*thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return fallback
}

type searchResponse struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
		} `json:"id"`
		Snippet struct {
			ChannelID   string     `json:"channelId"`
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
		Statistics struct {
			SubscriberCount int64 `json:"subscriberCount,string"`
			ViewCount       int64 `json:"viewCount,string"`
			VideoCount      int64 `json:"videoCount,string"`
		} `json:"statistics"`
		TopicDetails struct {
			TopicCategories []string `json:"topicCategories"`
		} `json:"topicDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			ChannelID   string     `json:"channelId"`
			Title       string     `json:"title"`
			PublishedAt time.Time  `json:"publishedAt"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    int64 `json:"viewCount,string"`
			LikeCount    int64 `json:"likeCount,string"`
			CommentCount int64 `json:"commentCount,string"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// SearchChannels finds channels by name. Costs 100 units.
func (y *YouTubeAdapter) SearchChannels(ctx context.Context, query string, limit int) ([]types.ChannelSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("Search query is required")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "channel")
	params.Set("maxResults", fmt.Sprint(clampLimit(limit, 5)))

	var res searchResponse
	if err := y.get(ctx, "search", params, SearchCost, &res); err != nil {
		return nil, err
	}

	results := make([]types.ChannelSearchResult, 0, len(res.Items))
	for _, item := range res.Items {
		results = append(results, types.ChannelSearchResult{
			ChannelID:   channelIDOf(item.ID.ChannelID, item.Snippet.ChannelID),
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Thumbnail:   item.Snippet.Thumbnails.best(placeholderThumbnail),
		})
	}
	return results, nil
}

// GetChannelInfo loads a channel's snippet, statistics and uploads playlist
// and classifies its niche. Costs 1 unit.
func (y *YouTubeAdapter) GetChannelInfo(ctx context.Context, channelID string) (*types.ChannelInfo, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics,topicDetails")
	params.Set("id", channelID)

	var res channelsResponse
	if err := y.get(ctx, "channels", params, ListCost, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, notFound("channel", channelID)
	}

	item := res.Items[0]
	return &types.ChannelInfo{
		ChannelID:       item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		Thumbnail:       item.Snippet.Thumbnails.best(placeholderThumbnail),
		UploadsPlaylist: item.ContentDetails.RelatedPlaylists.Uploads,
		Niche:           y.classifier.ClassifyChannel(item.Snippet.Title, item.Snippet.Description, item.TopicDetails.TopicCategories),
		Stats: types.ChannelStats{
			Subscribers: item.Statistics.SubscriberCount,
			TotalViews:  item.Statistics.ViewCount,
			TotalVideos: item.Statistics.VideoCount,
		},
	}, nil
}

// SearchCompetitorsByNiche finds popular channels for a niche label,
// excluding the main channel. One extra result is requested so the main
// channel can be dropped without shrinking the list. Costs 100 units.
func (y *YouTubeAdapter) SearchCompetitorsByNiche(ctx context.Context, niche, excludeChannelID string, limit int) ([]types.ChannelSearchResult, error) {
	limit = clampLimit(limit, 5)
	if limit == MaxResults {
		limit--
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", classify.SearchQuery(niche))
	params.Set("type", "channel")
	params.Set("order", "viewCount")
	params.Set("maxResults", fmt.Sprint(limit+1))

	var res searchResponse
	if err := y.get(ctx, "search", params, SearchCost, &res); err != nil {
		return nil, err
	}

	results := make([]types.ChannelSearchResult, 0, limit)
	for _, item := range res.Items {
		id := channelIDOf(item.ID.ChannelID, item.Snippet.ChannelID)
		if id == "" || id == excludeChannelID {
			continue
		}
		results = append(results, types.ChannelSearchResult{
			ChannelID: id,
			Title:     item.Snippet.Title,
			Thumbnail: item.Snippet.Thumbnails.best(""),
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// FetchVideos lists up to limit recent uploads from a playlist and loads
// their statistics. Publish times are returned in WIB. Costs 2 units.
func (y *YouTubeAdapter) FetchVideos(ctx context.Context, uploadsPlaylistID string, limit int) ([]types.Video, error) {
	if uploadsPlaylistID == "" {
		return nil, errors.NewValidationError("Uploads playlist ID is required")
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("playlistId", uploadsPlaylistID)
	params.Set("maxResults", fmt.Sprint(clampLimit(limit, MaxResults)))

	var playlist playlistItemsResponse
	if err := y.get(ctx, "playlistItems", params, ListCost, &playlist); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		if item.ContentDetails.VideoID != "" {
			ids = append(ids, item.ContentDetails.VideoID)
		}
	}
	if len(ids) == 0 {
		return []types.Video{}, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("id", strings.Join(ids, ","))

	var res videosResponse
	if err := y.get(ctx, "videos", params, ListCost, &res); err != nil {
		return nil, err
	}

	videos := make([]types.Video, 0, len(res.Items))
	for _, item := range res.Items {
		videos = append(videos, types.Video{
			VideoID:      item.ID,
			ChannelID:    item.Snippet.ChannelID,
			Title:        item.Snippet.Title,
			PublishedAt:  analysis.LocalTime(item.Snippet.PublishedAt),
			ViewCount:    item.Statistics.ViewCount,
			LikeCount:    item.Statistics.LikeCount,
			CommentCount: item.Statistics.CommentCount,
			Duration:     item.ContentDetails.Duration,
			Thumbnail:    item.Snippet.Thumbnails.best(""),
		})
	}
	return videos, nil
}

// FetchChannelVideos resolves a channel's uploads playlist and fetches its
// recent videos
func (y *YouTubeAdapter) FetchChannelVideos(ctx context.Context, channelID string, limit int) (*types.ChannelInfo, []types.Video, error) {
	info, err := y.GetChannelInfo(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if info.UploadsPlaylist == "" {
		return info, []types.Video{}, nil
	}

	videos, err := y.FetchVideos(ctx, info.UploadsPlaylist, limit)
	if err != nil {
		return nil, nil, err
	}
	for i := range videos {
		if videos[i].ChannelID == "" {
			videos[i].ChannelID = info.ChannelID
		}
	}
	return info, videos, nil
}

// get performs one Data API call. Successful bodies are cached by endpoint
// and parameters; cache hits are not charged against the quota.
func (y *YouTubeAdapter) get(ctx context.Context, endpoint string, params url.Values, cost int, out interface{}) error {
	key := y.key()
	if key == "" {
		return errors.NewConfigurationError("YouTube API key is not configured", ErrMissingAPIKey)
	}
	if y.health != nil && !y.health.IsServiceAvailable(ServiceName) {
		return errors.NewExternalAPIError("YouTube", fmt.Errorf("%s is degraded", ServiceName))
	}

	cacheKey := endpoint + "?" + params.Encode()
	if body, ok := y.cache.Get(cacheKey); ok {
		slog.Debug("YouTube cache hit", "endpoint", endpoint)
		return decode(body, out)
	}

	if err := y.quota.Charge(endpoint, cost); err != nil {
		return err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", key)
	fullURL := fmt.Sprintf("%s/%s?%s", y.baseURL, endpoint, query.Encode())

	resp, err := y.retries.ExecuteHTTP(ctx, ServiceName, func() (*http.Response, error) {
		return y.pool.DoRequest(ctx, http.MethodGet, fullURL, map[string]string{"Accept": "application/json"})
	})
	if err != nil {
		y.recordOutcome(err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewExternalAPIError("YouTube", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		y.recordOutcome(err)
		return errors.NewNetworkError("Failed to read YouTube response", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := y.statusError(resp.StatusCode, body)
		if resp.StatusCode >= http.StatusInternalServerError {
			y.recordOutcome(apiErr)
		} else {
			y.recordOutcome(nil)
		}
		return apiErr
	}

	y.recordOutcome(nil)
	y.cache.Add(cacheKey, body)
	return decode(body, out)
}

func (y *YouTubeAdapter) recordOutcome(err error) {
	if y.health == nil {
		return
	}
	if err != nil {
		y.health.RecordError(ServiceName, err)
		return
	}
	y.health.RecordRequest(ServiceName, true)
}

// statusError maps a non-200 Data API response onto an AppError
func (y *YouTubeAdapter) statusError(status int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	reason := ""
	if len(apiErr.Error.Errors) > 0 {
		reason = apiErr.Error.Errors[0].Reason
	}
	cause := fmt.Errorf("youtube api status %d: %s %s", status, reason, apiErr.Error.Message)

	switch {
	case reason == "quotaExceeded" || reason == "dailyLimitExceeded":
		usage := y.quota.Usage()
		return errors.NewQuotaExceededError(usage.Used, 0, usage.Limit)
	case reason == "keyInvalid" || status == http.StatusUnauthorized:
		return errors.NewConfigurationError("YouTube API key was rejected", cause)
	case status == http.StatusNotFound:
		return notFound("YouTube resource", apiErr.Error.Message)
	case status == http.StatusBadRequest:
		return errors.NewValidationError("YouTube rejected the request", apiErr.Error.Message)
	default:
		return errors.NewExternalAPIError("YouTube", cause)
	}
}

func notFound(resource, id string) error {
	appErr := errors.NewNotFoundError(resource, id)
	appErr.ErrBuilder = appErr.ErrBuilder.WithCause(ErrNotFound)
	return appErr
}

func decode(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewExternalAPIError("YouTube", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func channelIDOf(ids ...string) string {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxResults {
		limit = MaxResults
	}
	return limit
}

// GetPoolStats returns connection pool statistics
func (y *YouTubeAdapter) GetPoolStats() map[string]interface{} {
	stats := y.pool.GetStats()
	stats["cached_responses"] = y.cache.Len()
	return stats
}

// CircuitBreaker exposes the breaker guarding API calls
func (y *YouTubeAdapter) CircuitBreaker() *resilience.CircuitBreaker {
	return y.breaker
}

// PurgeCache drops every cached response
func (y *YouTubeAdapter) PurgeCache() {
	y.cache.Purge()
}

// Close closes the connection pool
func (y *YouTubeAdapter) Close() error {
	return y.pool.Close()
}
