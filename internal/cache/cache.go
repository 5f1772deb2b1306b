package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config controls the response cache
type Config struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	MaxItems int           `yaml:"max_items"`
}

// DefaultConfig caches up to 512 responses for 15 minutes
func DefaultConfig() Config {
	return Config{Enabled: true, TTL: 15 * time.Minute, MaxItems: 512}
}

// Metrics receives hit and miss counts
type Metrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// Entry is one cached response
type Entry struct {
	ContentType string
	Data        []byte
	StoredAt    time.Time
}

// Cache is a bounded, TTL-expiring store of rendered responses
type Cache struct {
	items *expirable.LRU[string, Entry]
	ttl   time.Duration
	max   int
}

// NewCache creates a cache; zero values in config fall back to defaults
func NewCache(config Config) *Cache {
	defaults := DefaultConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.MaxItems <= 0 {
		config.MaxItems = defaults.MaxItems
	}
	return &Cache{
		items: expirable.NewLRU[string, Entry](config.MaxItems, nil, config.TTL),
		ttl:   config.TTL,
		max:   config.MaxItems,
	}
}

// Key hashes the parts identifying a request
func Key(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		_, _ = io.WriteString(h, p)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves an entry
func (c *Cache) Get(key string) (Entry, bool) {
	return c.items.Get(key)
}

// Set stores an entry
func (c *Cache) Set(key string, entry Entry) {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	c.items.Add(key, entry)
}

// Delete removes an entry
func (c *Cache) Delete(key string) {
	c.items.Remove(key)
}

// Clear removes all entries, for example after the API key changes
func (c *Cache) Clear() {
	c.items.Purge()
}

// Size returns the number of live entries
func (c *Cache) Size() int {
	return c.items.Len()
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_items": c.items.Len(),
		"max_items":    c.max,
		"ttl_seconds":  c.ttl.Seconds(),
	}
}

// Middleware caches successful responses of the wrapped route, keyed by
// method, path, query and body. Attach it to individual routes.
func (c *Cache) Middleware(metrics Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var body []byte
		if ctx.Request.Body != nil {
			var err error
			body, err = io.ReadAll(ctx.Request.Body)
			if err != nil {
				ctx.Next()
				return
			}
			ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		key := Key(ctx.Request.Method, ctx.Request.URL.Path, ctx.Request.URL.RawQuery, string(body))

		if entry, found := c.Get(key); found {
			slog.Debug("Cache hit", "key", key[:8]+"...")
			if metrics != nil {
				metrics.IncrementCacheHit()
			}
			ctx.Header("X-Cache", "HIT")
			ctx.Set("cache_hit", true)
			ctx.Data(http.StatusOK, entry.ContentType, entry.Data)
			ctx.Abort()
			return
		}

		if metrics != nil {
			metrics.IncrementCacheMiss()
		}
		ctx.Header("X-Cache", "MISS")

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if wrapper.Status() == http.StatusOK && wrapper.body.Len() > 0 {
			c.Set(key, Entry{
				ContentType: wrapper.Header().Get("Content-Type"),
				Data:        bytes.Clone(wrapper.body.Bytes()),
			})
			slog.Debug("Response cached", "key", key[:8]+"...")
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
