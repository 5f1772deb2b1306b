// Package middleware holds gin middleware shared by every route.
package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	Enabled      bool     `yaml:"enabled"`
	MinSize      int      `yaml:"min_size"`      // bytes; smaller bodies are sent as is
	Level        int      `yaml:"level"`         // gzip level 1-9
	ContentTypes []string `yaml:"content_types"` // prefixes of compressible types
}

// DefaultCompressionConfig returns the default compression configuration.
// Spreadsheets are already zip containers and are left out.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Enabled: true,
		MinSize: 1024,
		Level:   6,
		ContentTypes: []string{
			"application/json",
			"text/csv",
			"text/plain",
		},
	}
}

// Compression gzips buffered responses for clients that accept it
type Compression struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompression creates a new compression middleware
func NewCompression(config CompressionConfig) *Compression {
	if config.Level < gzip.BestSpeed || config.Level > gzip.BestCompression {
		config.Level = gzip.DefaultCompression
	}
	cm := &Compression{config: config, stats: NewCompressionStats()}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, config.Level)
		return gz
	}
	return cm
}

// Handler returns the gin middleware
func (cm *Compression) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.config.Enabled || c.Request.Method == http.MethodHead || !acceptsGzip(c.Request) {
			c.Next()
			return
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		c.Next()
		c.Writer = bw.ResponseWriter

		cm.flush(bw)
	}
}

func (cm *Compression) flush(bw *bufferedWriter) {
	w := bw.ResponseWriter
	body := bw.buf.Bytes()
	size := int64(len(body))

	// Headers already on the wire cannot gain Content-Encoding
	if w.Written() || len(body) < cm.config.MinSize ||
		w.Header().Get("Content-Encoding") != "" ||
		!cm.shouldCompress(w.Header().Get("Content-Type")) {
		cm.stats.RecordRequest(size, size, false)
		if len(body) > 0 {
			if _, err := w.Write(body); err != nil {
				slog.Debug("Failed to write response", "error", err)
			}
		}
		return
	}

	gz := cm.pool.Get().(*gzip.Writer)
	defer cm.pool.Put(gz)

	var out bytes.Buffer
	gz.Reset(&out)
	if _, err := gz.Write(body); err != nil {
		slog.Warn("Gzip failed, sending uncompressed", "error", err)
		cm.stats.RecordRequest(size, size, false)
		_, _ = w.Write(body)
		return
	}
	if err := gz.Close(); err != nil {
		slog.Warn("Gzip failed, sending uncompressed", "error", err)
		cm.stats.RecordRequest(size, size, false)
		_, _ = w.Write(body)
		return
	}

	h := w.Header()
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	cm.stats.RecordRequest(size, int64(out.Len()), true)
	if _, err := w.Write(out.Bytes()); err != nil {
		slog.Debug("Failed to write response", "error", err)
	}
}

// acceptsGzip checks if the client accepts gzip compression
func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.TrimSpace(name) != "gzip" {
			continue
		}
		return strings.ReplaceAll(params, " ", "") != "q=0"
	}
	return false
}

// shouldCompress checks if the content type should be compressed
func (cm *Compression) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

// GetStats returns compression statistics
func (cm *Compression) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}

// bufferedWriter holds the body until the handler chain returns
type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Written() bool {
	return w.buf.Len() > 0 || w.ResponseWriter.Written()
}

func (w *bufferedWriter) Size() int {
	if w.buf.Len() > 0 {
		return w.buf.Len()
	}
	return w.ResponseWriter.Size()
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, sentSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize
	if compressed {
		cs.CompressedRequests++
	}
	cs.CompressedBytes += sentSize
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	ratio := float64(1)
	if cs.TotalBytes > 0 {
		ratio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"sent_bytes":          cs.CompressedBytes,
		"compression_ratio":   ratio,
		"compression_savings": 1.0 - ratio,
	}
}
