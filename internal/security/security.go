package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// AnalyzeRequestKey is the context key holding the validated analyze request
const AnalyzeRequestKey = "analyze_request"

// maxCompetitors bounds how many competitor channels one run may fetch
const maxCompetitors = 10

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxInputLength int           `yaml:"max_input_length" json:"max_input_length"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	EnableCORS     bool          `yaml:"enable_cors" json:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	TrustedProxies []string      `yaml:"trusted_proxies" json:"trusted_proxies"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	EnableHSTS     bool          `yaml:"enable_hsts" json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxInputLength: 200,
		MaxBodyBytes:   1 << 20,
		EnableCORS:     true,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8501"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 30 * time.Second,
	}
}

var (
	// channelIDPattern matches canonical YouTube channel IDs
	channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

	profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	scriptPattern  = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
	eventAttr      = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)

	suspiciousPatterns = []string{
		`<script`, `</script>`, `javascript:`,
		`union select`, `drop table`, `alter table`,
		`--`, `/*`, `*/`, `xp_`,
	}
)

// SecurityMiddleware provides input validation and request hardening
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	defaults := DefaultSecurityConfig()
	if config.MaxInputLength <= 0 {
		config.MaxInputLength = defaults.MaxInputLength
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	return &SecurityMiddleware{config: config}
}

// Config returns the effective configuration
func (sm *SecurityMiddleware) Config() SecurityConfig {
	return sm.config
}

// ValidateInput checks free text such as a channel search query
func (sm *SecurityMiddleware) ValidateInput(input string) error {
	if len(input) > sm.config.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", sm.config.MaxInputLength)
	}

	if strings.Contains(input, "\x00") {
		return fmt.Errorf("input contains invalid characters")
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(inputLower, pattern) {
			return fmt.Errorf("input contains suspicious patterns")
		}
	}
	if eventAttr.MatchString(input) {
		return fmt.Errorf("input contains suspicious patterns")
	}

	return nil
}

// ValidateChannelID checks the UC-prefixed 24 character channel ID format
func ValidateChannelID(id string) error {
	if !channelIDPattern.MatchString(id) {
		return fmt.Errorf("invalid YouTube channel ID %q", id)
	}
	return nil
}

// SanitizeInput strips markup and collapses whitespace
func (sm *SecurityMiddleware) SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = spacePattern.ReplaceAllString(input, " ")

	htmlEntities := map[string]string{
		"&lt;":   "<",
		"&gt;":   ">",
		"&quot;": "\"",
		"&#x27;": "'",
		"&#39;":  "'",
	}
	for entity, char := range htmlEntities {
		input = strings.ReplaceAll(input, entity, char)
	}
	// last, so that "&amp;lt;" decodes to "&lt;" rather than "<"
	input = strings.ReplaceAll(input, "&amp;", "&")

	return strings.TrimSpace(input)
}

func abortValidation(c *gin.Context, appErr *errors.AppError) {
	errors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// ValidateContentType rejects bodies that are not JSON or form data
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(contentType, allowed) {
				found = true
				break
			}
		}

		if !found {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			return
		}
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds the request context, and with it the upstream calls
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// ValidateChannelParam checks the :id path parameter
func (sm *SecurityMiddleware) ValidateChannelParam(c *gin.Context) {
	if err := ValidateChannelID(c.Param("id")); err != nil {
		abortValidation(c, errors.NewValidationError(err.Error()))
		return
	}
	c.Next()
}

// ValidateSearchQuery sanitizes and checks the q query parameter
func (sm *SecurityMiddleware) ValidateSearchQuery(c *gin.Context) {
	q := sm.SanitizeInput(c.Query("q"))
	if q == "" {
		abortValidation(c, errors.NewValidationError("query parameter q is required"))
		return
	}
	if err := sm.ValidateInput(q); err != nil {
		abortValidation(c, errors.NewValidationError(fmt.Sprintf("input validation failed: %v", err)))
		return
	}
	c.Set("sanitized_query", q)
	c.Next()
}

// ValidateAnalyzeRequest binds and checks the analyze body, storing it under
// AnalyzeRequestKey for the handler
func (sm *SecurityMiddleware) ValidateAnalyzeRequest(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, errors.NewValidationError("invalid JSON body", err.Error()))
		return
	}

	problems := map[string]string{}
	if err := ValidateChannelID(req.ChannelID); err != nil {
		problems["channel_id"] = err.Error()
	}
	if len(req.CompetitorIDs) > maxCompetitors {
		problems["competitor_ids"] = fmt.Sprintf("at most %d competitors", maxCompetitors)
	}
	for i, id := range req.CompetitorIDs {
		if err := ValidateChannelID(id); err != nil {
			problems[fmt.Sprintf("competitor_ids[%d]", i)] = err.Error()
		}
	}
	if req.VideoLimit < 0 {
		problems["video_limit"] = "must not be negative"
	}
	if req.MinViews < 0 {
		problems["min_views"] = "must not be negative"
	}
	if req.WeightProfile != "" && !profileNamePattern.MatchString(req.WeightProfile) {
		problems["weight_profile"] = "invalid profile name"
	}
	if len(problems) > 0 {
		abortValidation(c, errors.NewValidationErrorWithMap(problems))
		return
	}

	c.Set(AnalyzeRequestKey, &req)
	c.Next()
}

// CORS builds the gin-contrib/cors handler for the allowed origins
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  len(sm.config.AllowedOrigins) == 0,
		AllowOrigins:     sm.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "X-Request-ID", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
