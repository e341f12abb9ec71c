package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/types"
)

const uploadPath = "/upload"

// limiterSet 按 key 维护令牌桶，闲置超过 idle 的条目在访问时顺带回收.
type limiterSet struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	entries map[string]*limiterEntry
	swept   time.Time
}

type limiterEntry struct {
	l    *rate.Limiter
	seen time.Time
}

func newLimiterSet(rps float64, burst int, idle time.Duration) *limiterSet {
	if idle <= 0 {
		idle = configs.DefaultRateLimitIdleTTL
	}

	return &limiterSet{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		entries: map[string]*limiterEntry{},
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > s.idle {
		for k, e := range s.entries {
			if now.Sub(e.seen) > s.idle {
				delete(s.entries, k)
			}
		}

		s.swept = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.seen = now

	return e.l.AllowN(now, 1)
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// POST /upload 在 UploadRPS > 0 时使用独立的更严格限额.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	general := newLimiterSet(cfg.RPS, cfg.Burst, cfg.IdleTTL)

	uploads := general
	if cfg.UploadRPS > 0 {
		uploads = newLimiterSet(cfg.UploadRPS, max(cfg.UploadBurst, 1), cfg.IdleTTL)
	}

	return func(c *gin.Context) {
		set := general
		if c.Request.Method == http.MethodPost && c.Request.URL.Path == uploadPath {
			set = uploads
		}

		if !set.allow(limitKey(c, keyMode), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{Error: "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

func limitKey(c *gin.Context, mode string) string {
	switch {
	case mode == "global" || mode == "":
		return "global"
	case strings.HasPrefix(mode, "header:"):
		if v := c.GetHeader(strings.TrimPrefix(mode, "header:")); v != "" {
			return v
		}
	}

	if ip := clientIP(c); ip != "" {
		return ip
	}

	return "unknown"
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
