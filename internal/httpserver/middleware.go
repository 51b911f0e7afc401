package httpserver

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storefront/internal/logging"
	sessionsvc "storefront/internal/service/session"
	"storefront/internal/store"
)

const (
	sessionHeader = "X-Session-ID"
	sessionKey    = "session"
)

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c, logger).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

const limiterIdle = 10 * time.Minute

// rateLimiter keeps one token bucket per client IP. Buckets untouched for
// longer than idle are dropped; by then they have refilled, so a fresh
// bucket behaves the same.
type rateLimiter struct {
	mu        sync.Mutex
	ips       map[string]*ipLimiter
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type ipLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := limiterIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &rateLimiter{
		ips:       make(map[string]*ipLimiter),
		rate:      rate.Limit(rps),
		burst:     burst,
		idle:      idle,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (rl *rateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastPrune) >= rl.idle {
		rl.pruneLocked(now)
	}
	l, ok := rl.ips[ip]
	if !ok {
		l = &ipLimiter{Limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.ips[ip] = l
	}
	l.lastSeen = now
	return l.Limiter
}

// pruneLocked drops idle buckets. rl.mu must be held.
func (rl *rateLimiter) pruneLocked(now time.Time) {
	for ip, l := range rl.ips {
		if now.Sub(l.lastSeen) >= rl.idle {
			delete(rl.ips, ip)
		}
	}
	rl.lastPrune = now
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// sessionMiddleware resolves X-Session-ID and attaches the open session.
func sessionMiddleware(sessions *sessionsvc.Service, registry *store.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		canonical, err := sessions.Resolve(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, sessionsvc.ErrInvalidSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
				return
			}
			logging.FromContext(c, logger).Error("resolve session failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		c.Set(sessionKey, registry.Get(c.Request.Context(), canonical))
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *store.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(*store.Session)
	return sess
}
