package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/pkg/response"
)

// RateLimits holds per-minute request budgets for each route class.
// A zero value disables limiting for that class.
type RateLimits struct {
	AuthPerMin     int
	MutationPerMin int
	QueryPerMin    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and route.
type RateLimiter struct {
	limits RateLimits

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(limits RateLimits) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		visitors: make(map[string]*visitor),
	}
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(n) / 60.0)
}

func (rl *RateLimiter) limitFor(method, path string) (rate.Limit, int) {
	switch {
	case strings.HasPrefix(path, "/api/v1/auth"):
		return perMinute(rl.limits.AuthPerMin), 1
	case method == "GET":
		return perMinute(rl.limits.QueryPerMin), max(1, rl.limits.QueryPerMin/60)
	default:
		return perMinute(rl.limits.MutationPerMin), max(1, rl.limits.MutationPerMin/60)
	}
}

func (rl *RateLimiter) getLimiter(method, path, client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := client + ":" + method + ":" + path
	v, exists := rl.visitors[key]
	if !exists {
		limit, burst := rl.limitFor(method, path)
		v = &visitor{limiter: rate.NewLimiter(limit, burst)}
		rl.visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(rl.visitors, key)
		}
	}
}

// RunCleanup evicts idle visitors every minute until stop is closed.
func (rl *RateLimiter) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.Cleanup(3 * time.Minute)
		}
	}
}

// Middleware limits by authenticated identity when present, else by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := auth.GetIdentity(c)
		if client == "" {
			client = c.ClientIP()
		}

		if !rl.getLimiter(c.Request.Method, c.FullPath(), client).Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			return
		}

		c.Next()
	}
}

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the identity and role in the context.
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "bearer") {
			response.Unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := validator.ValidateToken(bearerToken[1])
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			return
		}

		c.Set(auth.IdentityKey, claims.Subject)
		c.Set(auth.RoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin allows only admin tokens through. It must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAdmin(c) {
			response.Forbidden(c, "Admin role required")
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with a request id echoed in X-Request-ID.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		start := time.Now()

		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("identity", auth.GetIdentity(c)).
			Dur("latency", time.Since(start)).
			Strs("errors", c.Errors.Errors()).
			Msg("request")
	}
}
