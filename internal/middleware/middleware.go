package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/franzego/uninotify/internal/config"
	"github.com/franzego/uninotify/internal/models"
	"github.com/franzego/uninotify/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const CorrelationHeader = "X-Correlation-ID"

// needed to ensure we have the id for tracking every request for its lifetime
func CorrelationID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		correlationId := ctx.GetHeader(CorrelationHeader)
		if correlationId == "" {
			correlationId = uuid.New().String()
		}
		ctx.Set(CorrelationHeader, correlationId)
		ctx.Header(CorrelationHeader, correlationId)
		ctx.Request = ctx.Request.WithContext(services.WithCorrelationID(ctx.Request.Context(), correlationId))
		ctx.Next()
	}
}

// RequestLogger writes one access log line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("correlation_id", c.GetString(CorrelationHeader)),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// CORS only admits the configured frontend origins. Credentials are allowed,
// so headers are listed explicitly instead of "*".
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", CorrelationHeader},
		ExposeHeaders:    []string{CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authKey := c.GetHeader("Authorization")
		if authKey == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required", "Unauthorized")
			return
		}
		parts := strings.SplitN(authKey, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "Invalid Api Key", "Unauthorized")
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "Invalid Token", "Unauthorized")
			return
		}
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set("user_id", claims["user_id"])
		}
		c.Next()
	}
}

// limiterIdle is how long a client may stay silent before its bucket is
// dropped.
const limiterIdle = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client key and sweeps buckets
// that have been idle for longer than idle.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

func newClientLimiter(rps float64, burst int, idle time.Duration) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*client),
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
	}
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idle {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= l.idle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit keeps one token bucket per client IP. A non-positive rps turns
// limiting off.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newClientLimiter(cfg.RPS, cfg.Burst, limiterIdle)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			abort(c, http.StatusTooManyRequests, "Rate limit exceeded", "Too Many Requests")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, errText, message string) {
	c.AbortWithStatusJSON(status, models.APIResponse{
		Success: false,
		Error:   errText,
		Detail:  errText,
		Message: message,
	})
}
