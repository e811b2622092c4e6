package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/franzego/uninotify/internal/queue"
	"github.com/franzego/uninotify/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// BreakerState reports the state of the generation circuit breaker.
type BreakerState interface {
	State() gobreaker.State
}

type HealthHandler struct {
	stores    []store.Store
	redis     *redis.Client // nil unless storage.driver is redis
	publisher queue.Publisher
	breaker   BreakerState
}

func NewHealthHandler(
	stores []store.Store,
	redis *redis.Client,
	publisher queue.Publisher,
	breaker BreakerState,
) *HealthHandler {
	return &HealthHandler{
		stores:    stores,
		redis:     redis,
		publisher: publisher,
		breaker:   breaker,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)

	for _, st := range h.stores {
		if _, err := st.List(ctx); err == nil {
			checks["store_"+st.Name()] = "healthy"
		} else {
			checks["store_"+st.Name()] = "unhealthy"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err == nil {
			checks["redis"] = "healthy"
		} else {
			checks["redis"] = "unhealthy"
		}
	}

	// events are best effort
	if h.publisher.IsConnected() {
		checks["rabbitmq"] = "healthy"
	} else {
		checks["rabbitmq"] = "degraded"
	}

	if h.breaker != nil {
		switch h.breaker.State() {
		case gobreaker.StateClosed:
			checks["generation"] = "healthy"
		default:
			checks["generation"] = "degraded"
		}
	}

	overallStatus := "healthy"
	for _, status := range checks {
		if status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		} else if status == "degraded" {
			overallStatus = "degraded"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"version":   "1.0.0",
	})
}
