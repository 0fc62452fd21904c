package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/aircheckin/internal/auth"
	"github.com/Domenick1991/aircheckin/internal/cache"
	"github.com/Domenick1991/aircheckin/internal/metrics"
	"github.com/Domenick1991/aircheckin/internal/service/seats"
	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (cache.Decision, error)
}

// RequestLogger logs each request and records its latency.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		attrs := []any{"method", c.Request.Method, "route", route, "status", status, "duration", elapsed}
		if len(c.Errors) > 0 {
			log.ErrorContext(c.Request.Context(), "request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		log.InfoContext(c.Request.Context(), "request", attrs...)
	}
}

// Authenticate requires a valid Bearer token and stores the caller.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "UNAUTHORIZED"})
			return
		}
		id, err := v.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidToken.Error(), Code: "UNAUTHORIZED"})
			return
		}
		c.Set(callerKey, seats.Caller{UserID: id.UserID, Email: id.Email})
		c.Next()
	}
}

func callerFrom(c *gin.Context) seats.Caller {
	v, _ := c.Get(callerKey)
	caller, _ := v.(seats.Caller)
	return caller
}

// RateLimit throttles by client IP. Limiter errors let the request through.
func RateLimit(l Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			log.WarnContext(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if !d.Allowed {
			secs := int(d.RetryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests", Code: "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
