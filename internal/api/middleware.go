package api

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ContestScoreAPI/internal/auth"
	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// UserStore keeps the users seen in bearer tokens.
type UserStore interface {
	UpsertUser(ctx context.Context, user *domain.User) error
}

// metricsMiddleware collects HTTP request metrics per route template.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.RequestInProgress.WithLabelValues(method, path).Inc()
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestCounter.WithLabelValues(status, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(status, method, path).Observe(time.Since(start).Seconds())
		metrics.RequestInProgress.WithLabelValues(method, path).Dec()
	}
}

// liveRoute may carry its token as a query parameter: browsers cannot set
// headers on websocket upgrades.
const liveRoute = "/api/v1/contests/:id/live"

// authMiddleware requires a valid bearer token and records the caller.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" && c.FullPath() == liveRoute {
			raw = c.Query("token")
		}
		if raw == "" {
			s.fail(c, domain.Errorf(domain.KindUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}

		id, err := s.deps.Tokens.Parse(raw)
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		user := domain.User{ID: id.UserID, Name: id.Name, Email: id.Email}
		if err := s.deps.Users.UpsertUser(c.Request.Context(), &user); err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func identity(c *gin.Context) auth.Identity {
	id, _ := c.MustGet(identityKey).(auth.Identity)
	return id
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}
