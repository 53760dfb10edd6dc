package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"ContestScoreAPI/internal/auth"
	"ContestScoreAPI/internal/config"
	"ContestScoreAPI/internal/contests"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/results"
	"ContestScoreAPI/internal/scoring"
	"ContestScoreAPI/internal/submissions"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LiveHub is the part of the realtime hub the live feed uses.
type LiveHub interface {
	Register(contestID uuid.UUID, conn realtime.Conn)
	Unregister(contestID uuid.UUID, conn realtime.Conn)
}

// Deps are the services the HTTP API exposes.
type Deps struct {
	Tokens         *auth.Issuer
	Users          UserStore
	Contests       *contests.Service
	Submissions    *submissions.Service
	Participations *submissions.Participations
	Scoring        *scoring.Service
	Results        *results.Service
	Hub            LiveHub
}

type Server struct {
	deps Deps
	srv  *http.Server
	log  *slog.Logger
}

func New(logger *slog.Logger, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		deps: deps,
		log:  logger.With(slog.String("component", "api")),
	}
	s.srv = &http.Server{
		Addr:              net.JoinHostPort(cfg.HttpServer.Address, cfg.HttpServer.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: cfg.HttpServer.Timeout,
	}
	return s
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(metricsMiddleware(), s.authMiddleware())

	c := v1.Group("/contests")
	c.POST("", s.createContest)
	c.GET("/:id", s.getContest)
	c.POST("/:id/status", s.advanceContest)
	c.POST("/:id/cancel", s.cancelContest)
	c.POST("/:id/publish", s.publishResults)
	c.GET("/:id/results", s.contestResults)
	c.GET("/:id/results/export", s.exportResults)
	c.GET("/:id/live", s.liveFeed)
	c.POST("/:id/categories", s.addCategory)
	c.GET("/:id/categories", s.listCategories)
	c.POST("/:id/criteria", s.addCriteria)
	c.GET("/:id/criteria", s.listCriteria)
	c.POST("/:id/members", s.addMember)
	c.POST("/:id/participations", s.register)
	c.POST("/:id/participations/:pid/decision", s.decideParticipation)
	c.POST("/:id/participations/:pid/withdraw", s.withdraw)
	c.POST("/:id/submissions", s.createSubmission)
	c.GET("/:id/submissions", s.listSubmissions)

	sub := v1.Group("/submissions")
	sub.GET("/:sid", s.getSubmission)
	sub.PUT("/:sid", s.updateSubmission)
	sub.DELETE("/:sid", s.deleteSubmission)
	sub.POST("/:sid/submit", s.submitSubmission)
	sub.POST("/:sid/status", s.transitionSubmission)
	sub.POST("/:sid/media", s.addMedia)
	sub.GET("/:sid/history", s.submissionHistory)
	sub.POST("/:sid/scores", s.recordScore)
	sub.GET("/:sid/scores", s.listScores)

	v1.POST("/livestock", s.createLivestock)

	return r
}

// Start serves until Shutdown is called. Any other reason to stop, such as
// a busy port, is returned.
func (s *Server) Start() error {
	op := "api.Start"
	log := s.log.With(slog.String("op", op))

	log.Info("http server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	op := "api.Shutdown"
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("force exit %s: %w", op, err)
	}
	return nil
}
