package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"ContestScoreAPI/internal/api"
	"ContestScoreAPI/internal/auth"
	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/config"
	"ContestScoreAPI/internal/contests"
	"ContestScoreAPI/internal/graceful"
	"ContestScoreAPI/internal/notify"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"
	"ContestScoreAPI/internal/results"
	"ContestScoreAPI/internal/scoring"
	"ContestScoreAPI/internal/submissions"
	"ContestScoreAPI/internal/utils/logger/handlers/slogpretty"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

type store interface {
	repositories.Store
	Shutdown(ctx context.Context) error
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting contest score api",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
		slog.String("db", cfg.DBConfig.Driver),
		slog.String("policy", cfg.JudgingConfig.CompletionPolicy),
	)

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	var repo store
	if cfg.DBConfig.Driver == "memory" {
		repo = repositories.NewInMemory()
	} else {
		repo = repositories.New(log, cfg)
	}

	admins, err := parseAdmins(cfg.AuthConfig.Admins)
	if err != nil {
		log.Error("invalid platform admin id", sl.Err(err))
		os.Exit(1)
	}
	policy, err := scoring.ParsePolicy(cfg.JudgingConfig.CompletionPolicy, cfg.JudgingConfig.Quorum)
	if err != nil {
		log.Error("invalid completion policy", sl.Err(err))
		os.Exit(1)
	}

	authorizer := authz.NewRoleAuthorizer(log, repo, admins)
	resultsCache := cache.New(log, cfg)
	hub := realtime.NewHub(log)

	resultsService := results.New(log, repo, authorizer, resultsCache)
	notifier, err := notify.New(log, cfg, repo, resultsService)
	if err != nil {
		log.Error("telegram notifier disabled", sl.Err(err))
		notifier = notify.Nop{}
	}

	server := api.New(log, cfg, api.Deps{
		Tokens:         auth.NewIssuer(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenTTL),
		Users:          repo,
		Contests:       contests.New(log, repo, authorizer, resultsService, resultsCache, hub, notifier),
		Submissions:    submissions.New(log, repo, authorizer, resultsCache, hub),
		Participations: submissions.NewParticipations(log, repo, authorizer),
		Scoring:        scoring.New(log, repo, authorizer, policy, resultsCache, hub),
		Results:        resultsService,
		Hub:            hub,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		ctx,
		maxSecond,
		map[string]graceful.Operation{
			"HTTP server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"Repository service": func(ctx context.Context) error {
				return repo.Shutdown(ctx)
			},
			"Realtime hub": func(ctx context.Context) error {
				return hub.Shutdown(ctx)
			},
			"Results cache": func(ctx context.Context) error {
				return resultsCache.Shutdown(ctx)
			},
			"Telegram notifier": func(ctx context.Context) error {
				return notifier.Shutdown(ctx)
			},
		},
		log,
	)

	if tg, ok := notifier.(*notify.Telegram); ok {
		go tg.Start()
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serveErr <- err
			cancel()
		}
	}()

	<-waitShutdown

	select {
	case err := <-serveErr:
		log.Error("http server failed", sl.Err(err))
		os.Exit(1)
	default:
	}
}

func parseAdmins(raw []string) ([]uuid.UUID, error) {
	admins := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		admins = append(admins, id)
	}
	return admins, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = setupPrettySlog(slog.LevelInfo)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}
	handler := opts.NewPrettyHandler(os.Stdout)
	return slog.New(handler)
}
