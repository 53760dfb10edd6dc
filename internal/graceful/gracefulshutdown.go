package graceful

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ContestScoreAPI/internal/utils/logger/sl"
)

// Operation is one named clean up step run on shutdown.
type Operation func(ctx context.Context) error

// GracefulShutdown waits for SIGINT, SIGTERM, SIGHUP or for ctx to be done,
// then runs every operation in parallel under a shared deadline. The
// returned channel is closed once all operations have returned.
func GracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]Operation, logger *slog.Logger) <-chan struct{} {
	op := "graceful.GracefulShutdown"
	log := logger.With(slog.String("op", op))

	wait := make(chan struct{})
	go func() {
		defer close(wait)

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(signals)

		select {
		case sig := <-signals:
			log.Info("shutting down", slog.String("signal", sig.String()))
		case <-ctx.Done():
			log.Info("shutting down", slog.String("reason", "context done"))
		}

		deadline, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		var wg sync.WaitGroup
		for name, fn := range ops {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := fn(deadline); err != nil {
					log.Error("clean up failed", slog.String("process", name), sl.Err(err))
					return
				}
				log.Info("stopped", slog.String("process", name))
			}()
		}
		wg.Wait()

		log.Info("graceful shutdown completed")
	}()

	return wait
}
