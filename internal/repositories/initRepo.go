package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ContestScoreAPI/internal/config"
	"ContestScoreAPI/internal/migrator"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository is the Postgres Store.
type Repository struct {
	DB     *sqlx.DB
	q      sqlx.ExtContext
	tx     *sqlx.Tx
	log    *slog.Logger
	schema string
}

var _ Store = (*Repository)(nil)

// New creates a new repository, connects to the database, and runs migrations.
func New(logger *slog.Logger, cfg *config.Config) *Repository {
	op := "repositories.New()"
	log := logger.With(
		slog.String("op", op))

	username := cfg.DBConfig.User
	password := cfg.DBConfig.Password
	dbName := cfg.DBConfig.Name
	dbHost := cfg.DBConfig.Host
	dbPort := cfg.DBConfig.Port
	schema := cfg.DBConfig.Schema

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=disable password=%s search_path=%s",
		dbHost, dbPort, username, dbName, password, schema)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Error("error connecting to database", sl.Err(err))
		panic("error connecting to database")
	}

	if err := conn.Ping(); err != nil {
		log.Error("error pinging database", sl.Err(err))
		panic("error pinging database")
	}

	log.Debug("sqlx connected to database")

	m := migrator.NewMigrator(conn, log, schema)
	if err := m.Run(context.Background()); err != nil {
		log.Error("error running database migrations", sl.Err(err))
		panic("error running database migrations")
	}

	return &Repository{
		DB:     conn,
		q:      conn,
		log:    logger.With(slog.String("component", "repository")),
		schema: schema,
	}
}

// InTx runs fn in a read-write transaction.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	return r.runTx(ctx, nil, fn)
}

// InSnapshot runs fn in a read-only repeatable-read transaction.
func (r *Repository) InSnapshot(ctx context.Context, fn func(Store) error) error {
	return r.runTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (r *Repository) runTx(ctx context.Context, opts *sql.TxOptions, fn func(Store) error) (err error) {
	op := "Repository.runTx"

	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.DB.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("rollback failed", slog.String("op", op), sl.Err(rbErr))
			}
		}
	}()

	txRepo := &Repository{DB: r.DB, q: tx, tx: tx, log: r.log, schema: r.schema}
	if err = fn(txRepo); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// Shutdown closes the database connection.
func (r *Repository) Shutdown(ctx context.Context) error {
	op := "Repository.Shutdown"
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	default:
	}
	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("error exit %s: %w", op, err)
	}
	return nil
}

// wrap annotates err with op and turns sql.ErrNoRows into a not-found domain error.
func wrap(op, entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.NotFound(entity))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
