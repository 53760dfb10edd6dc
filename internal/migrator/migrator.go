package migrator

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one embedded SQL file; Version is the file name without extension.
type Migration struct {
	Version string
	SQL     string
}

// Migrator applies embedded schema migrations in version order.
type Migrator struct {
	db     *sqlx.DB
	log    *slog.Logger
	schema string
	source fs.FS
}

// NewMigrator creates a migrator over the embedded migration files.
func NewMigrator(db *sqlx.DB, log *slog.Logger, schema string) *Migrator {
	return &Migrator{
		db:     db,
		log:    log.With(slog.String("component", "migrator")),
		schema: schema,
		source: migrationsFS,
	}
}

// Run executes all pending migrations, each in its own transaction.
func (m *Migrator) Run(ctx context.Context) error {
	op := "migrator.Run"
	m.log.Info("starting database migrations", slog.String("schema", m.schema))

	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("%s: failed to create migrations table: %w", op, err)
	}

	migrations, err := Load(m.source)
	if err != nil {
		return fmt.Errorf("%s: failed to load migrations: %w", op, err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to read applied migrations: %w", op, err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, mig := range migrations {
		if done[mig.Version] {
			m.log.Debug("migration already applied", slog.String("version", mig.Version))
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("%s: migration %s: %w", op, mig.Version, err)
		}
	}

	m.log.Info("database migrations completed successfully")
	return nil
}

// Load reads and orders the .sql files under migrations/ in source.
func Load(source fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(source, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(source, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(entry.Name(), ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	schemaQuery := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, m.schema)
	if _, err := m.db.ExecContext(ctx, schemaQuery); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, m.schema)
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) apply(ctx context.Context, mig Migration) (err error) {
	m.log.Info("applying migration", slog.String("version", mig.Version))

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", m.schema)); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	if _, err = tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO %s.schema_migrations (version) VALUES ($1)`, m.schema)
	if _, err = tx.ExecContext(ctx, insertQuery, mig.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.log.Info("migration applied successfully", slog.String("version", mig.Version))
	return nil
}

// Applied returns the versions already recorded, newest first.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	var versions []string
	query := fmt.Sprintf(
		`SELECT version FROM %s.schema_migrations ORDER BY applied_at DESC, version DESC`, m.schema)
	err := m.db.SelectContext(ctx, &versions, query)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return versions, nil
}
