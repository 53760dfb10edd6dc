package repositories

import (
	"context"
	"fmt"

	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UpsertUser inserts a user or refreshes name and email of an existing one.
func (r *Repository) UpsertUser(ctx context.Context, user *domain.User) error {
	op := "Repository.UpsertUser"
	query := `INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = $2, email = $3,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at`
	err := r.q.QueryRowxContext(ctx, query, user.ID, user.Name, user.Email).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByID returns a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	op := "Repository.GetUserByID"
	var row repoModels.UserRow
	query := `SELECT id, name, email, created_at, updated_at
		FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, userID); err != nil {
		return nil, wrap(op, "user", err)
	}
	u := userFromRow(row)
	return &u, nil
}

// GetUsersByIDs returns the users found among userIDs keyed by ID.
func (r *Repository) GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	op := "Repository.GetUsersByIDs"
	users := make(map[uuid.UUID]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}

	var rows []repoModels.UserRow
	query := `SELECT id, name, email, created_at, updated_at
		FROM users WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, uuidArray(userIDs)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range rows {
		users[row.ID] = userFromRow(row)
	}
	return users, nil
}

func userFromRow(row repoModels.UserRow) domain.User {
	return domain.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
