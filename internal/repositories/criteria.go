package repositories

import (
	"context"
	"fmt"

	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateCriteria inserts a judging criterion.
func (r *Repository) CreateCriteria(ctx context.Context, criteria *domain.Criteria) error {
	op := "Repository.CreateCriteria"
	contestID, categoryID := criteria.Scope.Columns()
	query := `INSERT INTO criteria (id, contest_id, category_id, name, description,
		weight, max_score, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := r.q.QueryRowxContext(ctx, query,
		criteria.ID, contestID, categoryID, criteria.Name, criteria.Description,
		criteria.Weight, criteria.MaxScore, criteria.DisplayOrder).
		Scan(&criteria.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetCriteriaByID returns a criterion by ID.
func (r *Repository) GetCriteriaByID(ctx context.Context, criteriaID uuid.UUID) (*domain.Criteria, error) {
	op := "Repository.GetCriteriaByID"
	var row repoModels.CriteriaRow
	query := `SELECT id, contest_id, category_id, name, description,
		weight, max_score, display_order, created_at
		FROM criteria WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, criteriaID); err != nil {
		return nil, wrap(op, "criteria", err)
	}
	c, err := criteriaFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// GetCriteriaByContestID returns the contest-wide criteria of a contest
// together with the criteria of all of its categories.
func (r *Repository) GetCriteriaByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Criteria, error) {
	op := "Repository.GetCriteriaByContestID"
	var rows []repoModels.CriteriaRow
	query := `SELECT cr.id, cr.contest_id, cr.category_id, cr.name, cr.description,
		cr.weight, cr.max_score, cr.display_order, cr.created_at
		FROM criteria cr
		LEFT JOIN categories ca ON ca.id = cr.category_id
		WHERE cr.contest_id = $1 OR ca.contest_id = $1
		ORDER BY cr.display_order, cr.name, cr.id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	criteria := make([]domain.Criteria, 0, len(rows))
	for _, row := range rows {
		c, err := criteriaFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

func criteriaFromRow(row repoModels.CriteriaRow) (domain.Criteria, error) {
	scope, err := domain.ScopeFromColumns(row.ContestID, row.CategoryID)
	if err != nil {
		return domain.Criteria{}, fmt.Errorf("criteria %s: %w", row.ID, err)
	}
	return domain.Criteria{
		ID:           row.ID,
		Scope:        scope,
		Name:         row.Name,
		Description:  row.Description,
		Weight:       row.Weight,
		MaxScore:     row.MaxScore,
		DisplayOrder: row.DisplayOrder,
		CreatedAt:    row.CreatedAt,
	}, nil
}
