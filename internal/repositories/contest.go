package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const contestColumns = `id, name, description, type, status,
		registration_start, registration_end, contest_start, contest_end,
		results_published, created_at, updated_at`

// CreateContest inserts a new contest.
func (r *Repository) CreateContest(ctx context.Context, contest *domain.Contest) error {
	op := "Repository.CreateContest"
	query := `INSERT INTO contests (id, name, description, type, status,
		registration_start, registration_end, contest_start, contest_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	err := r.q.QueryRowxContext(ctx, query,
		contest.ID, contest.Name, contest.Description,
		string(contest.Type), string(contest.Status),
		contest.RegistrationStart, contest.RegistrationEnd,
		contest.ContestStart, contest.ContestEnd).
		Scan(&contest.CreatedAt, &contest.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetContestByID returns a contest by ID.
func (r *Repository) GetContestByID(ctx context.Context, contestID uuid.UUID) (*domain.Contest, error) {
	op := "Repository.GetContestByID"
	var row repoModels.ContestRow
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, contestID); err != nil {
		return nil, wrap(op, "contest", err)
	}
	c := contestFromRow(row)
	return &c, nil
}

// UpdateContestStatus sets the status of a contest that is still in status from.
func (r *Repository) UpdateContestStatus(ctx context.Context, contestID uuid.UUID, from, to domain.ContestStatus) (bool, error) {
	op := "Repository.UpdateContestStatus"
	query := `UPDATE contests SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, string(to), contestID, string(from))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n == 1, nil
}

// PublishContestResults completes a JUDGING contest and stamps the publication time.
func (r *Repository) PublishContestResults(ctx context.Context, contestID uuid.UUID, publishedAt time.Time) (bool, error) {
	op := "Repository.PublishContestResults"
	defer metrics.RecordDBOperation("update", "contests", time.Now())

	query := `UPDATE contests SET status = $1, results_published = $2,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4`
	res, err := r.q.ExecContext(ctx, query,
		string(domain.ContestCompleted), publishedAt, contestID, string(domain.ContestJudging))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n == 1, nil
}

// UpsertContestMember grants a role; granting an existing role is a no-op.
func (r *Repository) UpsertContestMember(ctx context.Context, member *domain.ContestMember) error {
	op := "Repository.UpsertContestMember"
	query := `INSERT INTO contest_members (contest_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (contest_id, user_id, role) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at`
	err := r.q.QueryRowxContext(ctx, query, member.ContestID, member.UserID, string(member.Role)).
		Scan(&member.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetContestMemberRoles returns every role a user holds on a contest.
func (r *Repository) GetContestMemberRoles(ctx context.Context, contestID, userID uuid.UUID) ([]domain.Role, error) {
	op := "Repository.GetContestMemberRoles"
	var raw []string
	query := `SELECT role FROM contest_members
		WHERE contest_id = $1 AND user_id = $2 ORDER BY role`
	if err := sqlx.SelectContext(ctx, r.q, &raw, query, contestID, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	roles := make([]domain.Role, 0, len(raw))
	for _, s := range raw {
		roles = append(roles, domain.Role(s))
	}
	return roles, nil
}

// GetContestMemberIDsByRole returns the users holding role on a contest.
func (r *Repository) GetContestMemberIDsByRole(ctx context.Context, contestID uuid.UUID, role domain.Role) ([]uuid.UUID, error) {
	op := "Repository.GetContestMemberIDsByRole"
	var ids []uuid.UUID
	query := `SELECT user_id FROM contest_members
		WHERE contest_id = $1 AND role = $2 ORDER BY created_at, user_id`
	if err := sqlx.SelectContext(ctx, r.q, &ids, query, contestID, string(role)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func contestFromRow(row repoModels.ContestRow) domain.Contest {
	return domain.Contest{
		ID:                row.ID,
		Name:              row.Name,
		Description:       row.Description,
		Type:              domain.ContestType(row.Type),
		Status:            domain.ContestStatus(row.Status),
		RegistrationStart: row.RegistrationStart,
		RegistrationEnd:   row.RegistrationEnd,
		ContestStart:      row.ContestStart,
		ContestEnd:        row.ContestEnd,
		ResultsPublished:  row.ResultsPublished,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

const categoryColumns = `id, contest_id, name, description, display_order,
		filters, max_entries_per_participant, created_at`

// CreateCategory inserts a new category.
func (r *Repository) CreateCategory(ctx context.Context, category *domain.Category) error {
	op := "Repository.CreateCategory"
	filters, err := json.Marshal(category.Filters)
	if err != nil {
		return fmt.Errorf("%s: marshal filters: %w", op, err)
	}
	query := `INSERT INTO categories (id, contest_id, name, description,
		display_order, filters, max_entries_per_participant)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err = r.q.QueryRowxContext(ctx, query,
		category.ID, category.ContestID, category.Name, category.Description,
		category.DisplayOrder, filters, category.MaxEntriesPerParticipant).
		Scan(&category.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetCategoryByID returns a category by ID.
func (r *Repository) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*domain.Category, error) {
	op := "Repository.GetCategoryByID"
	var row repoModels.CategoryRow
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, categoryID); err != nil {
		return nil, wrap(op, "category", err)
	}
	c, err := categoryFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// GetCategoriesByContestID returns the categories of a contest in display order.
func (r *Repository) GetCategoriesByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Category, error) {
	op := "Repository.GetCategoriesByContestID"
	var rows []repoModels.CategoryRow
	query := `SELECT ` + categoryColumns + ` FROM categories
		WHERE contest_id = $1 ORDER BY display_order, name`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	categories := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		c, err := categoryFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func categoryFromRow(row repoModels.CategoryRow) (domain.Category, error) {
	c := domain.Category{
		ID:                       row.ID,
		ContestID:                row.ContestID,
		Name:                     row.Name,
		Description:              row.Description,
		DisplayOrder:             row.DisplayOrder,
		MaxEntriesPerParticipant: row.MaxEntriesPerParticipant,
		CreatedAt:                row.CreatedAt,
	}
	if len(row.Filters) > 0 {
		if err := json.Unmarshal(row.Filters, &c.Filters); err != nil {
			return c, fmt.Errorf("decode filters of category %s: %w", row.ID, err)
		}
	}
	return c, nil
}
