package repositories

import (
	"context"
	"fmt"
	"time"

	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const submissionColumns = `s.id, s.contest_id, s.category_id, s.participation_id, s.owner_id,
		s.title, s.description, s.status, s.submitted_at, s.metadata, s.livestock_id,
		s.created_at, s.updated_at`

// CreateSubmission inserts a new submission.
func (r *Repository) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	op := "Repository.CreateSubmission"
	meta, err := domain.EncodeMetadata(s.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO submissions (id, contest_id, category_id, participation_id,
		owner_id, title, description, status, submitted_at, metadata, livestock_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`
	err = r.q.QueryRowxContext(ctx, query,
		s.ID, s.ContestID, s.CategoryID, s.ParticipationID, s.OwnerID,
		s.Title, s.Description, string(s.Status), s.SubmittedAt, meta, s.LivestockID).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubmissionByID returns a submission. The metadata is decoded with the
// shape of the owning contest's type.
func (r *Repository) GetSubmissionByID(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error) {
	return r.getSubmission(ctx, "Repository.GetSubmissionByID", submissionID, "")
}

// GetSubmissionForUpdate is GetSubmissionByID with a row lock held until the
// surrounding transaction ends.
func (r *Repository) GetSubmissionForUpdate(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error) {
	return r.getSubmission(ctx, "Repository.GetSubmissionForUpdate", submissionID, " FOR UPDATE OF s")
}

type submissionJoinRow struct {
	repoModels.SubmissionRow
	ContestType string `db:"contest_type"`
}

func (r *Repository) getSubmission(ctx context.Context, op string, submissionID uuid.UUID, lock string) (*domain.Submission, error) {
	var row submissionJoinRow
	query := `SELECT ` + submissionColumns + `, c.type AS contest_type
		FROM submissions s
		JOIN contests c ON c.id = s.contest_id
		WHERE s.id = $1` + lock
	if err := sqlx.GetContext(ctx, r.q, &row, query, submissionID); err != nil {
		return nil, wrap(op, "submission", err)
	}
	s, err := submissionFromRow(row.SubmissionRow, domain.ContestType(row.ContestType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

// GetSubmissionsByContestID lists submissions of a contest, optionally only
// those in one status, ordered by creation time.
func (r *Repository) GetSubmissionsByContestID(ctx context.Context, contestID uuid.UUID, status *domain.SubmissionStatus) ([]domain.Submission, error) {
	op := "Repository.GetSubmissionsByContestID"
	defer metrics.RecordDBOperation("select", "submissions", time.Now())

	var rows []submissionJoinRow
	query := `SELECT ` + submissionColumns + `, c.type AS contest_type
		FROM submissions s
		JOIN contests c ON c.id = s.contest_id
		WHERE s.contest_id = $1 AND ($2::text IS NULL OR s.status = $2::text)
		ORDER BY s.created_at, s.id`
	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, contestID, statusArg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := submissionFromRow(row.SubmissionRow, domain.ContestType(row.ContestType))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CountSubmissions counts the entries a participation has in one category.
func (r *Repository) CountSubmissions(ctx context.Context, participationID, categoryID uuid.UUID) (int, error) {
	op := "Repository.CountSubmissions"
	var n int
	query := `SELECT COUNT(*) FROM submissions
		WHERE participation_id = $1 AND category_id = $2`
	if err := sqlx.GetContext(ctx, r.q, &n, query, participationID, categoryID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// UpdateSubmission overwrites the editable fields of a submission.
func (r *Repository) UpdateSubmission(ctx context.Context, s *domain.Submission) error {
	op := "Repository.UpdateSubmission"
	meta, err := domain.EncodeMetadata(s.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE submissions SET category_id = $1, title = $2, description = $3,
		metadata = $4, livestock_id = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at`
	err = r.q.QueryRowxContext(ctx, query,
		s.CategoryID, s.Title, s.Description, meta, s.LivestockID, s.ID).
		Scan(&s.UpdatedAt)
	if err != nil {
		return wrap(op, "submission", err)
	}
	return nil
}

// UpdateSubmissionStatus sets the status. A non-nil submittedAt replaces the stored one.
func (r *Repository) UpdateSubmissionStatus(ctx context.Context, submissionID uuid.UUID, status domain.SubmissionStatus, submittedAt *time.Time) error {
	op := "Repository.UpdateSubmissionStatus"
	query := `UPDATE submissions SET status = $1,
		submitted_at = COALESCE($2, submitted_at),
		updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`
	res, err := r.q.ExecContext(ctx, query, string(status), submittedAt, submissionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, domain.NotFound("submission"))
	}
	return nil
}

// DeleteSubmission removes the submission row. Dependent rows must be removed first.
func (r *Repository) DeleteSubmission(ctx context.Context, submissionID uuid.UUID) error {
	op := "Repository.DeleteSubmission"
	res, err := r.q.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, submissionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, domain.NotFound("submission"))
	}
	return nil
}

func submissionFromRow(row repoModels.SubmissionRow, ct domain.ContestType) (domain.Submission, error) {
	meta, err := domain.DecodeMetadata(ct, row.Metadata)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("submission %s: %w", row.ID, err)
	}
	return domain.Submission{
		ID:              row.ID,
		ContestID:       row.ContestID,
		CategoryID:      row.CategoryID,
		ParticipationID: row.ParticipationID,
		OwnerID:         row.OwnerID,
		Title:           row.Title,
		Description:     row.Description,
		Status:          domain.SubmissionStatus(row.Status),
		SubmittedAt:     row.SubmittedAt,
		Metadata:        meta,
		LivestockID:     row.LivestockID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}
