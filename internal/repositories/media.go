package repositories

import (
	"context"
	"fmt"

	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateMedia attaches a media record to a submission.
func (r *Repository) CreateMedia(ctx context.Context, media *domain.Media) error {
	op := "Repository.CreateMedia"
	query := `INSERT INTO submission_media (id, submission_id, url, caption, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := r.q.QueryRowxContext(ctx, query,
		media.ID, media.SubmissionID, media.URL, media.Caption, media.DisplayOrder).
		Scan(&media.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetMediaBySubmissionIDs groups the media of several submissions by submission.
func (r *Repository) GetMediaBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) (map[uuid.UUID][]domain.Media, error) {
	op := "Repository.GetMediaBySubmissionIDs"
	out := make(map[uuid.UUID][]domain.Media, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return out, nil
	}

	var rows []repoModels.MediaRow
	query := `SELECT id, submission_id, url, caption, display_order, created_at
		FROM submission_media
		WHERE submission_id = ANY($1::uuid[])
		ORDER BY display_order, created_at, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, uuidArray(submissionIDs)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range rows {
		out[row.SubmissionID] = append(out[row.SubmissionID], domain.Media{
			ID:           row.ID,
			SubmissionID: row.SubmissionID,
			URL:          row.URL,
			Caption:      row.Caption,
			DisplayOrder: row.DisplayOrder,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func (r *Repository) DeleteMediaBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	op := "Repository.DeleteMediaBySubmissionID"
	if _, err := r.q.ExecContext(ctx, `DELETE FROM submission_media WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateStatusChange appends an entry to a submission's status history.
func (r *Repository) CreateStatusChange(ctx context.Context, change *domain.StatusChange) error {
	op := "Repository.CreateStatusChange"
	query := `INSERT INTO submission_status_history (id, submission_id, from_status,
		to_status, changed_by, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := r.q.QueryRowxContext(ctx, query,
		change.ID, change.SubmissionID, string(change.From), string(change.To),
		change.ChangedBy, change.Reason).
		Scan(&change.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetStatusChangesBySubmissionID returns the status history, oldest first.
func (r *Repository) GetStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.StatusChange, error) {
	op := "Repository.GetStatusChangesBySubmissionID"
	var rows []repoModels.StatusChangeRow
	query := `SELECT id, submission_id, from_status, to_status, changed_by, reason, created_at
		FROM submission_status_history
		WHERE submission_id = $1
		ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, submissionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]domain.StatusChange, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StatusChange{
			ID:           row.ID,
			SubmissionID: row.SubmissionID,
			From:         domain.SubmissionStatus(row.FromStatus),
			To:           domain.SubmissionStatus(row.ToStatus),
			ChangedBy:    row.ChangedBy,
			Reason:       row.Reason,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

func (r *Repository) DeleteStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	op := "Repository.DeleteStatusChangesBySubmissionID"
	if _, err := r.q.ExecContext(ctx, `DELETE FROM submission_status_history WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateLivestock registers an animal.
func (r *Repository) CreateLivestock(ctx context.Context, l *domain.Livestock) error {
	op := "Repository.CreateLivestock"
	query := `INSERT INTO livestock (id, owner_id, name, breed, sex, birth_date, registration_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.ExecContext(ctx, query,
		l.ID, l.OwnerID, l.Name, l.Breed, l.Sex, l.BirthDate, l.RegistrationNumber)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) GetLivestockByID(ctx context.Context, livestockID uuid.UUID) (*domain.Livestock, error) {
	op := "Repository.GetLivestockByID"
	var row repoModels.LivestockRow
	query := `SELECT id, owner_id, name, breed, sex, birth_date, registration_number
		FROM livestock WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, livestockID); err != nil {
		return nil, wrap(op, "livestock", err)
	}
	l := livestockFromRow(row)
	return &l, nil
}

func (r *Repository) GetLivestockByIDs(ctx context.Context, livestockIDs []uuid.UUID) (map[uuid.UUID]domain.Livestock, error) {
	op := "Repository.GetLivestockByIDs"
	out := make(map[uuid.UUID]domain.Livestock, len(livestockIDs))
	if len(livestockIDs) == 0 {
		return out, nil
	}
	var rows []repoModels.LivestockRow
	query := `SELECT id, owner_id, name, breed, sex, birth_date, registration_number
		FROM livestock WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, uuidArray(livestockIDs)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range rows {
		out[row.ID] = livestockFromRow(row)
	}
	return out, nil
}

func livestockFromRow(row repoModels.LivestockRow) domain.Livestock {
	return domain.Livestock{
		ID:                 row.ID,
		OwnerID:            row.OwnerID,
		Name:               row.Name,
		Breed:              row.Breed,
		Sex:                row.Sex,
		BirthDate:          row.BirthDate,
		RegistrationNumber: row.RegistrationNumber,
	}
}
