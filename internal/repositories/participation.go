package repositories

import (
	"context"
	"fmt"
	"time"

	"ContestScoreAPI/internal/models/domain"
	repoModels "ContestScoreAPI/internal/models/repositories"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateParticipation registers a user in a contest. A second registration
// for the same pair fails with an InvalidStateTransition domain error.
func (r *Repository) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	op := "Repository.CreateParticipation"
	query := `INSERT INTO participations (id, contest_id, user_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING registered_at`
	err := r.q.QueryRowxContext(ctx, query,
		p.ID, p.ContestID, p.UserID, string(p.Status), p.Notes).
		Scan(&p.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, domain.Errorf(domain.KindInvalidStateTransition,
				"user is already registered in this contest"))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetParticipationByID returns a participation by ID.
func (r *Repository) GetParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error) {
	op := "Repository.GetParticipationByID"
	var row repoModels.ParticipationRow
	query := `SELECT id, contest_id, user_id, status, registered_at, approved_at, notes
		FROM participations WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &row, query, participationID); err != nil {
		return nil, wrap(op, "participation", err)
	}
	p := participationFromRow(row)
	return &p, nil
}

// GetParticipationByUser returns the user's participation in a contest.
func (r *Repository) GetParticipationByUser(ctx context.Context, contestID, userID uuid.UUID) (*domain.Participation, error) {
	op := "Repository.GetParticipationByUser"
	var row repoModels.ParticipationRow
	query := `SELECT id, contest_id, user_id, status, registered_at, approved_at, notes
		FROM participations WHERE contest_id = $1 AND user_id = $2`
	if err := sqlx.GetContext(ctx, r.q, &row, query, contestID, userID); err != nil {
		return nil, wrap(op, "participation", err)
	}
	p := participationFromRow(row)
	return &p, nil
}

// UpdateParticipationStatus sets status and approval time.
func (r *Repository) UpdateParticipationStatus(ctx context.Context, participationID uuid.UUID, status domain.ParticipationStatus, approvedAt *time.Time) error {
	op := "Repository.UpdateParticipationStatus"
	query := `UPDATE participations SET status = $1, approved_at = $2 WHERE id = $3`
	_, err := r.q.ExecContext(ctx, query, string(status), approvedAt, participationID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func participationFromRow(row repoModels.ParticipationRow) domain.Participation {
	return domain.Participation{
		ID:           row.ID,
		ContestID:    row.ContestID,
		UserID:       row.UserID,
		Status:       domain.ParticipationStatus(row.Status),
		RegisteredAt: row.RegisteredAt,
		ApprovedAt:   row.ApprovedAt,
		Notes:        row.Notes,
	}
}
