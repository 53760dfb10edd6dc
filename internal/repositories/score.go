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

// UpsertScore records a judge's score for one criterion of a submission.
// A repeated (judge, submission, criteria) triple overwrites score and
// comment and keeps the original ID and creation time.
func (r *Repository) UpsertScore(ctx context.Context, score *domain.JudgingScore) error {
	op := "Repository.UpsertScore"
	defer metrics.RecordDBOperation("upsert", "judging_scores", time.Now())

	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	query := `INSERT INTO judging_scores (id, judge_id, submission_id, criteria_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (judge_id, submission_id, criteria_id)
		DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRowxContext(ctx, query,
		score.ID, score.JudgeID, score.SubmissionID, score.CriteriaID, score.Score, score.Comment).
		Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const scoreColumns = `id, judge_id, submission_id, criteria_id, score, comment, created_at, updated_at`

// GetScoresBySubmissionID returns every score recorded for a submission.
func (r *Repository) GetScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.JudgingScore, error) {
	op := "Repository.GetScoresBySubmissionID"
	var rows []repoModels.JudgingScoreRow
	query := `SELECT ` + scoreColumns + ` FROM judging_scores
		WHERE submission_id = $1
		ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, submissionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return scoresFromRows(rows), nil
}

// GetScoresBySubmissionIDs returns the scores of several submissions at once.
func (r *Repository) GetScoresBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) ([]domain.JudgingScore, error) {
	op := "Repository.GetScoresBySubmissionIDs"
	if len(submissionIDs) == 0 {
		return nil, nil
	}
	defer metrics.RecordDBOperation("select", "judging_scores", time.Now())

	var rows []repoModels.JudgingScoreRow
	query := `SELECT ` + scoreColumns + ` FROM judging_scores
		WHERE submission_id = ANY($1::uuid[])
		ORDER BY submission_id, created_at, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, uuidArray(submissionIDs)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return scoresFromRows(rows), nil
}

func (r *Repository) DeleteScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	op := "Repository.DeleteScoresBySubmissionID"
	if _, err := r.q.ExecContext(ctx, `DELETE FROM judging_scores WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scoresFromRows(rows []repoModels.JudgingScoreRow) []domain.JudgingScore {
	out := make([]domain.JudgingScore, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.JudgingScore{
			ID:           row.ID,
			JudgeID:      row.JudgeID,
			SubmissionID: row.SubmissionID,
			CriteriaID:   row.CriteriaID,
			Score:        row.Score,
			Comment:      row.Comment,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out
}
