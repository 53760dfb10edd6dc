package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/lifecycle"
	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Service records judge scores and moves submissions to JUDGED.
type Service struct {
	store  repositories.Store
	authz  authz.Authorizer
	policy CompletionPolicy
	cache  cache.ResultsCache
	events realtime.Broadcaster
	log    *slog.Logger
}

// New creates a new scoring service.
func New(
	logger *slog.Logger,
	store repositories.Store,
	authorizer authz.Authorizer,
	policy CompletionPolicy,
	resultsCache cache.ResultsCache,
	events realtime.Broadcaster,
) *Service {
	return &Service{
		store:  store,
		authz:  authorizer,
		policy: policy,
		cache:  resultsCache,
		events: events,
		log:    logger.With(slog.String("component", "scoring")),
	}
}

// ScoreInput is a judge's score for one criterion.
type ScoreInput struct {
	CriteriaID uuid.UUID
	Score      float64
	Comment    *string
}

// RecordedScore is the stored score together with its criterion.
type RecordedScore struct {
	domain.JudgingScore
	Criteria domain.Criteria `json:"criteria"`
	// SubmissionStatus is the submission status after the score was applied.
	SubmissionStatus domain.SubmissionStatus `json:"submissionStatus"`
}

// RecordScore validates and upserts a score, then lets the completion policy
// decide whether the submission is fully judged. The upsert, the completeness
// check and the status change share one transaction holding the submission lock.
func (s *Service) RecordScore(ctx context.Context, judgeID, submissionID uuid.UUID, in ScoreInput) (*RecordedScore, error) {
	op := "scoring.RecordScore"
	log := s.log.With(
		slog.String("op", op),
		slog.String("judge", judgeID.String()),
		slog.String("submission", submissionID.String()),
	)

	sub, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, s.reject(fmt.Errorf("%s: %w", op, err))
	}
	if err := authz.Require(ctx, s.authz, judgeID, sub.ContestID, domain.CanJudge); err != nil {
		return nil, s.reject(fmt.Errorf("%s: %w", op, err))
	}

	var (
		out    RecordedScore
		judged bool
	)
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		sub, err := tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		contest, err := tx.GetContestByID(ctx, sub.ContestID)
		if err != nil {
			return err
		}
		if !lifecycle.CanScore(contest) {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"contest is %s, scores are accepted only while JUDGING", contest.Status)
		}
		if !lifecycle.Judgeable(sub.Status) {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"submission is %s and cannot be scored", sub.Status)
		}
		participation, err := tx.GetParticipationByID(ctx, sub.ParticipationID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckParticipation(participation.Status); err != nil {
			return err
		}

		criteria, err := tx.GetCriteriaByID(ctx, in.CriteriaID)
		if err != nil {
			return err
		}
		if err := checkCriteriaScope(ctx, tx, criteria, sub); err != nil {
			return err
		}
		if err := validateScore(in.Score, criteria); err != nil {
			return err
		}

		score := domain.JudgingScore{
			JudgeID:      judgeID,
			SubmissionID: sub.ID,
			CriteriaID:   criteria.ID,
			Score:        in.Score,
			Comment:      in.Comment,
		}
		if err := tx.UpsertScore(ctx, &score); err != nil {
			return err
		}

		judged, err = s.tryComplete(ctx, tx, sub, judgeID)
		if err != nil {
			return err
		}

		out = RecordedScore{JudgingScore: score, Criteria: *criteria, SubmissionStatus: sub.Status}
		if judged {
			out.SubmissionStatus = domain.SubmissionJudged
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(fmt.Errorf("%s: %w", op, err))
	}

	metrics.ScoresRecorded.Inc()
	log.Debug("score recorded",
		slog.String("criteria", in.CriteriaID.String()),
		slog.Float64("score", in.Score))

	if err := s.cache.Invalidate(ctx, sub.ContestID); err != nil {
		log.Warn("results cache invalidation failed", sl.Err(err))
	}
	s.events.Broadcast(realtime.Event{
		Type:         realtime.EventScoreRecorded,
		ContestID:    sub.ContestID,
		SubmissionID: &sub.ID,
		Data:         out,
	})
	if judged {
		metrics.SubmissionsJudged.Inc()
		log.Info("submission judged", slog.String("policy", s.policy.Name()))
		s.events.Broadcast(realtime.Event{
			Type:         realtime.EventSubmissionJudged,
			ContestID:    sub.ContestID,
			SubmissionID: &sub.ID,
		})
	}

	return &out, nil
}

// tryComplete re-reads the submission's scores and moves it to JUDGED when
// the completion policy is satisfied.
func (s *Service) tryComplete(ctx context.Context, tx repositories.Store, sub *domain.Submission, judgeID uuid.UUID) (bool, error) {
	op := "scoring.tryComplete"

	if sub.Status == domain.SubmissionJudged {
		return false, nil
	}

	all, err := tx.GetCriteriaByContestID(ctx, sub.ContestID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	state := CompletionState{Judge: judgeID}
	for _, c := range all {
		if c.AppliesTo(sub.ContestID, sub.CategoryID) {
			state.Criteria = append(state.Criteria, c.ID)
		}
	}

	state.Scores, err = tx.GetScoresBySubmissionID(ctx, sub.ID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if s.policy.NeedsJudges() {
		state.Judges, err = tx.GetContestMemberIDsByRole(ctx, sub.ContestID, domain.RoleJudge)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !s.policy.Complete(state) {
		s.log.Debug("submission judging not complete yet",
			slog.String("op", op),
			slog.String("submission", sub.ID.String()),
			slog.Int("criteria", len(state.Criteria)),
			slog.Int("scores", len(state.Scores)))
		return false, nil
	}

	if err := lifecycle.CheckSubmissionTransition(sub.Status, domain.SubmissionJudged, lifecycle.ActorSystem); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.UpdateSubmissionStatus(ctx, sub.ID, domain.SubmissionJudged, nil); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	change := domain.StatusChange{
		ID:           uuid.New(),
		SubmissionID: sub.ID,
		From:         sub.Status,
		To:           domain.SubmissionJudged,
		Reason:       "all applicable criteria scored (" + s.policy.Name() + ")",
	}
	if err := tx.CreateStatusChange(ctx, &change); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ListScores returns the scores of a submission. The owner, judges and
// contest staff may read them.
func (s *Service) ListScores(ctx context.Context, userID, submissionID uuid.UUID) ([]domain.JudgingScore, error) {
	op := "scoring.ListScores"

	sub, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.OwnerID != userID {
		allowed := false
		for _, c := range []domain.Capability{domain.CanJudge, domain.CanManageSubmissions} {
			ok, err := s.authz.Can(ctx, userID, sub.ContestID, c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if ok {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", op,
				domain.Errorf(domain.KindForbidden, "not allowed to read scores of this submission"))
		}
	}

	scores, err := s.store.GetScoresBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return scores, nil
}

func (s *Service) reject(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		metrics.ScoresRejected.WithLabelValues(string(de.Kind)).Inc()
	}
	return err
}

// checkCriteriaScope requires the criterion to belong to the submission's
// contest, directly or through a category of it. A category-scoped criterion
// only applies to submissions of that category.
func checkCriteriaScope(ctx context.Context, tx repositories.Store, c *domain.Criteria, sub *domain.Submission) error {
	if contestID, ok := c.Scope.ContestID(); ok {
		if contestID != sub.ContestID {
			return domain.Errorf(domain.KindCriteriaNotInContest, "criteria does not belong to this contest")
		}
		return nil
	}

	categoryID, ok := c.Scope.CategoryID()
	if !ok {
		return domain.Errorf(domain.KindCriteriaNotInContest, "criteria has no scope")
	}
	category, err := tx.GetCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.KindCriteriaNotInContest, "criteria does not belong to this contest")
		}
		return err
	}
	if category.ContestID != sub.ContestID {
		return domain.Errorf(domain.KindCriteriaNotInContest, "criteria does not belong to this contest")
	}
	if categoryID != sub.CategoryID {
		return domain.Errorf(domain.KindCriteriaNotInContest, "criteria applies to another category")
	}
	return nil
}

func validateScore(score float64, c *domain.Criteria) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return domain.Errorf(domain.KindInvalidScore, "score must be a finite number")
	}
	if score < 0 || score > float64(c.MaxScore) {
		return domain.Errorf(domain.KindInvalidScore, "score must be between 0 and %d", c.MaxScore)
	}
	return nil
}
