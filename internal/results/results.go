package results

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/repositories"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Service serves contest results. It never writes to the store.
type Service struct {
	store repositories.Store
	authz authz.Authorizer
	cache cache.ResultsCache
	log   *slog.Logger
}

func New(logger *slog.Logger, store repositories.Store, authorizer authz.Authorizer, resultsCache cache.ResultsCache) *Service {
	return &Service{
		store: store,
		authz: authorizer,
		cache: resultsCache,
		log:   logger.With(slog.String("component", "results")),
	}
}

// ContestResults returns the ranked results of a contest. Judges and staff
// may see them at any time, everyone else only once they are published.
func (s *Service) ContestResults(ctx context.Context, userID, contestID uuid.UUID) (*ContestResults, error) {
	op := "results.ContestResults"

	if err := s.Visible(ctx, userID, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Results(ctx, contestID)
}

// Visible reports through its error whether userID may follow the results
// of a contest.
func (s *Service) Visible(ctx context.Context, userID, contestID uuid.UUID) error {
	contest, err := s.store.GetContestByID(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.ResultsPublished != nil {
		return nil
	}
	ok, err := s.isStaff(ctx, userID, contestID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.KindForbidden, "results are not published yet")
	}
	return nil
}

// Results computes (or fetches from cache) the results without a visibility check.
func (s *Service) Results(ctx context.Context, contestID uuid.UUID) (*ContestResults, error) {
	op := "results.Results"
	log := s.log.With(slog.String("op", op), slog.String("contest", contestID.String()))

	if cached, hit, err := s.cache.Get(ctx, contestID); err != nil {
		log.Warn("results cache read failed", sl.Err(err))
	} else if hit {
		var res ContestResults
		if err := json.Unmarshal(cached, &res); err == nil {
			return &res, nil
		}
		log.Warn("discarding undecodable cached results")
	}

	start := time.Now()
	snap, err := s.snapshot(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res := Compute(snap)
	metrics.ResultsComputeDuration.Observe(time.Since(start).Seconds())

	if payload, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(ctx, contestID, payload); err != nil {
			log.Warn("results cache write failed", sl.Err(err))
		}
	}
	return &res, nil
}

func (s *Service) isStaff(ctx context.Context, userID, contestID uuid.UUID) (bool, error) {
	for _, c := range []domain.Capability{domain.CanJudge, domain.CanManageSubmissions, domain.CanManageContest} {
		ok, err := s.authz.Can(ctx, userID, contestID, c)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// snapshot reads every input of Compute inside one read-only transaction.
func (s *Service) snapshot(ctx context.Context, contestID uuid.UUID) (Snapshot, error) {
	op := "results.snapshot"
	snap := Snapshot{ContestID: contestID}

	err := s.store.InSnapshot(ctx, func(tx repositories.Store) error {
		var err error
		if snap.Categories, err = tx.GetCategoriesByContestID(ctx, contestID); err != nil {
			return err
		}
		if snap.Criteria, err = tx.GetCriteriaByContestID(ctx, contestID); err != nil {
			return err
		}
		judged := domain.SubmissionJudged
		if snap.Submissions, err = tx.GetSubmissionsByContestID(ctx, contestID, &judged); err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(snap.Submissions))
		owners := make([]uuid.UUID, 0, len(snap.Submissions))
		var animals []uuid.UUID
		for _, sub := range snap.Submissions {
			ids = append(ids, sub.ID)
			owners = append(owners, sub.OwnerID)
			if sub.LivestockID != nil {
				animals = append(animals, *sub.LivestockID)
			}
		}

		if snap.Scores, err = tx.GetScoresBySubmissionIDs(ctx, ids); err != nil {
			return err
		}
		if snap.Users, err = tx.GetUsersByIDs(ctx, owners); err != nil {
			return err
		}
		if snap.Media, err = tx.GetMediaBySubmissionIDs(ctx, ids); err != nil {
			return err
		}
		if snap.Livestock, err = tx.GetLivestockByIDs(ctx, animals); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}
