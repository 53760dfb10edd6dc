package contests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/lifecycle"
	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/notify"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"
	"ContestScoreAPI/internal/results"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// ResultsSource computes results for the publication notice.
type ResultsSource interface {
	Results(ctx context.Context, contestID uuid.UUID) (*results.ContestResults, error)
}

// Service manages contests, their categories, criteria and staff.
type Service struct {
	store    repositories.Store
	authz    authz.Authorizer
	results  ResultsSource
	cache    cache.ResultsCache
	events   realtime.Broadcaster
	notifier notify.Notifier
	now      func() time.Time
	log      *slog.Logger
}

func New(
	logger *slog.Logger,
	store repositories.Store,
	authorizer authz.Authorizer,
	source ResultsSource,
	resultsCache cache.ResultsCache,
	events realtime.Broadcaster,
	notifier notify.Notifier,
) *Service {
	return &Service{
		store:    store,
		authz:    authorizer,
		results:  source,
		cache:    resultsCache,
		events:   events,
		notifier: notifier,
		now:      time.Now,
		log:      logger.With(slog.String("component", "contests")),
	}
}

type CreateInput struct {
	Name              string
	Description       string
	Type              domain.ContestType
	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	ContestStart      *time.Time
	ContestEnd        *time.Time
}

// Create stores a DRAFT contest and makes its creator the contest ADMIN.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*domain.Contest, error) {
	op := "contests.Create"

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Errorf(domain.KindValidation, "name is required")
	}
	if !in.Type.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "unknown contest type %q", in.Type)
	}
	if err := checkWindow("registration", in.RegistrationStart, in.RegistrationEnd); err != nil {
		return nil, err
	}
	if err := checkWindow("contest", in.ContestStart, in.ContestEnd); err != nil {
		return nil, err
	}

	contest := &domain.Contest{
		ID:                uuid.New(),
		Name:              in.Name,
		Description:       in.Description,
		Type:              in.Type,
		Status:            domain.ContestDraft,
		RegistrationStart: in.RegistrationStart,
		RegistrationEnd:   in.RegistrationEnd,
		ContestStart:      in.ContestStart,
		ContestEnd:        in.ContestEnd,
	}
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := tx.CreateContest(ctx, contest); err != nil {
			return err
		}
		member := domain.ContestMember{ContestID: contest.ID, UserID: userID, Role: domain.RoleAdmin}
		return tx.UpsertContestMember(ctx, &member)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("contest created",
		slog.String("op", op),
		slog.String("contest", contest.ID.String()),
		slog.String("type", string(contest.Type)))
	return contest, nil
}

func (s *Service) Get(ctx context.Context, contestID uuid.UUID) (*domain.Contest, error) {
	op := "contests.Get"
	c, err := s.store.GetContestByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Advance moves a contest one step forward. COMPLETED is only reachable
// through PublishResults.
func (s *Service) Advance(ctx context.Context, userID, contestID uuid.UUID, to domain.ContestStatus) (*domain.Contest, error) {
	op := "contests.Advance"
	if to == domain.ContestCompleted {
		return nil, domain.Errorf(domain.KindInvalidStateTransition, "contests are completed by publishing results")
	}
	c, err := s.transition(ctx, userID, contestID, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Cancel moves a contest to CANCELLED from any state but COMPLETED and CANCELLED.
func (s *Service) Cancel(ctx context.Context, userID, contestID uuid.UUID) (*domain.Contest, error) {
	op := "contests.Cancel"
	c, err := s.transition(ctx, userID, contestID, domain.ContestCancelled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *Service) transition(ctx context.Context, userID, contestID uuid.UUID, to domain.ContestStatus) (*domain.Contest, error) {
	contest, err := s.store.GetContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(ctx, s.authz, userID, contestID, domain.CanManageContest); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckContestTransition(contest.Status, to); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateContestStatus(ctx, contestID, contest.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Errorf(domain.KindInvalidStateTransition, "contest status changed concurrently")
	}

	s.log.Info("contest status changed",
		slog.String("contest", contestID.String()),
		slog.String("from", string(contest.Status)),
		slog.String("to", string(to)))
	return s.store.GetContestByID(ctx, contestID)
}

// PublishResults completes a JUDGING contest and stamps the publication
// time. Publishing from any other status, including a second publish, is
// rejected without touching the contest.
func (s *Service) PublishResults(ctx context.Context, userID, contestID uuid.UUID) (time.Time, error) {
	op := "contests.PublishResults"
	log := s.log.With(slog.String("op", op), slog.String("contest", contestID.String()))

	contest, err := s.store.GetContestByID(ctx, contestID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, s.authz, userID, contestID, domain.CanManageContest); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if !lifecycle.CanPublishResults(contest) {
		return time.Time{}, fmt.Errorf("%s: %w", op, domain.Errorf(domain.KindInvalidStateTransition,
			"results can only be published while JUDGING, contest is %s", contest.Status))
	}

	publishedAt := s.now().UTC().Truncate(time.Microsecond)
	ok, err := s.store.PublishContestResults(ctx, contestID, publishedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return time.Time{}, fmt.Errorf("%s: %w", op, domain.Errorf(domain.KindInvalidStateTransition,
			"results were already published"))
	}

	metrics.ResultsPublished.Inc()
	log.Info("results published", slog.Time("publishedAt", publishedAt))

	if err := s.cache.Invalidate(ctx, contestID); err != nil {
		log.Warn("results cache invalidation failed", sl.Err(err))
	}
	s.events.Broadcast(realtime.Event{
		Type:      realtime.EventResultsPublished,
		ContestID: contestID,
		Data:      map[string]any{"resultsPublished": publishedAt},
	})

	contest.Status = domain.ContestCompleted
	contest.ResultsPublished = &publishedAt
	if res, err := s.results.Results(ctx, contestID); err != nil {
		log.Warn("results for notification failed", sl.Err(err))
	} else if err := s.notifier.ResultsPublished(ctx, *contest, res); err != nil {
		log.Warn("publication notice failed", sl.Err(err))
	}

	return publishedAt, nil
}

// AddMember grants a role on the contest. Unknown users get a placeholder
// record that is filled in on their first sign-in.
func (s *Service) AddMember(ctx context.Context, userID, contestID, memberID uuid.UUID, role domain.Role) (*domain.ContestMember, error) {
	op := "contests.AddMember"

	if !role.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "unknown role %q", role)
	}
	if memberID == uuid.Nil {
		return nil, domain.Errorf(domain.KindValidation, "userId is required")
	}
	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, s.authz, userID, contestID, domain.CanManageContest); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	member := &domain.ContestMember{ContestID: contestID, UserID: memberID, Role: role}
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		if _, err := tx.GetUserByID(ctx, memberID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := tx.UpsertUser(ctx, &domain.User{ID: memberID}); err != nil {
				return err
			}
		}
		return tx.UpsertContestMember(ctx, member)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return member, nil
}

func checkWindow(name string, start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.Errorf(domain.KindValidation, "%s end is before its start", name)
	}
	return nil
}
