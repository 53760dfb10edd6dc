package submissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/lifecycle"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Service manages contest entries and their status.
type Service struct {
	store  repositories.Store
	authz  authz.Authorizer
	cache  cache.ResultsCache
	events realtime.Broadcaster
	now    func() time.Time
	log    *slog.Logger
}

func New(
	logger *slog.Logger,
	store repositories.Store,
	authorizer authz.Authorizer,
	resultsCache cache.ResultsCache,
	events realtime.Broadcaster,
) *Service {
	return &Service{
		store:  store,
		authz:  authorizer,
		cache:  resultsCache,
		events: events,
		now:    time.Now,
		log:    logger.With(slog.String("component", "submissions")),
	}
}

// Detail is a submission with its media.
type Detail struct {
	domain.Submission
	Media []domain.Media `json:"media"`
}

type CreateInput struct {
	CategoryID  uuid.UUID
	Title       string
	Description string
	// Metadata is raw JSON decoded against the contest type.
	Metadata    []byte
	LivestockID *uuid.UUID
}

// Create stores a DRAFT entry for the caller's approved participation.
func (s *Service) Create(ctx context.Context, userID, contestID uuid.UUID, in CreateInput) (*domain.Submission, error) {
	op := "submissions.Create"

	contest, err := s.store.GetContestByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	participation, err := s.store.GetParticipationByUser(ctx, contestID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.KindForbidden, "you are not registered in this contest")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := lifecycle.CheckParticipation(participation.Status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !lifecycle.CanAcceptSubmissions(contest) {
		return nil, domain.Errorf(domain.KindInvalidStateTransition,
			"contest is %s and does not accept submissions", contest.Status)
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, domain.Errorf(domain.KindValidation, "title is required")
	}
	if in.CategoryID == uuid.Nil {
		return nil, domain.Errorf(domain.KindValidation, "categoryId is required")
	}
	category, err := categoryOf(ctx, s.store, contestID, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metadata, err := decodeFor(contest.Type, category, in.Metadata)
	if err != nil {
		return nil, err
	}
	if err := checkLivestock(ctx, s.store, userID, in.LivestockID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := &domain.Submission{
		ID:              uuid.New(),
		ContestID:       contestID,
		CategoryID:      category.ID,
		ParticipationID: participation.ID,
		OwnerID:         userID,
		Title:           in.Title,
		Description:     in.Description,
		Status:          domain.SubmissionDraft,
		Metadata:        metadata,
		LivestockID:     in.LivestockID,
	}
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		if err := checkCap(ctx, tx, participation.ID, category); err != nil {
			return err
		}
		return tx.CreateSubmission(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("submission created",
		slog.String("op", op),
		slog.String("submission", sub.ID.String()),
		slog.String("category", category.ID.String()))
	return sub, nil
}

// UpdateInput changes a DRAFT entry. Nil fields are left as they are.
type UpdateInput struct {
	CategoryID  *uuid.UUID
	Title       *string
	Description *string
	Metadata    []byte
	LivestockID *uuid.UUID
}

func (s *Service) Update(ctx context.Context, userID, submissionID uuid.UUID, in UpdateInput) (*domain.Submission, error) {
	op := "submissions.Update"

	var sub *domain.Submission
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		var err error
		sub, err = tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.OwnerID != userID {
			return domain.Errorf(domain.KindForbidden, "only the owner may edit a submission")
		}
		if !lifecycle.OwnerEditable(sub.Status) {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"submission is %s, only drafts can be edited", sub.Status)
		}
		contest, err := tx.GetContestByID(ctx, sub.ContestID)
		if err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return domain.Errorf(domain.KindValidation, "title is required")
			}
			sub.Title = title
		}
		if in.Description != nil {
			sub.Description = *in.Description
		}
		category, err := categoryOf(ctx, tx, sub.ContestID, sub.CategoryID)
		if err != nil {
			return err
		}
		if in.CategoryID != nil && *in.CategoryID != sub.CategoryID {
			category, err = categoryOf(ctx, tx, sub.ContestID, *in.CategoryID)
			if err != nil {
				return err
			}
			if err := checkCap(ctx, tx, sub.ParticipationID, category); err != nil {
				return err
			}
			sub.CategoryID = category.ID
		}
		if in.Metadata != nil {
			sub.Metadata, err = decodeFor(contest.Type, category, in.Metadata)
			if err != nil {
				return err
			}
		} else if sub.Metadata != nil {
			if err := category.Filters.Fits(sub.Metadata); err != nil {
				return err
			}
		}
		if in.LivestockID != nil {
			if err := checkLivestock(ctx, tx, userID, in.LivestockID); err != nil {
				return err
			}
			sub.LivestockID = in.LivestockID
		}
		return tx.UpdateSubmission(ctx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Submit moves the caller's DRAFT to SUBMITTED.
func (s *Service) Submit(ctx context.Context, userID, submissionID uuid.UUID) (*domain.Submission, error) {
	op := "submissions.Submit"

	var sub *domain.Submission
	err := s.store.InTx(ctx, func(tx repositories.Store) error {
		var err error
		sub, err = tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.OwnerID != userID {
			return domain.Errorf(domain.KindForbidden, "only the owner may submit an entry")
		}
		contest, err := tx.GetContestByID(ctx, sub.ContestID)
		if err != nil {
			return err
		}
		if !lifecycle.CanAcceptSubmissions(contest) {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"contest is %s and does not accept submissions", contest.Status)
		}
		participation, err := tx.GetParticipationByID(ctx, sub.ParticipationID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckParticipation(participation.Status); err != nil {
			return err
		}
		return s.apply(ctx, tx, sub, domain.SubmissionSubmitted, lifecycle.ActorOwner, &userID, "submitted by owner")
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("submission submitted", slog.String("op", op), slog.String("submission", submissionID.String()))
	return sub, nil
}

// Transition applies a status change requested by contest staff.
func (s *Service) Transition(ctx context.Context, userID, submissionID uuid.UUID, to domain.SubmissionStatus, reason string) (*domain.Submission, error) {
	op := "submissions.Transition"
	log := s.log.With(slog.String("op", op), slog.String("submission", submissionID.String()))

	if !to.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "unknown submission status %q", to)
	}
	current, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, s.authz, userID, current.ContestID, domain.CanManageSubmissions); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sub *domain.Submission
	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		var err error
		sub, err = tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		return s.apply(ctx, tx, sub, to, lifecycle.ActorElevated, &userID, reason)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("submission status changed", slog.String("to", string(to)))
	if err := s.cache.Invalidate(ctx, sub.ContestID); err != nil {
		log.Warn("results cache invalidation failed", sl.Err(err))
	}
	if to == domain.SubmissionJudged {
		s.events.Broadcast(realtime.Event{
			Type:         realtime.EventSubmissionJudged,
			ContestID:    sub.ContestID,
			SubmissionID: &sub.ID,
		})
	}
	return sub, nil
}

// apply checks and stores one status change and its audit row. sub is
// updated in place.
func (s *Service) apply(ctx context.Context, tx repositories.Store, sub *domain.Submission, to domain.SubmissionStatus, actor lifecycle.Actor, by *uuid.UUID, reason string) error {
	if err := lifecycle.CheckSubmissionTransition(sub.Status, to, actor); err != nil {
		return err
	}

	var submittedAt *time.Time
	if to == domain.SubmissionSubmitted && sub.SubmittedAt == nil {
		now := s.now().UTC().Truncate(time.Microsecond)
		submittedAt = &now
	}
	if err := tx.UpdateSubmissionStatus(ctx, sub.ID, to, submittedAt); err != nil {
		return err
	}
	change := domain.StatusChange{
		ID:           uuid.New(),
		SubmissionID: sub.ID,
		From:         sub.Status,
		To:           to,
		ChangedBy:    by,
		Reason:       reason,
	}
	if err := tx.CreateStatusChange(ctx, &change); err != nil {
		return err
	}

	sub.Status = to
	if submittedAt != nil {
		sub.SubmittedAt = submittedAt
	}
	return nil
}

// Delete removes an entry with its scores, media and history. Owners may
// delete drafts; canManageSubmissions holders may delete in any status.
func (s *Service) Delete(ctx context.Context, userID, submissionID uuid.UUID) error {
	op := "submissions.Delete"

	sub, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	elevated, err := s.authz.Can(ctx, userID, sub.ContestID, domain.CanManageSubmissions)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !elevated && sub.OwnerID != userID {
		return domain.Errorf(domain.KindForbidden, "not allowed to delete this submission")
	}

	err = s.store.InTx(ctx, func(tx repositories.Store) error {
		locked, err := tx.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if !elevated && !lifecycle.OwnerEditable(locked.Status) {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"submission is %s, only drafts can be deleted by their owner", locked.Status)
		}
		if err := tx.DeleteScoresBySubmissionID(ctx, submissionID); err != nil {
			return err
		}
		if err := tx.DeleteMediaBySubmissionID(ctx, submissionID); err != nil {
			return err
		}
		if err := tx.DeleteStatusChangesBySubmissionID(ctx, submissionID); err != nil {
			return err
		}
		return tx.DeleteSubmission(ctx, submissionID)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), slog.String("submission", submissionID.String()))
	log.Info("submission deleted", slog.Bool("elevated", elevated))
	if err := s.cache.Invalidate(ctx, sub.ContestID); err != nil {
		log.Warn("results cache invalidation failed", sl.Err(err))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID, submissionID uuid.UUID) (*Detail, error) {
	op := "submissions.Get"

	sub, err := s.visible(ctx, userID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	media, err := s.store.GetMediaBySubmissionIDs(ctx, []uuid.UUID{sub.ID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d := &Detail{Submission: *sub, Media: media[sub.ID]}
	if d.Media == nil {
		d.Media = []domain.Media{}
	}
	return d, nil
}

// ListByContest returns every entry to staff and judges, and only their own
// entries to everyone else. A non-nil status filters the list.
func (s *Service) ListByContest(ctx context.Context, userID, contestID uuid.UUID, status *domain.SubmissionStatus) ([]domain.Submission, error) {
	op := "submissions.ListByContest"

	if status != nil && !status.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "unknown submission status %q", *status)
	}
	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	all, err := s.store.GetSubmissionsByContestID(ctx, contestID, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	staff, err := s.staff(ctx, userID, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if staff {
		return all, nil
	}

	own := make([]domain.Submission, 0)
	for _, sub := range all {
		if sub.OwnerID == userID {
			own = append(own, sub)
		}
	}
	return own, nil
}

type MediaInput struct {
	URL          string
	Caption      string
	DisplayOrder int
}

// AddMedia attaches an image or video URL to an entry.
func (s *Service) AddMedia(ctx context.Context, userID, submissionID uuid.UUID, in MediaInput) (*domain.Media, error) {
	op := "submissions.AddMedia"

	if err := validateMediaURL(in.URL); err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	elevated, err := s.authz.Can(ctx, userID, sub.ContestID, domain.CanManageSubmissions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !elevated {
		if sub.OwnerID != userID {
			return nil, domain.Errorf(domain.KindForbidden, "only the owner may add media")
		}
		if !lifecycle.OwnerEditable(sub.Status) {
			return nil, domain.Errorf(domain.KindInvalidStateTransition,
				"submission is %s, media can only be added to drafts", sub.Status)
		}
	}

	media := &domain.Media{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		URL:          strings.TrimSpace(in.URL),
		Caption:      in.Caption,
		DisplayOrder: in.DisplayOrder,
	}
	if err := s.store.CreateMedia(ctx, media); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.Status == domain.SubmissionJudged {
		if err := s.cache.Invalidate(ctx, sub.ContestID); err != nil {
			s.log.Warn("results cache invalidation failed", slog.String("op", op), sl.Err(err))
		}
	}
	return media, nil
}

// History returns the status audit trail, oldest first.
func (s *Service) History(ctx context.Context, userID, submissionID uuid.UUID) ([]domain.StatusChange, error) {
	op := "submissions.History"

	if _, err := s.visible(ctx, userID, submissionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	changes, err := s.store.GetStatusChangesBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return changes, nil
}

type LivestockInput struct {
	Name               string
	Breed              string
	Sex                string
	BirthDate          *time.Time
	RegistrationNumber string
}

// CreateLivestock registers an animal owned by the caller.
func (s *Service) CreateLivestock(ctx context.Context, userID uuid.UUID, in LivestockInput) (*domain.Livestock, error) {
	op := "submissions.CreateLivestock"

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Errorf(domain.KindValidation, "name is required")
	}
	switch in.Sex {
	case "", "MALE", "FEMALE":
	default:
		return nil, domain.Errorf(domain.KindValidation, "sex must be MALE or FEMALE")
	}

	l := &domain.Livestock{
		ID:                 uuid.New(),
		OwnerID:            userID,
		Name:               in.Name,
		Breed:              strings.TrimSpace(in.Breed),
		Sex:                in.Sex,
		BirthDate:          in.BirthDate,
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
	}
	if err := s.store.CreateLivestock(ctx, l); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// visible loads a submission the caller may read: the owner, judges and staff.
func (s *Service) visible(ctx context.Context, userID, submissionID uuid.UUID) (*domain.Submission, error) {
	sub, err := s.store.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID == userID {
		return sub, nil
	}
	staff, err := s.staff(ctx, userID, sub.ContestID)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, domain.Errorf(domain.KindForbidden, "not allowed to read this submission")
	}
	return sub, nil
}

func (s *Service) staff(ctx context.Context, userID, contestID uuid.UUID) (bool, error) {
	for _, c := range []domain.Capability{domain.CanManageSubmissions, domain.CanJudge} {
		ok, err := s.authz.Can(ctx, userID, contestID, c)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func categoryOf(ctx context.Context, store repositories.Store, contestID, categoryID uuid.UUID) (*domain.Category, error) {
	category, err := store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.ContestID != contestID {
		return nil, domain.NotFound("category")
	}
	return category, nil
}

func checkLivestock(ctx context.Context, store repositories.Store, userID uuid.UUID, livestockID *uuid.UUID) error {
	if livestockID == nil {
		return nil
	}
	l, err := store.GetLivestockByID(ctx, *livestockID)
	if err != nil {
		return err
	}
	if l.OwnerID != userID {
		return domain.Errorf(domain.KindForbidden, "livestock belongs to another user")
	}
	return nil
}

func decodeFor(ct domain.ContestType, category *domain.Category, raw []byte) (domain.Metadata, error) {
	metadata, err := domain.DecodeMetadata(ct, raw)
	if err != nil {
		return nil, err
	}
	if metadata != nil {
		if err := category.Filters.Fits(metadata); err != nil {
			return nil, err
		}
	}
	return metadata, nil
}

func checkCap(ctx context.Context, tx repositories.Store, participationID uuid.UUID, category *domain.Category) error {
	if category.MaxEntriesPerParticipant == nil {
		return nil
	}
	n, err := tx.CountSubmissions(ctx, participationID, category.ID)
	if err != nil {
		return err
	}
	if n >= *category.MaxEntriesPerParticipant {
		return domain.Errorf(domain.KindValidation,
			"category %s accepts at most %d entries per participant", category.Name, *category.MaxEntriesPerParticipant)
	}
	return nil
}

func validateMediaURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.Errorf(domain.KindValidation, "media url must be an absolute http or https url")
	}
	return nil
}
