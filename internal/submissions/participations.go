package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/lifecycle"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/repositories"

	"github.com/google/uuid"
)

// Participations handles contest registrations.
type Participations struct {
	store repositories.Store
	authz authz.Authorizer
	now   func() time.Time
	log   *slog.Logger
}

func NewParticipations(logger *slog.Logger, store repositories.Store, authorizer authz.Authorizer) *Participations {
	return &Participations{
		store: store,
		authz: authorizer,
		now:   time.Now,
		log:   logger.With(slog.String("component", "participations")),
	}
}

// Register creates a PENDING participation while registration is open.
func (p *Participations) Register(ctx context.Context, userID, contestID uuid.UUID, notes string) (*domain.Participation, error) {
	op := "participations.Register"

	contest, err := p.store.GetContestByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !lifecycle.CanRegister(contest) {
		return nil, domain.Errorf(domain.KindInvalidStateTransition,
			"contest is %s, registration is closed", contest.Status)
	}

	part := &domain.Participation{
		ID:        uuid.New(),
		ContestID: contestID,
		UserID:    userID,
		Status:    domain.ParticipationPending,
		Notes:     notes,
	}
	if err := p.store.CreateParticipation(ctx, part); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.log.Info("participant registered",
		slog.String("op", op),
		slog.String("contest", contestID.String()),
		slog.String("participation", part.ID.String()))
	return part, nil
}

// Decide approves or rejects a PENDING participation.
func (p *Participations) Decide(ctx context.Context, userID, contestID, participationID uuid.UUID, status domain.ParticipationStatus) (*domain.Participation, error) {
	op := "participations.Decide"

	if status != domain.ParticipationApproved && status != domain.ParticipationRejected {
		return nil, domain.Errorf(domain.KindValidation, "status must be APPROVED or REJECTED")
	}
	part, err := p.get(ctx, contestID, participationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, p.authz, userID, contestID, domain.CanManageContest); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if part.Status != domain.ParticipationPending {
		return nil, domain.Errorf(domain.KindInvalidStateTransition,
			"participation is already %s", part.Status)
	}

	var approvedAt *time.Time
	if status == domain.ParticipationApproved {
		now := p.now().UTC().Truncate(time.Microsecond)
		approvedAt = &now
	}
	if err := p.store.UpdateParticipationStatus(ctx, part.ID, status, approvedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	part.Status = status
	part.ApprovedAt = approvedAt

	p.log.Info("participation decided",
		slog.String("op", op),
		slog.String("participation", part.ID.String()),
		slog.String("status", string(status)))
	return part, nil
}

// Withdraw lets a participant leave a contest. Existing entries stay.
func (p *Participations) Withdraw(ctx context.Context, userID, contestID, participationID uuid.UUID) (*domain.Participation, error) {
	op := "participations.Withdraw"

	part, err := p.get(ctx, contestID, participationID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if part.UserID != userID {
		return nil, domain.Errorf(domain.KindForbidden, "only the participant may withdraw")
	}
	switch part.Status {
	case domain.ParticipationPending, domain.ParticipationApproved:
	default:
		return nil, domain.Errorf(domain.KindInvalidStateTransition,
			"participation is %s and cannot be withdrawn", part.Status)
	}

	if err := p.store.UpdateParticipationStatus(ctx, part.ID, domain.ParticipationWithdrawn, part.ApprovedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	part.Status = domain.ParticipationWithdrawn
	return part, nil
}

func (p *Participations) get(ctx context.Context, contestID, participationID uuid.UUID) (*domain.Participation, error) {
	part, err := p.store.GetParticipationByID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if part.ContestID != contestID {
		return nil, domain.NotFound("participation")
	}
	return part, nil
}
