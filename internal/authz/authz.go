package authz

import (
	"context"
	"fmt"
	"log/slog"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

// Authorizer answers capability questions for one contest.
type Authorizer interface {
	Can(ctx context.Context, userID, contestID uuid.UUID, capability domain.Capability) (bool, error)
}

type roleReader interface {
	GetContestMemberRoles(ctx context.Context, contestID, userID uuid.UUID) ([]domain.Role, error)
}

var roleCapabilities = map[domain.Role][]domain.Capability{
	domain.RoleAdmin: {
		domain.CanManageContest,
		domain.CanManageCategories,
		domain.CanManageSubmissions,
		domain.CanJudge,
	},
	domain.RoleManager: {
		domain.CanManageCategories,
		domain.CanManageSubmissions,
	},
	domain.RoleJudge: {
		domain.CanJudge,
	},
}

// RoleAuthorizer grants capabilities from contest membership roles.
// Platform admins hold every capability on every contest.
type RoleAuthorizer struct {
	roles  roleReader
	admins map[uuid.UUID]struct{}
	log    *slog.Logger
}

func NewRoleAuthorizer(log *slog.Logger, roles roleReader, admins []uuid.UUID) *RoleAuthorizer {
	a := &RoleAuthorizer{
		roles:  roles,
		admins: make(map[uuid.UUID]struct{}, len(admins)),
		log:    log.With(slog.String("component", "authz")),
	}
	for _, id := range admins {
		a.admins[id] = struct{}{}
	}
	return a
}

func (a *RoleAuthorizer) Can(ctx context.Context, userID, contestID uuid.UUID, capability domain.Capability) (bool, error) {
	op := "authz.Can"
	if _, ok := a.admins[userID]; ok {
		return true, nil
	}

	roles, err := a.roles.GetContestMemberRoles(ctx, contestID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			if c == capability {
				return true, nil
			}
		}
	}

	a.log.Debug("capability denied",
		slog.String("op", op),
		slog.String("user", userID.String()),
		slog.String("contest", contestID.String()),
		slog.String("capability", string(capability)))
	return false, nil
}

// Require is Can turned into a Forbidden error when the capability is missing.
func Require(ctx context.Context, a Authorizer, userID, contestID uuid.UUID, capability domain.Capability) error {
	ok, err := a.Can(ctx, userID, contestID, capability)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.KindForbidden, "missing %s permission for this contest", capability)
	}
	return nil
}
