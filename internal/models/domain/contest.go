package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContestType selects which submission metadata shape a contest uses.
type ContestType string

const (
	ContestLivestock       ContestType = "LIVESTOCK"
	ContestCoffeeProducts  ContestType = "COFFEE_PRODUCTS"
	ContestGeneralProducts ContestType = "GENERAL_PRODUCTS"
)

func (t ContestType) Valid() bool {
	switch t {
	case ContestLivestock, ContestCoffeeProducts, ContestGeneralProducts:
		return true
	}
	return false
}

// ContestStatus is the lifecycle phase of a contest.
type ContestStatus string

const (
	ContestDraft              ContestStatus = "DRAFT"
	ContestRegistrationOpen   ContestStatus = "REGISTRATION_OPEN"
	ContestRegistrationClosed ContestStatus = "REGISTRATION_CLOSED"
	ContestJudging            ContestStatus = "JUDGING"
	ContestCompleted          ContestStatus = "COMPLETED"
	ContestCancelled          ContestStatus = "CANCELLED"
)

// Contest is the organizing entity. ResultsPublished is nil unless Status is COMPLETED.
type Contest struct {
	ID                uuid.UUID     `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Type              ContestType   `json:"type"`
	Status            ContestStatus `json:"status"`
	RegistrationStart *time.Time    `json:"registrationStart,omitempty"`
	RegistrationEnd   *time.Time    `json:"registrationEnd,omitempty"`
	ContestStart      *time.Time    `json:"contestStart,omitempty"`
	ContestEnd        *time.Time    `json:"contestEnd,omitempty"`
	ResultsPublished  *time.Time    `json:"resultsPublished"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// CategoryFilters narrows which entries fit a category. Unset fields do not filter.
type CategoryFilters struct {
	MinAgeMonths *int     `json:"minAgeMonths,omitempty"`
	MaxAgeMonths *int     `json:"maxAgeMonths,omitempty"`
	Sex          *string  `json:"sex,omitempty"`
	ProductType  *string  `json:"productType,omitempty"`
	MinWeight    *float64 `json:"minWeight,omitempty"`
	MaxWeight    *float64 `json:"maxWeight,omitempty"`
}

// Category is a division of a contest.
type Category struct {
	ID                       uuid.UUID       `json:"id"`
	ContestID                uuid.UUID       `json:"contestId"`
	Name                     string          `json:"name"`
	Description              string          `json:"description"`
	DisplayOrder             int             `json:"displayOrder"`
	Filters                  CategoryFilters `json:"filters"`
	MaxEntriesPerParticipant *int            `json:"maxEntriesPerParticipant,omitempty"`
	CreatedAt                time.Time       `json:"createdAt"`
}

// Role is a user's staff role within one contest.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleJudge   Role = "JUDGE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleJudge:
		return true
	}
	return false
}

// ContestMember grants a role on a contest.
type ContestMember struct {
	ContestID uuid.UUID `json:"contestId"`
	UserID    uuid.UUID `json:"userId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Capability is a permission checked per contest.
type Capability string

const (
	CanManageContest     Capability = "canManageContest"
	CanManageCategories  Capability = "canManageCategories"
	CanManageSubmissions Capability = "canManageSubmissions"
	CanJudge             Capability = "canJudge"
)

// User is an authenticated person known to the service.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ParticipationStatus is the state of a contest registration.
type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "PENDING"
	ParticipationApproved  ParticipationStatus = "APPROVED"
	ParticipationRejected  ParticipationStatus = "REJECTED"
	ParticipationWithdrawn ParticipationStatus = "WITHDRAWN"
)

// Participation is a user's registration in a contest. At most one per (user, contest).
type Participation struct {
	ID           uuid.UUID           `json:"id"`
	ContestID    uuid.UUID           `json:"contestId"`
	UserID       uuid.UUID           `json:"userId"`
	Status       ParticipationStatus `json:"status"`
	RegisteredAt time.Time           `json:"registeredAt"`
	ApprovedAt   *time.Time          `json:"approvedAt,omitempty"`
	Notes        string              `json:"notes"`
}
