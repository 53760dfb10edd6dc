package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCriteriaWeight   = 1.0
	MinCriteriaWeight       = 0.1
	MaxCriteriaWeight       = 10.0
	DefaultCriteriaMaxScore = 100
)

type scopeKind uint8

const (
	scopeContest scopeKind = iota + 1
	scopeCategory
)

// CriteriaScope says whether a criterion applies to a whole contest or to one category.
// The zero value is invalid; build scopes with ContestWide or CategoryScoped.
type CriteriaScope struct {
	kind scopeKind
	id   uuid.UUID
}

func ContestWide(contestID uuid.UUID) CriteriaScope {
	return CriteriaScope{kind: scopeContest, id: contestID}
}

func CategoryScoped(categoryID uuid.UUID) CriteriaScope {
	return CriteriaScope{kind: scopeCategory, id: categoryID}
}

// ContestID returns the contest for contest-wide criteria.
func (s CriteriaScope) ContestID() (uuid.UUID, bool) {
	return s.id, s.kind == scopeContest
}

// CategoryID returns the category for category-scoped criteria.
func (s CriteriaScope) CategoryID() (uuid.UUID, bool) {
	return s.id, s.kind == scopeCategory
}

func (s CriteriaScope) Valid() bool {
	return (s.kind == scopeContest || s.kind == scopeCategory) && s.id != uuid.Nil
}

// Columns splits the scope into the two nullable foreign keys used by storage.
func (s CriteriaScope) Columns() (contestID, categoryID *uuid.UUID) {
	id := s.id
	switch s.kind {
	case scopeContest:
		return &id, nil
	case scopeCategory:
		return nil, &id
	}
	return nil, nil
}

// ScopeFromColumns rebuilds a scope from storage; exactly one column must be set.
func ScopeFromColumns(contestID, categoryID *uuid.UUID) (CriteriaScope, error) {
	switch {
	case contestID != nil && categoryID == nil:
		return ContestWide(*contestID), nil
	case contestID == nil && categoryID != nil:
		return CategoryScoped(*categoryID), nil
	}
	return CriteriaScope{}, Errorf(KindValidation, "criteria must belong to exactly one of contest or category")
}

// Criteria is a weighted judging dimension.
type Criteria struct {
	ID           uuid.UUID     `json:"id"`
	Scope        CriteriaScope `json:"-"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Weight       float64       `json:"weight"`
	MaxScore     int           `json:"maxScore"`
	DisplayOrder int           `json:"displayOrder"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AppliesTo reports whether the criterion scores entries of the given category in the given contest.
func (c Criteria) AppliesTo(contestID, categoryID uuid.UUID) bool {
	if id, ok := c.Scope.ContestID(); ok {
		return id == contestID
	}
	if id, ok := c.Scope.CategoryID(); ok {
		return id == categoryID
	}
	return false
}

func (c Criteria) MarshalJSON() ([]byte, error) {
	type plain Criteria
	contestID, categoryID := c.Scope.Columns()
	return json.Marshal(struct {
		plain
		ContestID  *uuid.UUID `json:"contestId,omitempty"`
		CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	}{plain(c), contestID, categoryID})
}
