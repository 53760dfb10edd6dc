package contests

import (
	"context"
	"fmt"
	"strings"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

type CategoryInput struct {
	Name                     string
	Description              string
	DisplayOrder             int
	Filters                  domain.CategoryFilters
	MaxEntriesPerParticipant *int
}

func (s *Service) AddCategory(ctx context.Context, userID, contestID uuid.UUID, in CategoryInput) (*domain.Category, error) {
	op := "contests.AddCategory"

	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, s.authz, userID, contestID, domain.CanManageCategories); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Errorf(domain.KindValidation, "name is required")
	}
	if in.MaxEntriesPerParticipant != nil && *in.MaxEntriesPerParticipant < 1 {
		return nil, domain.Errorf(domain.KindValidation, "maxEntriesPerParticipant must be at least 1")
	}
	if err := validateFilters(in.Filters); err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:                       uuid.New(),
		ContestID:                contestID,
		Name:                     in.Name,
		Description:              in.Description,
		DisplayOrder:             in.DisplayOrder,
		Filters:                  in.Filters,
		MaxEntriesPerParticipant: in.MaxEntriesPerParticipant,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return category, nil
}

// ListCategories returns the categories of a contest in display order.
func (s *Service) ListCategories(ctx context.Context, contestID uuid.UUID) ([]domain.Category, error) {
	op := "contests.ListCategories"
	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	categories, err := s.store.GetCategoriesByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

type CriteriaInput struct {
	// CategoryID scopes the criterion to one category; nil makes it contest-wide.
	CategoryID   *uuid.UUID
	Name         string
	Description  string
	Weight       *float64
	MaxScore     *int
	DisplayOrder int
}

func (s *Service) AddCriteria(ctx context.Context, userID, contestID uuid.UUID, in CriteriaInput) (*domain.Criteria, error) {
	op := "contests.AddCriteria"

	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := authz.Require(ctx, s.authz, userID, contestID, domain.CanManageCategories); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Errorf(domain.KindValidation, "name is required")
	}
	weight := domain.DefaultCriteriaWeight
	if in.Weight != nil {
		weight = *in.Weight
	}
	if weight < domain.MinCriteriaWeight || weight > domain.MaxCriteriaWeight {
		return nil, domain.Errorf(domain.KindValidation, "weight must be between %.1f and %.0f",
			domain.MinCriteriaWeight, domain.MaxCriteriaWeight)
	}
	maxScore := domain.DefaultCriteriaMaxScore
	if in.MaxScore != nil {
		maxScore = *in.MaxScore
	}
	if maxScore <= 0 {
		return nil, domain.Errorf(domain.KindValidation, "maxScore must be positive")
	}

	scope := domain.ContestWide(contestID)
	if in.CategoryID != nil {
		category, err := s.store.GetCategoryByID(ctx, *in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if category.ContestID != contestID {
			return nil, fmt.Errorf("%s: %w", op, domain.NotFound("category"))
		}
		scope = domain.CategoryScoped(category.ID)
	}

	criteria := &domain.Criteria{
		ID:           uuid.New(),
		Scope:        scope,
		Name:         in.Name,
		Description:  in.Description,
		Weight:       weight,
		MaxScore:     maxScore,
		DisplayOrder: in.DisplayOrder,
	}
	if err := s.store.CreateCriteria(ctx, criteria); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return criteria, nil
}

// ListCriteria returns every criterion of a contest. With categoryID set only
// the criteria applying to that category are returned.
func (s *Service) ListCriteria(ctx context.Context, contestID uuid.UUID, categoryID *uuid.UUID) ([]domain.Criteria, error) {
	op := "contests.ListCriteria"
	if _, err := s.store.GetContestByID(ctx, contestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	all, err := s.store.GetCriteriaByContestID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if categoryID == nil {
		return all, nil
	}
	out := make([]domain.Criteria, 0, len(all))
	for _, c := range all {
		if c.AppliesTo(contestID, *categoryID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func validateFilters(f domain.CategoryFilters) error {
	if f.MinAgeMonths != nil && f.MaxAgeMonths != nil && *f.MinAgeMonths > *f.MaxAgeMonths {
		return domain.Errorf(domain.KindValidation, "minAgeMonths is greater than maxAgeMonths")
	}
	if f.MinWeight != nil && f.MaxWeight != nil && *f.MinWeight > *f.MaxWeight {
		return domain.Errorf(domain.KindValidation, "minWeight is greater than maxWeight")
	}
	if (f.MinAgeMonths != nil && *f.MinAgeMonths < 0) || (f.MinWeight != nil && *f.MinWeight < 0) {
		return domain.Errorf(domain.KindValidation, "filters cannot be negative")
	}
	return nil
}
