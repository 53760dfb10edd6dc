package results

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/repositories"

	"github.com/google/uuid"
)

func TestContestResultsVisibility(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewInMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(log, store, authz.NewRoleAuthorizer(log, store, nil), cache.Nop{})

	contest := domain.Contest{ID: uuid.New(), Name: "Coffee cup", Type: domain.ContestCoffeeProducts, Status: domain.ContestJudging}
	if err := store.CreateContest(ctx, &contest); err != nil {
		t.Fatal(err)
	}
	judge, public := uuid.New(), uuid.New()
	m := domain.ContestMember{ContestID: contest.ID, UserID: judge, Role: domain.RoleJudge}
	if err := store.UpsertContestMember(ctx, &m); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ContestResults(ctx, judge, contest.ID); err != nil {
		t.Errorf("judge before publish: %v", err)
	}
	if _, err := svc.ContestResults(ctx, public, contest.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("public before publish = %v, want forbidden", err)
	}
	if _, err := svc.ContestResults(ctx, public, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown contest = %v, want not found", err)
	}

	if _, err := store.PublishContestResults(ctx, contest.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ContestResults(ctx, public, contest.ID); err != nil {
		t.Errorf("public after publish: %v", err)
	}
}

func TestResultsReadsStoreWithoutMutation(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewInMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(log, store, authz.NewRoleAuthorizer(log, store, nil), cache.Nop{})

	contest := domain.Contest{ID: uuid.New(), Name: "Show", Type: domain.ContestLivestock, Status: domain.ContestJudging}
	if err := store.CreateContest(ctx, &contest); err != nil {
		t.Fatal(err)
	}
	cat := domain.Category{ID: uuid.New(), ContestID: contest.ID, Name: "Heifers"}
	if err := store.CreateCategory(ctx, &cat); err != nil {
		t.Fatal(err)
	}
	crit := domain.Criteria{ID: uuid.New(), Scope: domain.ContestWide(contest.ID), Name: "Type", Weight: 1, MaxScore: 100}
	if err := store.CreateCriteria(ctx, &crit); err != nil {
		t.Fatal(err)
	}
	owner := uuid.New()
	user := domain.User{ID: owner, Name: "Ana"}
	if err := store.UpsertUser(ctx, &user); err != nil {
		t.Fatal(err)
	}
	sub := domain.Submission{ID: uuid.New(), ContestID: contest.ID, CategoryID: cat.ID, OwnerID: owner, Title: "Luna", Status: domain.SubmissionJudged}
	if err := store.CreateSubmission(ctx, &sub); err != nil {
		t.Fatal(err)
	}
	score := domain.JudgingScore{JudgeID: uuid.New(), SubmissionID: sub.ID, CriteriaID: crit.ID, Score: 88}
	if err := store.UpsertScore(ctx, &score); err != nil {
		t.Fatal(err)
	}

	first, err := svc.Results(ctx, contest.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	second, err := svc.Results(ctx, contest.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("results changed between two reads of unchanged data")
	}
	got := first.Categories[0].Submissions[0]
	if got.TotalScore != 88 || got.ParticipantName != "Ana" {
		t.Errorf("submission result = %+v", got)
	}

	after, _ := store.GetSubmissionByID(ctx, sub.ID)
	if after.Status != domain.SubmissionJudged || !after.UpdatedAt.Equal(sub.UpdatedAt) {
		t.Errorf("submission mutated by results computation: %+v", after)
	}
}
