package submissions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"

	"github.com/google/uuid"
)

type recorder struct {
	events []realtime.Event
}

func (r *recorder) Broadcast(ev realtime.Event) { r.events = append(r.events, ev) }

type fixture struct {
	store    *repositories.InMemory
	svc      *Service
	parts    *Participations
	events   *recorder
	contest  domain.Contest
	category domain.Category
	owner    uuid.UUID
	manager  uuid.UUID
	judge    uuid.UUID
	part     *domain.Participation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:   repositories.NewInMemory(),
		events:  &recorder{},
		owner:   uuid.New(),
		manager: uuid.New(),
		judge:   uuid.New(),
	}
	a := authz.NewRoleAuthorizer(log, f.store, nil)
	f.svc = New(log, f.store, a, cache.Nop{}, f.events)
	f.parts = NewParticipations(log, f.store, a)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	f.contest = domain.Contest{ID: uuid.New(), Name: "Dairy show", Type: domain.ContestLivestock, Status: domain.ContestRegistrationOpen}
	must(f.store.CreateContest(ctx, &f.contest))
	minAge, limit := 6, 2
	f.category = domain.Category{
		ID:                       uuid.New(),
		ContestID:                f.contest.ID,
		Name:                     "Heifers",
		Filters:                  domain.CategoryFilters{MinAgeMonths: &minAge},
		MaxEntriesPerParticipant: &limit,
	}
	must(f.store.CreateCategory(ctx, &f.category))
	for id, role := range map[uuid.UUID]domain.Role{f.manager: domain.RoleManager, f.judge: domain.RoleJudge} {
		m := domain.ContestMember{ContestID: f.contest.ID, UserID: id, Role: role}
		must(f.store.UpsertContestMember(ctx, &m))
	}

	part, err := f.parts.Register(ctx, f.owner, f.contest.ID, "")
	must(err)
	admin := uuid.New()
	must(f.store.UpsertContestMember(ctx, &domain.ContestMember{ContestID: f.contest.ID, UserID: admin, Role: domain.RoleAdmin}))
	f.part, err = f.parts.Decide(ctx, admin, f.contest.ID, part.ID, domain.ParticipationApproved)
	must(err)
	return f
}

func (f *fixture) draft(t *testing.T) *domain.Submission {
	t.Helper()
	sub, err := f.svc.Create(context.Background(), f.owner, f.contest.ID, CreateInput{
		CategoryID: f.category.ID,
		Title:      "Daisy",
		Metadata:   []byte(`{"breed":"Holstein","sex":"FEMALE","ageMonths":14,"weightKg":420}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sub
}

func TestCreateSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub := f.draft(t)
	if sub.Status != domain.SubmissionDraft || sub.SubmittedAt != nil {
		t.Errorf("new submission = %s submittedAt=%v, want DRAFT without timestamp", sub.Status, sub.SubmittedAt)
	}
	md, ok := sub.Metadata.(domain.LivestockMetadata)
	if !ok || md.Breed != "Holstein" {
		t.Errorf("metadata = %#v", sub.Metadata)
	}

	rival := domain.Contest{ID: uuid.New(), Name: "Spring show", Type: domain.ContestLivestock, Status: domain.ContestRegistrationOpen}
	if err := f.store.CreateContest(ctx, &rival); err != nil {
		t.Fatal(err)
	}
	foreign := domain.Category{ID: uuid.New(), ContestID: rival.ID, Name: "Calves"}
	if err := f.store.CreateCategory(ctx, &foreign); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		user uuid.UUID
		in   CreateInput
		want error
	}{
		{"stranger", uuid.New(), CreateInput{CategoryID: f.category.ID, Title: "X"}, domain.ErrForbidden},
		{"missing title", f.owner, CreateInput{CategoryID: f.category.ID}, domain.ErrValidation},
		{"missing category", f.owner, CreateInput{Title: "X"}, domain.ErrValidation},
		{"unknown category", f.owner, CreateInput{CategoryID: uuid.New(), Title: "X"}, domain.ErrNotFound},
		{"category of another contest", f.owner, CreateInput{CategoryID: foreign.ID, Title: "X"}, domain.ErrNotFound},
		{"too young", f.owner, CreateInput{CategoryID: f.category.ID, Title: "X", Metadata: []byte(`{"breed":"Jersey","ageMonths":2}`)}, domain.ErrValidation},
		{"coffee fields in livestock contest", f.owner, CreateInput{CategoryID: f.category.ID, Title: "X", Metadata: []byte(`{"variety":"Caturra"}`)}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tt.user, f.contest.ID, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Create = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateRespectsCategoryCap(t *testing.T) {
	f := newFixture(t)
	f.draft(t)
	f.draft(t)

	_, err := f.svc.Create(context.Background(), f.owner, f.contest.ID, CreateInput{CategoryID: f.category.ID, Title: "Third"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("third entry = %v, want validation error", err)
	}
}

func TestCreateRequiresApprovedParticipation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pending := uuid.New()
	if _, err := f.parts.Register(ctx, pending, f.contest.ID, "first show"); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Create(ctx, pending, f.contest.ID, CreateInput{CategoryID: f.category.ID, Title: "Early"})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("Create with pending participation = %v, want invalid state transition", err)
	}
}

func TestCreateRequiresOpenContest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.store.UpdateContestStatus(ctx, f.contest.ID, domain.ContestRegistrationOpen, domain.ContestRegistrationClosed); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Create(ctx, f.owner, f.contest.ID, CreateInput{CategoryID: f.category.ID, Title: "Late"})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("Create while registration closed = %v, want invalid state transition", err)
	}
}

func TestSubmitStampsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return first }
	sub := f.draft(t)

	if _, err := f.svc.Submit(ctx, f.manager, sub.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Submit by non-owner = %v, want forbidden", err)
	}
	got, err := f.svc.Submit(ctx, f.owner, sub.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Status != domain.SubmissionSubmitted || got.SubmittedAt == nil || !got.SubmittedAt.Equal(first) {
		t.Fatalf("after submit = %s at %v", got.Status, got.SubmittedAt)
	}
	if _, err := f.svc.Submit(ctx, f.owner, sub.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("second submit = %v, want invalid state transition", err)
	}

	f.svc.now = func() time.Time { return first.Add(24 * time.Hour) }
	for _, to := range []domain.SubmissionStatus{domain.SubmissionUnderReview, domain.SubmissionJudged, domain.SubmissionUnderReview} {
		if _, err := f.svc.Transition(ctx, f.manager, sub.ID, to, "review"); err != nil {
			t.Fatalf("Transition to %s: %v", to, err)
		}
	}
	stored, _ := f.store.GetSubmissionByID(ctx, sub.ID)
	if !stored.SubmittedAt.Equal(first) {
		t.Errorf("submittedAt changed to %v", stored.SubmittedAt)
	}

	history, err := f.svc.History(ctx, f.owner, sub.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %d rows, want 4", len(history))
	}
	if history[0].From != domain.SubmissionDraft || history[0].To != domain.SubmissionSubmitted {
		t.Errorf("first history row = %s -> %s", history[0].From, history[0].To)
	}
	if history[1].ChangedBy == nil || *history[1].ChangedBy != f.manager {
		t.Errorf("second history row changed by %v, want manager", history[1].ChangedBy)
	}
}

func TestSubmitRequiresApprovedParticipation(t *testing.T) {
	for _, status := range []domain.ParticipationStatus{domain.ParticipationWithdrawn, domain.ParticipationRejected} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			sub := f.draft(t)

			if err := f.store.UpdateParticipationStatus(ctx, f.part.ID, status, f.part.ApprovedAt); err != nil {
				t.Fatal(err)
			}
			if _, err := f.svc.Submit(ctx, f.owner, sub.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
				t.Errorf("Submit with %s participation = %v, want invalid state transition", status, err)
			}
			stored, _ := f.store.GetSubmissionByID(ctx, sub.ID)
			if stored.Status != domain.SubmissionDraft {
				t.Errorf("status = %s, want DRAFT", stored.Status)
			}
		})
	}
}

func TestTransitionRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)

	if _, err := f.svc.Transition(ctx, f.owner, sub.ID, domain.SubmissionDisqualified, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("owner transition = %v, want forbidden", err)
	}
	if _, err := f.svc.Transition(ctx, f.judge, sub.ID, domain.SubmissionDisqualified, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("judge transition = %v, want forbidden", err)
	}
	if _, err := f.svc.Transition(ctx, f.manager, sub.ID, domain.SubmissionJudged, ""); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("DRAFT -> JUDGED = %v, want invalid state transition", err)
	}
	if _, err := f.svc.Transition(ctx, f.manager, sub.ID, "ARCHIVED", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown status = %v, want validation", err)
	}

	got, err := f.svc.Transition(ctx, f.manager, sub.ID, domain.SubmissionDisqualified, "wrong paperwork")
	if err != nil {
		t.Fatalf("disqualify: %v", err)
	}
	if got.Status != domain.SubmissionDisqualified {
		t.Errorf("status = %s", got.Status)
	}
	for _, to := range []domain.SubmissionStatus{domain.SubmissionSubmitted, domain.SubmissionUnderReview, domain.SubmissionJudged} {
		if _, err := f.svc.Transition(ctx, f.manager, sub.ID, to, ""); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Errorf("DISQUALIFIED -> %s = %v, want invalid state transition", to, err)
		}
	}
}

func TestTransitionToJudgedBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)
	if _, err := f.svc.Submit(ctx, f.owner, sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Transition(ctx, f.manager, sub.ID, domain.SubmissionJudged, "manual"); err != nil {
		t.Fatal(err)
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != realtime.EventSubmissionJudged {
		t.Errorf("events = %+v, want one submission_judged", f.events.events)
	}
}

func TestUpdateOnlyDraftsByOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)

	title := "Daisy II"
	got, err := f.svc.Update(ctx, f.owner, sub.ID, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != title {
		t.Errorf("title = %q", got.Title)
	}
	if _, err := f.svc.Update(ctx, f.manager, sub.ID, UpdateInput{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Update by manager = %v, want forbidden", err)
	}

	if _, err := f.svc.Submit(ctx, f.owner, sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Update(ctx, f.owner, sub.ID, UpdateInput{Title: &title}); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("Update after submit = %v, want invalid state transition", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)

	if _, err := f.svc.AddMedia(ctx, f.owner, sub.ID, MediaInput{URL: "https://cdn.example.org/daisy.jpg"}); err != nil {
		t.Fatalf("AddMedia: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.owner, sub.ID); err != nil {
		t.Fatal(err)
	}
	score := domain.JudgingScore{JudgeID: f.judge, SubmissionID: sub.ID, CriteriaID: uuid.New(), Score: 80}
	if err := f.store.UpsertScore(ctx, &score); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, f.owner, sub.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("owner deleting submitted entry = %v, want invalid state transition", err)
	}
	if err := f.svc.Delete(ctx, f.manager, sub.ID); err != nil {
		t.Fatalf("Delete by manager: %v", err)
	}

	if _, err := f.store.GetSubmissionByID(ctx, sub.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("submission still present: %v", err)
	}
	scores, _ := f.store.GetScoresBySubmissionID(ctx, sub.ID)
	media, _ := f.store.GetMediaBySubmissionIDs(ctx, []uuid.UUID{sub.ID})
	history, _ := f.store.GetStatusChangesBySubmissionID(ctx, sub.ID)
	if len(scores) != 0 || len(media[sub.ID]) != 0 || len(history) != 0 {
		t.Errorf("dependents left: %d scores, %d media, %d history", len(scores), len(media[sub.ID]), len(history))
	}
}

func TestOwnerDeletesDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)

	if err := f.svc.Delete(ctx, f.judge, sub.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Delete by judge = %v, want forbidden", err)
	}
	if err := f.svc.Delete(ctx, f.owner, sub.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.owner, sub.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

// staleReads serves an outdated copy of one submission outside transactions,
// as a concurrent Submit committing after the first read would.
type staleReads struct {
	*repositories.InMemory
	stale domain.Submission
}

func (s staleReads) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	if id != s.stale.ID {
		return s.InMemory.GetSubmissionByID(ctx, id)
	}
	c := s.stale
	return &c, nil
}

func TestOwnerDeleteChecksLockedRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)
	outdated := *sub
	if _, err := f.svc.Submit(ctx, f.owner, sub.ID); err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := staleReads{InMemory: f.store, stale: outdated}
	svc := New(log, store, authz.NewRoleAuthorizer(log, f.store, nil), cache.Nop{}, f.events)

	if err := svc.Delete(ctx, f.owner, sub.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("Delete of submitted entry = %v, want invalid state transition", err)
	}
	if _, err := f.store.GetSubmissionByID(ctx, sub.ID); err != nil {
		t.Errorf("submission removed: %v", err)
	}
}

func TestVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.draft(t)

	other := uuid.New()
	if _, err := f.parts.Register(ctx, other, f.contest.ID, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Get(ctx, other, sub.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Get by other participant = %v, want forbidden", err)
	}
	d, err := f.svc.Get(ctx, f.judge, sub.ID)
	if err != nil {
		t.Fatalf("Get by judge: %v", err)
	}
	if d.Media == nil {
		t.Error("media is nil, want empty slice")
	}

	mine, err := f.svc.ListByContest(ctx, other, f.contest.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 0 {
		t.Errorf("other participant sees %d submissions, want 0", len(mine))
	}
	all, err := f.svc.ListByContest(ctx, f.manager, f.contest.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("manager sees %d submissions, want 1", len(all))
	}
	submitted := domain.SubmissionSubmitted
	filtered, _ := f.svc.ListByContest(ctx, f.manager, f.contest.ID, &submitted)
	if len(filtered) != 0 {
		t.Errorf("SUBMITTED filter returned %d drafts", len(filtered))
	}
}

func TestAddMediaValidatesURL(t *testing.T) {
	f := newFixture(t)
	sub := f.draft(t)
	for _, raw := range []string{"", "cdn.example.org/a.jpg", "ftp://cdn.example.org/a.jpg", "https://"} {
		if _, err := f.svc.AddMedia(context.Background(), f.owner, sub.ID, MediaInput{URL: raw}); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("AddMedia(%q) = %v, want validation", raw, err)
		}
	}
}

func TestLivestockOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	theirs, err := f.svc.CreateLivestock(ctx, uuid.New(), LivestockInput{Name: "Bella", Breed: "Angus", Sex: "FEMALE"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Create(ctx, f.owner, f.contest.ID, CreateInput{CategoryID: f.category.ID, Title: "Bella", LivestockID: &theirs.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("linking someone else's animal = %v, want forbidden", err)
	}

	mine, err := f.svc.CreateLivestock(ctx, f.owner, LivestockInput{Name: "Rosa"})
	if err != nil {
		t.Fatal(err)
	}
	sub, err := f.svc.Create(ctx, f.owner, f.contest.ID, CreateInput{CategoryID: f.category.ID, Title: "Rosa", LivestockID: &mine.ID})
	if err != nil {
		t.Fatalf("Create with own animal: %v", err)
	}
	if sub.LivestockID == nil || *sub.LivestockID != mine.ID {
		t.Errorf("livestock link = %v", sub.LivestockID)
	}

	if _, err := f.svc.CreateLivestock(ctx, f.owner, LivestockInput{Name: "Bad", Sex: "UNKNOWN"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad sex = %v, want validation", err)
	}
}

func TestParticipationFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if f.part.Status != domain.ParticipationApproved || f.part.ApprovedAt == nil {
		t.Fatalf("fixture participation = %+v", f.part)
	}
	if _, err := f.parts.Register(ctx, f.owner, f.contest.ID, ""); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("duplicate registration = %v, want invalid state transition", err)
	}

	user := uuid.New()
	p, err := f.parts.Register(ctx, user, f.contest.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.parts.Decide(ctx, f.manager, f.contest.ID, p.ID, domain.ParticipationApproved); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("decide by manager = %v, want forbidden", err)
	}
	if _, err := f.parts.Decide(ctx, f.owner, uuid.New(), p.ID, domain.ParticipationApproved); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("decide under other contest = %v, want not found", err)
	}
	if _, err := f.parts.Withdraw(ctx, f.owner, f.contest.ID, p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("withdraw by other user = %v, want forbidden", err)
	}
	got, err := f.parts.Withdraw(ctx, user, f.contest.ID, p.ID)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got.Status != domain.ParticipationWithdrawn {
		t.Errorf("status = %s", got.Status)
	}

	approved, err := f.parts.Withdraw(ctx, f.owner, f.contest.ID, f.part.ID)
	if err != nil {
		t.Fatalf("Withdraw approved: %v", err)
	}
	stored, _ := f.store.GetParticipationByID(ctx, f.part.ID)
	if approved.ApprovedAt == nil || stored.ApprovedAt == nil || !stored.ApprovedAt.Equal(*f.part.ApprovedAt) {
		t.Errorf("approvedAt after withdraw = %v, want %v", stored.ApprovedAt, f.part.ApprovedAt)
	}
	if _, err := f.parts.Withdraw(ctx, user, f.contest.ID, p.ID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("second withdraw = %v, want invalid state transition", err)
	}

	if _, err := f.store.UpdateContestStatus(ctx, f.contest.ID, domain.ContestRegistrationOpen, domain.ContestRegistrationClosed); err != nil {
		t.Fatal(err)
	}
	if _, err := f.parts.Register(ctx, uuid.New(), f.contest.ID, ""); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("registration while closed = %v, want invalid state transition", err)
	}
}
