package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"ContestScoreAPI/internal/authz"
	"ContestScoreAPI/internal/cache"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/realtime"
	"ContestScoreAPI/internal/repositories"

	"github.com/google/uuid"
)

type fixture struct {
	store      *repositories.InMemory
	contest    domain.Contest
	category   domain.Category
	other      domain.Category
	critA      domain.Criteria
	critB      domain.Criteria
	critOther  domain.Criteria
	submission domain.Submission
	entrant    domain.Participation
	owner      uuid.UUID
	judge1     uuid.UUID
	judge2     uuid.UUID
	manager    uuid.UUID
}

type recorder struct {
	events []realtime.Event
}

func (r *recorder) Broadcast(ev realtime.Event) { r.events = append(r.events, ev) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   repositories.NewInMemory(),
		owner:   uuid.New(),
		judge1:  uuid.New(),
		judge2:  uuid.New(),
		manager: uuid.New(),
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	f.contest = domain.Contest{ID: uuid.New(), Name: "County fair", Type: domain.ContestLivestock, Status: domain.ContestJudging}
	must(f.store.CreateContest(ctx, &f.contest))
	f.category = domain.Category{ID: uuid.New(), ContestID: f.contest.ID, Name: "Heifers"}
	must(f.store.CreateCategory(ctx, &f.category))
	f.other = domain.Category{ID: uuid.New(), ContestID: f.contest.ID, Name: "Bulls", DisplayOrder: 1}
	must(f.store.CreateCategory(ctx, &f.other))

	f.critA = domain.Criteria{ID: uuid.New(), Scope: domain.ContestWide(f.contest.ID), Name: "Conformation", Weight: 2, MaxScore: 100}
	must(f.store.CreateCriteria(ctx, &f.critA))
	f.critB = domain.Criteria{ID: uuid.New(), Scope: domain.CategoryScoped(f.category.ID), Name: "Udder", Weight: 1, MaxScore: 50}
	must(f.store.CreateCriteria(ctx, &f.critB))
	f.critOther = domain.Criteria{ID: uuid.New(), Scope: domain.CategoryScoped(f.other.ID), Name: "Muscling", Weight: 1, MaxScore: 100}
	must(f.store.CreateCriteria(ctx, &f.critOther))

	for id, role := range map[uuid.UUID]domain.Role{f.judge1: domain.RoleJudge, f.judge2: domain.RoleJudge, f.manager: domain.RoleManager} {
		m := domain.ContestMember{ContestID: f.contest.ID, UserID: id, Role: role}
		must(f.store.UpsertContestMember(ctx, &m))
	}

	f.entrant = domain.Participation{ID: uuid.New(), ContestID: f.contest.ID, UserID: f.owner, Status: domain.ParticipationApproved}
	must(f.store.CreateParticipation(ctx, &f.entrant))
	f.submission = domain.Submission{
		ID:              uuid.New(),
		ContestID:       f.contest.ID,
		CategoryID:      f.category.ID,
		ParticipationID: f.entrant.ID,
		OwnerID:         f.owner,
		Title:           "Daisy",
		Status:          domain.SubmissionSubmitted,
	}
	must(f.store.CreateSubmission(ctx, &f.submission))
	return f
}

func (f *fixture) service(policy CompletionPolicy, events realtime.Broadcaster) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := authz.NewRoleAuthorizer(log, f.store, nil)
	return New(log, f.store, a, policy, cache.Nop{}, events)
}

func TestRecordScoreUpsertsInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AnyJudge{}, realtime.Nop{})

	first, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 60})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	comment := "better on second look"
	second, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 72.5, Comment: &comment})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second score id = %s, want %s", second.ID, first.ID)
	}
	if second.Criteria.ID != f.critA.ID {
		t.Errorf("returned criteria = %s, want %s", second.Criteria.ID, f.critA.ID)
	}

	scores, err := svc.ListScores(ctx, f.owner, f.submission.ID)
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1", len(scores))
	}
	if scores[0].Score != 72.5 || scores[0].Comment == nil || *scores[0].Comment != comment {
		t.Errorf("stored score = %+v", scores[0])
	}
}

func TestRecordScoreRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AnyJudge{}, realtime.Nop{})

	foreignContest := domain.Contest{ID: uuid.New(), Name: "Other show", Type: domain.ContestLivestock, Status: domain.ContestJudging}
	if err := f.store.CreateContest(ctx, &foreignContest); err != nil {
		t.Fatal(err)
	}
	foreign := domain.Criteria{ID: uuid.New(), Scope: domain.ContestWide(foreignContest.ID), Name: "Foreign", Weight: 1, MaxScore: 10}
	if err := f.store.CreateCriteria(ctx, &foreign); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		judge      uuid.UUID
		submission uuid.UUID
		in         ScoreInput
		want       error
	}{
		{"not a judge", f.manager, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 10}, domain.ErrForbidden},
		{"unknown submission", f.judge1, uuid.New(), ScoreInput{CriteriaID: f.critA.ID, Score: 10}, domain.ErrNotFound},
		{"unknown criteria", f.judge1, f.submission.ID, ScoreInput{CriteriaID: uuid.New(), Score: 10}, domain.ErrNotFound},
		{"criteria of another contest", f.judge1, f.submission.ID, ScoreInput{CriteriaID: foreign.ID, Score: 5}, domain.ErrCriteriaNotInContest},
		{"criteria of another category", f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critOther.ID, Score: 5}, domain.ErrCriteriaNotInContest},
		{"above max", f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critB.ID, Score: 50.5}, domain.ErrInvalidScore},
		{"negative", f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: -1}, domain.ErrInvalidScore},
		{"not a number", f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: math.NaN()}, domain.ErrInvalidScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordScore(ctx, tt.judge, tt.submission, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("RecordScore error = %v, want %v", err, tt.want)
			}
		})
	}

	scores, err := f.store.GetScoresBySubmissionID(ctx, f.submission.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("rejected scores were stored: %+v", scores)
	}
}

func TestRecordScoreBoundsAreInclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AllJudges{}, realtime.Nop{})

	if _, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 0}); err != nil {
		t.Errorf("score 0: %v", err)
	}
	if _, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critB.ID, Score: 50}); err != nil {
		t.Errorf("score equal to max: %v", err)
	}
}

func TestRecordScoreRequiresJudgingContest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AnyJudge{}, realtime.Nop{})

	if _, err := f.store.UpdateContestStatus(ctx, f.contest.ID, domain.ContestJudging, domain.ContestCancelled); err != nil {
		t.Fatal(err)
	}
	_, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 10})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("RecordScore on cancelled contest = %v, want invalid state transition", err)
	}
}

func TestRecordScoreRejectsDraftSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AnyJudge{}, realtime.Nop{})

	if err := f.store.UpdateSubmissionStatus(ctx, f.submission.ID, domain.SubmissionDraft, nil); err != nil {
		t.Fatal(err)
	}
	_, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 10})
	if !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Errorf("RecordScore on draft = %v, want invalid state transition", err)
	}
}

func TestRecordScoreRequiresApprovedParticipation(t *testing.T) {
	for _, status := range []domain.ParticipationStatus{domain.ParticipationWithdrawn, domain.ParticipationRejected} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			svc := f.service(AnyJudge{}, realtime.Nop{})

			if err := f.store.UpdateParticipationStatus(ctx, f.entrant.ID, status, nil); err != nil {
				t.Fatal(err)
			}
			_, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 50})
			if !errors.Is(err, domain.ErrInvalidStateTransition) {
				t.Errorf("RecordScore with %s participation = %v, want invalid state transition", status, err)
			}
			scores, _ := f.store.GetScoresBySubmissionID(ctx, f.submission.ID)
			if len(scores) != 0 {
				t.Errorf("score stored for %s participation", status)
			}
		})
	}
}

func TestLastCriterionJudgesSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	events := &recorder{}
	svc := f.service(AnyJudge{}, events)

	res, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critA.ID, Score: 80})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubmissionStatus != domain.SubmissionSubmitted {
		t.Fatalf("status after first criterion = %s, want SUBMITTED", res.SubmissionStatus)
	}

	res, err = svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: f.critB.ID, Score: 40})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubmissionStatus != domain.SubmissionJudged {
		t.Errorf("returned status = %s, want JUDGED", res.SubmissionStatus)
	}

	sub, err := f.store.GetSubmissionByID(ctx, f.submission.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Status != domain.SubmissionJudged {
		t.Errorf("stored status = %s, want JUDGED", sub.Status)
	}

	history, err := f.store.GetStatusChangesBySubmissionID(ctx, f.submission.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].To != domain.SubmissionJudged || history[0].ChangedBy != nil {
		t.Errorf("history = %+v, want one system change to JUDGED", history)
	}

	var types []string
	for _, ev := range events.events {
		types = append(types, ev.Type)
	}
	want := []string{realtime.EventScoreRecorded, realtime.EventScoreRecorded, realtime.EventSubmissionJudged}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestAllJudgesPolicyWaitsForEveryJudge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AllJudges{}, realtime.Nop{})

	for _, c := range []uuid.UUID{f.critA.ID, f.critB.ID} {
		if _, err := svc.RecordScore(ctx, f.judge1, f.submission.ID, ScoreInput{CriteriaID: c, Score: 10}); err != nil {
			t.Fatal(err)
		}
	}
	sub, _ := f.store.GetSubmissionByID(ctx, f.submission.ID)
	if sub.Status != domain.SubmissionSubmitted {
		t.Fatalf("status after one judge = %s, want SUBMITTED", sub.Status)
	}

	for _, c := range []uuid.UUID{f.critA.ID, f.critB.ID} {
		if _, err := svc.RecordScore(ctx, f.judge2, f.submission.ID, ScoreInput{CriteriaID: c, Score: 20}); err != nil {
			t.Fatal(err)
		}
	}
	sub, _ = f.store.GetSubmissionByID(ctx, f.submission.ID)
	if sub.Status != domain.SubmissionJudged {
		t.Errorf("status after all judges = %s, want JUDGED", sub.Status)
	}
}

func TestListScoresVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(AnyJudge{}, realtime.Nop{})

	if _, err := svc.ListScores(ctx, f.manager, f.submission.ID); err != nil {
		t.Errorf("manager ListScores: %v", err)
	}
	if _, err := svc.ListScores(ctx, f.judge2, f.submission.ID); err != nil {
		t.Errorf("judge ListScores: %v", err)
	}
	if _, err := svc.ListScores(ctx, uuid.New(), f.submission.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("stranger ListScores = %v, want forbidden", err)
	}
}

func TestPolicies(t *testing.T) {
	judgeA, judgeB := uuid.New(), uuid.New()
	c1, c2 := uuid.New(), uuid.New()
	scores := []domain.JudgingScore{
		{JudgeID: judgeA, CriteriaID: c1},
		{JudgeID: judgeA, CriteriaID: c2},
		{JudgeID: judgeB, CriteriaID: c1},
	}
	state := CompletionState{Judge: judgeA, Criteria: []uuid.UUID{c1, c2}, Judges: []uuid.UUID{judgeA, judgeB}, Scores: scores}

	tests := []struct {
		name   string
		policy CompletionPolicy
		state  CompletionState
		want   bool
	}{
		{"any judge complete", AnyJudge{}, state, true},
		{"any judge other judge incomplete", AnyJudge{}, CompletionState{Judge: judgeB, Criteria: state.Criteria, Scores: scores}, false},
		{"all judges incomplete", AllJudges{}, state, false},
		{"quorum of one", Quorum{N: 1}, state, true},
		{"quorum of two", Quorum{N: 2}, state, false},
		{"no criteria", AnyJudge{}, CompletionState{Judge: judgeA, Scores: scores}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Complete(tt.state); got != tt.want {
				t.Errorf("Complete = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("quorum", 3)
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	if q, ok := p.(Quorum); !ok || q.N != 3 {
		t.Errorf("ParsePolicy(quorum, 3) = %#v", p)
	}
	if _, err := ParsePolicy("quorum", 0); err == nil {
		t.Error("ParsePolicy(quorum, 0) succeeded")
	}
	if _, err := ParsePolicy("majority", 0); err == nil {
		t.Error("ParsePolicy(majority) succeeded")
	}
	if p, _ := ParsePolicy("", 0); p.Name() != PolicyAnyJudge {
		t.Errorf("default policy = %s", p.Name())
	}
}
