package scoring

import (
	"fmt"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

const (
	PolicyAnyJudge  = "any_judge"
	PolicyAllJudges = "all_judges"
	PolicyQuorum    = "quorum"
)

// CompletionState is what a policy sees right after a score was recorded.
type CompletionState struct {
	// Judge is the judge whose score triggered the check.
	Judge uuid.UUID
	// Criteria are the criteria applicable to the submission.
	Criteria []uuid.UUID
	// Judges are the JUDGE members of the contest.
	Judges []uuid.UUID
	Scores []domain.JudgingScore
}

// covered returns the judges that scored every applicable criterion.
func (s CompletionState) covered() map[uuid.UUID]bool {
	scored := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, sc := range s.Scores {
		if scored[sc.JudgeID] == nil {
			scored[sc.JudgeID] = make(map[uuid.UUID]bool)
		}
		scored[sc.JudgeID][sc.CriteriaID] = true
	}

	out := make(map[uuid.UUID]bool, len(scored))
	for judge, crit := range scored {
		complete := true
		for _, c := range s.Criteria {
			if !crit[c] {
				complete = false
				break
			}
		}
		if complete {
			out[judge] = true
		}
	}
	return out
}

// CompletionPolicy decides when a submission counts as fully judged.
type CompletionPolicy interface {
	Name() string
	// NeedsJudges reports whether Complete reads CompletionState.Judges.
	NeedsJudges() bool
	Complete(state CompletionState) bool
}

// AnyJudge completes as soon as the scoring judge covered every criterion.
type AnyJudge struct{}

func (AnyJudge) Name() string      { return PolicyAnyJudge }
func (AnyJudge) NeedsJudges() bool { return false }

func (AnyJudge) Complete(state CompletionState) bool {
	if len(state.Criteria) == 0 {
		return false
	}
	return state.covered()[state.Judge]
}

// AllJudges waits for every JUDGE member, plus the scoring judge, to cover every criterion.
type AllJudges struct{}

func (AllJudges) Name() string      { return PolicyAllJudges }
func (AllJudges) NeedsJudges() bool { return true }

func (AllJudges) Complete(state CompletionState) bool {
	if len(state.Criteria) == 0 {
		return false
	}
	covered := state.covered()
	if !covered[state.Judge] {
		return false
	}
	for _, j := range state.Judges {
		if !covered[j] {
			return false
		}
	}
	return true
}

// Quorum completes once N distinct judges covered every criterion.
type Quorum struct {
	N int
}

func (q Quorum) Name() string    { return PolicyQuorum }
func (Quorum) NeedsJudges() bool { return false }

func (q Quorum) Complete(state CompletionState) bool {
	if len(state.Criteria) == 0 {
		return false
	}
	return len(state.covered()) >= q.N
}

// ParsePolicy builds the policy configured under judging.completionPolicy.
func ParsePolicy(name string, quorum int) (CompletionPolicy, error) {
	switch name {
	case "", PolicyAnyJudge:
		return AnyJudge{}, nil
	case PolicyAllJudges:
		return AllJudges{}, nil
	case PolicyQuorum:
		if quorum < 1 {
			return nil, fmt.Errorf("quorum must be at least 1, got %d", quorum)
		}
		return Quorum{N: quorum}, nil
	}
	return nil, fmt.Errorf("unknown completion policy %q", name)
}
