package lifecycle

import "ContestScoreAPI/internal/models/domain"

var contestNext = map[domain.ContestStatus]domain.ContestStatus{
	domain.ContestDraft:              domain.ContestRegistrationOpen,
	domain.ContestRegistrationOpen:   domain.ContestRegistrationClosed,
	domain.ContestRegistrationClosed: domain.ContestJudging,
	domain.ContestJudging:            domain.ContestCompleted,
}

// NextContestStatus returns the single forward step from s, if any.
func NextContestStatus(s domain.ContestStatus) (domain.ContestStatus, bool) {
	next, ok := contestNext[s]
	return next, ok
}

// CheckContestTransition validates a contest status change.
// Forward moves are one step at a time; CANCELLED is reachable from every
// state except COMPLETED and CANCELLED.
func CheckContestTransition(from, to domain.ContestStatus) error {
	if to == domain.ContestCancelled {
		if from == domain.ContestCompleted || from == domain.ContestCancelled {
			return domain.Errorf(domain.KindInvalidStateTransition,
				"contest in status %s cannot be cancelled", from)
		}
		return nil
	}
	if next, ok := contestNext[from]; ok && next == to {
		return nil
	}
	return domain.Errorf(domain.KindInvalidStateTransition,
		"contest cannot move from %s to %s", from, to)
}

// CanAcceptSubmissions reports whether participants may create or submit entries.
func CanAcceptSubmissions(c *domain.Contest) bool {
	return c.Status == domain.ContestRegistrationOpen || c.Status == domain.ContestJudging
}

// CanRegister reports whether users may register as participants.
func CanRegister(c *domain.Contest) bool {
	return c.Status == domain.ContestRegistrationOpen
}

// CanScore reports whether judges may record scores.
func CanScore(c *domain.Contest) bool {
	return c.Status == domain.ContestJudging
}

// CanPublishResults reports whether results may be published now.
func CanPublishResults(c *domain.Contest) bool {
	return c.Status == domain.ContestJudging
}
