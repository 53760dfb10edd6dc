package lifecycle

import "ContestScoreAPI/internal/models/domain"

// Actor classifies who asks for a submission status change.
type Actor int

const (
	// ActorOwner is the participant owning the submission.
	ActorOwner Actor = iota
	// ActorElevated holds canManageSubmissions on the contest.
	ActorElevated
	// ActorSystem is the automatic scoring completion.
	ActorSystem
)

func (a Actor) String() string {
	switch a {
	case ActorOwner:
		return "owner"
	case ActorElevated:
		return "elevated"
	case ActorSystem:
		return "system"
	}
	return "unknown"
}

type edge struct {
	from, to domain.SubmissionStatus
}

var submissionEdges = map[edge][]Actor{
	{domain.SubmissionDraft, domain.SubmissionSubmitted}:          {ActorOwner, ActorElevated},
	{domain.SubmissionDraft, domain.SubmissionDisqualified}:       {ActorElevated},
	{domain.SubmissionSubmitted, domain.SubmissionUnderReview}:    {ActorElevated},
	{domain.SubmissionSubmitted, domain.SubmissionJudged}:         {ActorElevated, ActorSystem},
	{domain.SubmissionSubmitted, domain.SubmissionDisqualified}:   {ActorElevated},
	{domain.SubmissionUnderReview, domain.SubmissionJudged}:       {ActorElevated, ActorSystem},
	{domain.SubmissionUnderReview, domain.SubmissionDisqualified}: {ActorElevated},
	{domain.SubmissionJudged, domain.SubmissionUnderReview}:       {ActorElevated},
	{domain.SubmissionJudged, domain.SubmissionDisqualified}:      {ActorElevated},
}

// CheckSubmissionTransition validates a status change requested by actor.
// A transition that exists but needs more privilege yields Forbidden.
func CheckSubmissionTransition(from, to domain.SubmissionStatus, actor Actor) error {
	actors, ok := submissionEdges[edge{from, to}]
	if !ok {
		return domain.Errorf(domain.KindInvalidStateTransition,
			"submission cannot move from %s to %s", from, to)
	}
	for _, a := range actors {
		if a == actor {
			return nil
		}
	}
	return domain.Errorf(domain.KindForbidden,
		"moving a submission from %s to %s needs elevated permission", from, to)
}

// Judgeable reports whether scores may be recorded for a submission in status s.
func Judgeable(s domain.SubmissionStatus) bool {
	switch s {
	case domain.SubmissionSubmitted, domain.SubmissionUnderReview, domain.SubmissionJudged:
		return true
	}
	return false
}

// OwnerEditable reports whether the owner may still edit or delete the submission.
func OwnerEditable(s domain.SubmissionStatus) bool {
	return s == domain.SubmissionDraft
}

// CheckParticipation rejects work on entries whose participation is no
// longer APPROVED.
func CheckParticipation(s domain.ParticipationStatus) error {
	if s != domain.ParticipationApproved {
		return domain.Errorf(domain.KindInvalidStateTransition,
			"participation is %s, only approved participants take part in judging", s)
	}
	return nil
}
