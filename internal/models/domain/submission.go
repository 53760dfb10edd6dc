package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the judging state of an entry.
type SubmissionStatus string

const (
	SubmissionDraft        SubmissionStatus = "DRAFT"
	SubmissionSubmitted    SubmissionStatus = "SUBMITTED"
	SubmissionUnderReview  SubmissionStatus = "UNDER_REVIEW"
	SubmissionJudged       SubmissionStatus = "JUDGED"
	SubmissionDisqualified SubmissionStatus = "DISQUALIFIED"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionDraft, SubmissionSubmitted, SubmissionUnderReview,
		SubmissionJudged, SubmissionDisqualified:
		return true
	}
	return false
}

// Submission is one participation's entry into one category.
type Submission struct {
	ID              uuid.UUID        `json:"id"`
	ContestID       uuid.UUID        `json:"contestId"`
	CategoryID      uuid.UUID        `json:"categoryId"`
	ParticipationID uuid.UUID        `json:"participationId"`
	OwnerID         uuid.UUID        `json:"ownerId"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Status          SubmissionStatus `json:"status"`
	SubmittedAt     *time.Time       `json:"submittedAt,omitempty"`
	Metadata        Metadata         `json:"metadata,omitempty"`
	LivestockID     *uuid.UUID       `json:"livestockId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Media is an image or video reference attached to a submission.
type Media struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submissionId"`
	URL          string    `json:"url"`
	Caption      string    `json:"caption"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Livestock is an animal record an entry may be linked to.
type Livestock struct {
	ID                 uuid.UUID  `json:"id"`
	OwnerID            uuid.UUID  `json:"ownerId"`
	Name               string     `json:"name"`
	Breed              string     `json:"breed"`
	Sex                string     `json:"sex"`
	BirthDate          *time.Time `json:"birthDate,omitempty"`
	RegistrationNumber string     `json:"registrationNumber"`
}

// StatusChange is one audit row of a submission's status history.
// ChangedBy is nil for automatic transitions.
type StatusChange struct {
	ID           uuid.UUID        `json:"id"`
	SubmissionID uuid.UUID        `json:"submissionId"`
	From         SubmissionStatus `json:"from"`
	To           SubmissionStatus `json:"to"`
	ChangedBy    *uuid.UUID       `json:"changedBy,omitempty"`
	Reason       string           `json:"reason"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// JudgingScore is one judge's score for one (submission, criteria) pair.
type JudgingScore struct {
	ID           uuid.UUID `json:"id"`
	JudgeID      uuid.UUID `json:"judgeId"`
	SubmissionID uuid.UUID `json:"submissionId"`
	CriteriaID   uuid.UUID `json:"criteriaId"`
	Score        float64   `json:"score"`
	Comment      *string   `json:"comments,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
