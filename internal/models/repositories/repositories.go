package repositories

import (
	"time"

	"github.com/google/uuid"
)

// Row types mirror table columns for sqlx scanning; the repository converts them to domain types.

type BaseModel struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type UserRow struct {
	BaseModel
	Name  string `db:"name"`
	Email string `db:"email"`
}

type ContestRow struct {
	BaseModel
	Name              string     `db:"name"`
	Description       string     `db:"description"`
	Type              string     `db:"type"`
	Status            string     `db:"status"`
	RegistrationStart *time.Time `db:"registration_start"`
	RegistrationEnd   *time.Time `db:"registration_end"`
	ContestStart      *time.Time `db:"contest_start"`
	ContestEnd        *time.Time `db:"contest_end"`
	ResultsPublished  *time.Time `db:"results_published"`
}

type ContestMemberRow struct {
	ContestID uuid.UUID `db:"contest_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

type CategoryRow struct {
	ID                       uuid.UUID `db:"id"`
	ContestID                uuid.UUID `db:"contest_id"`
	Name                     string    `db:"name"`
	Description              string    `db:"description"`
	DisplayOrder             int       `db:"display_order"`
	Filters                  []byte    `db:"filters"`
	MaxEntriesPerParticipant *int      `db:"max_entries_per_participant"`
	CreatedAt                time.Time `db:"created_at"`
}

type CriteriaRow struct {
	ID           uuid.UUID  `db:"id"`
	ContestID    *uuid.UUID `db:"contest_id"`
	CategoryID   *uuid.UUID `db:"category_id"`
	Name         string     `db:"name"`
	Description  string     `db:"description"`
	Weight       float64    `db:"weight"`
	MaxScore     int        `db:"max_score"`
	DisplayOrder int        `db:"display_order"`
	CreatedAt    time.Time  `db:"created_at"`
}

type ParticipationRow struct {
	ID           uuid.UUID  `db:"id"`
	ContestID    uuid.UUID  `db:"contest_id"`
	UserID       uuid.UUID  `db:"user_id"`
	Status       string     `db:"status"`
	RegisteredAt time.Time  `db:"registered_at"`
	ApprovedAt   *time.Time `db:"approved_at"`
	Notes        string     `db:"notes"`
}

type SubmissionRow struct {
	BaseModel
	ContestID       uuid.UUID  `db:"contest_id"`
	CategoryID      uuid.UUID  `db:"category_id"`
	ParticipationID uuid.UUID  `db:"participation_id"`
	OwnerID         uuid.UUID  `db:"owner_id"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	Status          string     `db:"status"`
	SubmittedAt     *time.Time `db:"submitted_at"`
	Metadata        []byte     `db:"metadata"`
	LivestockID     *uuid.UUID `db:"livestock_id"`
}

type MediaRow struct {
	ID           uuid.UUID `db:"id"`
	SubmissionID uuid.UUID `db:"submission_id"`
	URL          string    `db:"url"`
	Caption      string    `db:"caption"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

type LivestockRow struct {
	ID                 uuid.UUID  `db:"id"`
	OwnerID            uuid.UUID  `db:"owner_id"`
	Name               string     `db:"name"`
	Breed              string     `db:"breed"`
	Sex                string     `db:"sex"`
	BirthDate          *time.Time `db:"birth_date"`
	RegistrationNumber string     `db:"registration_number"`
}

type StatusChangeRow struct {
	ID           uuid.UUID  `db:"id"`
	SubmissionID uuid.UUID  `db:"submission_id"`
	FromStatus   string     `db:"from_status"`
	ToStatus     string     `db:"to_status"`
	ChangedBy    *uuid.UUID `db:"changed_by"`
	Reason       string     `db:"reason"`
	CreatedAt    time.Time  `db:"created_at"`
}

type JudgingScoreRow struct {
	BaseModel
	JudgeID      uuid.UUID `db:"judge_id"`
	SubmissionID uuid.UUID `db:"submission_id"`
	CriteriaID   uuid.UUID `db:"criteria_id"`
	Score        float64   `db:"score"`
	Comment      *string   `db:"comment"`
}
