package repositories

import (
	"context"
	"time"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

// Store is the record store used by the services. Both the Postgres
// Repository and InMemory implement it.
type Store interface {
	// InTx runs fn inside one read-write transaction. Any error rolls everything back.
	InTx(ctx context.Context, fn func(Store) error) error
	// InSnapshot runs fn inside a read-only transaction that sees one consistent snapshot.
	InSnapshot(ctx context.Context, fn func(Store) error) error

	UpsertUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]domain.User, error)

	CreateContest(ctx context.Context, contest *domain.Contest) error
	GetContestByID(ctx context.Context, contestID uuid.UUID) (*domain.Contest, error)
	// UpdateContestStatus changes the status only if it is still from; it reports whether a row changed.
	UpdateContestStatus(ctx context.Context, contestID uuid.UUID, from, to domain.ContestStatus) (bool, error)
	// PublishContestResults moves a JUDGING contest to COMPLETED and stamps publishedAt.
	PublishContestResults(ctx context.Context, contestID uuid.UUID, publishedAt time.Time) (bool, error)

	UpsertContestMember(ctx context.Context, member *domain.ContestMember) error
	GetContestMemberRoles(ctx context.Context, contestID, userID uuid.UUID) ([]domain.Role, error)
	GetContestMemberIDsByRole(ctx context.Context, contestID uuid.UUID, role domain.Role) ([]uuid.UUID, error)

	CreateCategory(ctx context.Context, category *domain.Category) error
	GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*domain.Category, error)
	GetCategoriesByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Category, error)

	CreateCriteria(ctx context.Context, criteria *domain.Criteria) error
	GetCriteriaByID(ctx context.Context, criteriaID uuid.UUID) (*domain.Criteria, error)
	// GetCriteriaByContestID returns contest-wide criteria and the criteria of every category of the contest.
	GetCriteriaByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Criteria, error)

	CreateParticipation(ctx context.Context, p *domain.Participation) error
	GetParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error)
	GetParticipationByUser(ctx context.Context, contestID, userID uuid.UUID) (*domain.Participation, error)
	UpdateParticipationStatus(ctx context.Context, participationID uuid.UUID, status domain.ParticipationStatus, approvedAt *time.Time) error

	CreateSubmission(ctx context.Context, s *domain.Submission) error
	GetSubmissionByID(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error)
	// GetSubmissionForUpdate reads the submission and locks it until the transaction ends.
	GetSubmissionForUpdate(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error)
	GetSubmissionsByContestID(ctx context.Context, contestID uuid.UUID, status *domain.SubmissionStatus) ([]domain.Submission, error)
	CountSubmissions(ctx context.Context, participationID, categoryID uuid.UUID) (int, error)
	UpdateSubmission(ctx context.Context, s *domain.Submission) error
	UpdateSubmissionStatus(ctx context.Context, submissionID uuid.UUID, status domain.SubmissionStatus, submittedAt *time.Time) error
	DeleteSubmission(ctx context.Context, submissionID uuid.UUID) error

	CreateStatusChange(ctx context.Context, change *domain.StatusChange) error
	GetStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.StatusChange, error)
	DeleteStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) error

	CreateMedia(ctx context.Context, media *domain.Media) error
	GetMediaBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) (map[uuid.UUID][]domain.Media, error)
	DeleteMediaBySubmissionID(ctx context.Context, submissionID uuid.UUID) error

	CreateLivestock(ctx context.Context, l *domain.Livestock) error
	GetLivestockByID(ctx context.Context, livestockID uuid.UUID) (*domain.Livestock, error)
	GetLivestockByIDs(ctx context.Context, livestockIDs []uuid.UUID) (map[uuid.UUID]domain.Livestock, error)

	// UpsertScore inserts or overwrites the score for (judge, submission, criteria) and fills ID and timestamps.
	UpsertScore(ctx context.Context, score *domain.JudgingScore) error
	GetScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.JudgingScore, error)
	GetScoresBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) ([]domain.JudgingScore, error)
	DeleteScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) error
}
