package repositories

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

type memberKey struct {
	contestID uuid.UUID
	userID    uuid.UUID
	role      domain.Role
}

type scoreKey struct {
	judgeID      uuid.UUID
	submissionID uuid.UUID
	criteriaID   uuid.UUID
}

type dataset struct {
	users          map[uuid.UUID]domain.User
	contests       map[uuid.UUID]domain.Contest
	members        map[memberKey]domain.ContestMember
	categories     map[uuid.UUID]domain.Category
	criteria       map[uuid.UUID]domain.Criteria
	participations map[uuid.UUID]domain.Participation
	submissions    map[uuid.UUID]domain.Submission
	media          map[uuid.UUID]domain.Media
	history        map[uuid.UUID]domain.StatusChange
	livestock      map[uuid.UUID]domain.Livestock
	scores         map[scoreKey]domain.JudgingScore
}

func newDataset() *dataset {
	return &dataset{
		users:          make(map[uuid.UUID]domain.User),
		contests:       make(map[uuid.UUID]domain.Contest),
		members:        make(map[memberKey]domain.ContestMember),
		categories:     make(map[uuid.UUID]domain.Category),
		criteria:       make(map[uuid.UUID]domain.Criteria),
		participations: make(map[uuid.UUID]domain.Participation),
		submissions:    make(map[uuid.UUID]domain.Submission),
		media:          make(map[uuid.UUID]domain.Media),
		history:        make(map[uuid.UUID]domain.StatusChange),
		livestock:      make(map[uuid.UUID]domain.Livestock),
		scores:         make(map[scoreKey]domain.JudgingScore),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		users:          maps.Clone(d.users),
		contests:       maps.Clone(d.contests),
		members:        maps.Clone(d.members),
		categories:     maps.Clone(d.categories),
		criteria:       maps.Clone(d.criteria),
		participations: maps.Clone(d.participations),
		submissions:    maps.Clone(d.submissions),
		media:          maps.Clone(d.media),
		history:        maps.Clone(d.history),
		livestock:      maps.Clone(d.livestock),
		scores:         maps.Clone(d.scores),
	}
}

// InMemory is a Store kept in process memory. Transactions run serially
// against a copy of the data that replaces the live copy on success.
type InMemory struct {
	mu   *sync.Mutex
	data *dataset
	root *InMemory
	now  func() time.Time
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	m := &InMemory{
		mu:   &sync.Mutex{},
		data: newDataset(),
		now:  increasingClock(),
	}
	return m
}

// increasingClock never returns the same instant twice, so rows created in
// sequence keep their order. Callers hold the store mutex.
func increasingClock() func() time.Time {
	var last time.Time
	return func() time.Time {
		t := time.Now().UTC().Truncate(time.Microsecond)
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
		last = t
		return t
	}
}

func (m *InMemory) inTx() bool { return m.root != nil }

func (m *InMemory) lock() func() {
	if m.inTx() {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *InMemory) InTx(ctx context.Context, fn func(Store) error) error {
	return m.run(ctx, true, fn)
}

func (m *InMemory) InSnapshot(ctx context.Context, fn func(Store) error) error {
	return m.run(ctx, false, fn)
}

func (m *InMemory) run(ctx context.Context, commit bool, fn func(Store) error) error {
	if m.inTx() {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &InMemory{mu: m.mu, data: m.data.clone(), root: m, now: m.now}
	if err := fn(tx); err != nil {
		return err
	}
	if commit {
		m.data = tx.data
	}
	return nil
}

// Shutdown is a no-op kept for symmetry with Repository.
func (m *InMemory) Shutdown(ctx context.Context) error {
	return nil
}

func (m *InMemory) UpsertUser(ctx context.Context, user *domain.User) error {
	defer m.lock()()
	now := m.now()
	if existing, ok := m.data.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.data.users[user.ID] = *user
	return nil
}

func (m *InMemory) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	defer m.lock()()
	u, ok := m.data.users[userID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetUserByID: %w", domain.NotFound("user"))
	}
	return &u, nil
}

func (m *InMemory) GetUsersByIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	defer m.lock()()
	out := make(map[uuid.UUID]domain.User, len(userIDs))
	for _, id := range userIDs {
		if u, ok := m.data.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *InMemory) CreateContest(ctx context.Context, contest *domain.Contest) error {
	defer m.lock()()
	if _, ok := m.data.contests[contest.ID]; ok {
		return fmt.Errorf("InMemory.CreateContest: duplicate id %s", contest.ID)
	}
	now := m.now()
	contest.CreatedAt, contest.UpdatedAt = now, now
	m.data.contests[contest.ID] = *contest
	return nil
}

func (m *InMemory) GetContestByID(ctx context.Context, contestID uuid.UUID) (*domain.Contest, error) {
	defer m.lock()()
	c, ok := m.data.contests[contestID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetContestByID: %w", domain.NotFound("contest"))
	}
	return &c, nil
}

func (m *InMemory) UpdateContestStatus(ctx context.Context, contestID uuid.UUID, from, to domain.ContestStatus) (bool, error) {
	defer m.lock()()
	c, ok := m.data.contests[contestID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = m.now()
	m.data.contests[contestID] = c
	return true, nil
}

func (m *InMemory) PublishContestResults(ctx context.Context, contestID uuid.UUID, publishedAt time.Time) (bool, error) {
	defer m.lock()()
	c, ok := m.data.contests[contestID]
	if !ok || c.Status != domain.ContestJudging {
		return false, nil
	}
	c.Status = domain.ContestCompleted
	c.ResultsPublished = &publishedAt
	c.UpdatedAt = m.now()
	m.data.contests[contestID] = c
	return true, nil
}

func (m *InMemory) UpsertContestMember(ctx context.Context, member *domain.ContestMember) error {
	defer m.lock()()
	if _, ok := m.data.contests[member.ContestID]; !ok {
		return fmt.Errorf("InMemory.UpsertContestMember: %w", domain.NotFound("contest"))
	}
	key := memberKey{member.ContestID, member.UserID, member.Role}
	if existing, ok := m.data.members[key]; ok {
		member.CreatedAt = existing.CreatedAt
		return nil
	}
	member.CreatedAt = m.now()
	m.data.members[key] = *member
	return nil
}

func (m *InMemory) GetContestMemberRoles(ctx context.Context, contestID, userID uuid.UUID) ([]domain.Role, error) {
	defer m.lock()()
	var roles []domain.Role
	for k := range m.data.members {
		if k.contestID == contestID && k.userID == userID {
			roles = append(roles, k.role)
		}
	}
	slices.Sort(roles)
	return roles, nil
}

func (m *InMemory) GetContestMemberIDsByRole(ctx context.Context, contestID uuid.UUID, role domain.Role) ([]uuid.UUID, error) {
	defer m.lock()()
	var members []domain.ContestMember
	for k, v := range m.data.members {
		if k.contestID == contestID && k.role == role {
			members = append(members, v)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		return members[i].UserID.String() < members[j].UserID.String()
	})
	ids := make([]uuid.UUID, 0, len(members))
	for _, mem := range members {
		ids = append(ids, mem.UserID)
	}
	return ids, nil
}

func (m *InMemory) CreateCategory(ctx context.Context, category *domain.Category) error {
	defer m.lock()()
	if _, ok := m.data.contests[category.ContestID]; !ok {
		return fmt.Errorf("InMemory.CreateCategory: %w", domain.NotFound("contest"))
	}
	category.CreatedAt = m.now()
	m.data.categories[category.ID] = *category
	return nil
}

func (m *InMemory) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*domain.Category, error) {
	defer m.lock()()
	c, ok := m.data.categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetCategoryByID: %w", domain.NotFound("category"))
	}
	return &c, nil
}

func (m *InMemory) GetCategoriesByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Category, error) {
	defer m.lock()()
	var out []domain.Category
	for _, c := range m.data.categories {
		if c.ContestID == contestID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *InMemory) CreateCriteria(ctx context.Context, criteria *domain.Criteria) error {
	defer m.lock()()
	if !criteria.Scope.Valid() {
		return fmt.Errorf("InMemory.CreateCriteria: criteria %s has no scope", criteria.ID)
	}
	criteria.CreatedAt = m.now()
	m.data.criteria[criteria.ID] = *criteria
	return nil
}

func (m *InMemory) GetCriteriaByID(ctx context.Context, criteriaID uuid.UUID) (*domain.Criteria, error) {
	defer m.lock()()
	c, ok := m.data.criteria[criteriaID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetCriteriaByID: %w", domain.NotFound("criteria"))
	}
	return &c, nil
}

func (m *InMemory) GetCriteriaByContestID(ctx context.Context, contestID uuid.UUID) ([]domain.Criteria, error) {
	defer m.lock()()
	var out []domain.Criteria
	for _, c := range m.data.criteria {
		if id, ok := c.Scope.ContestID(); ok && id == contestID {
			out = append(out, c)
			continue
		}
		if catID, ok := c.Scope.CategoryID(); ok {
			if cat, found := m.data.categories[catID]; found && cat.ContestID == contestID {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *InMemory) CreateParticipation(ctx context.Context, p *domain.Participation) error {
	defer m.lock()()
	for _, existing := range m.data.participations {
		if existing.ContestID == p.ContestID && existing.UserID == p.UserID {
			return fmt.Errorf("InMemory.CreateParticipation: %w", domain.Errorf(domain.KindInvalidStateTransition,
				"user is already registered in this contest"))
		}
	}
	p.RegisteredAt = m.now()
	m.data.participations[p.ID] = *p
	return nil
}

func (m *InMemory) GetParticipationByID(ctx context.Context, participationID uuid.UUID) (*domain.Participation, error) {
	defer m.lock()()
	p, ok := m.data.participations[participationID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetParticipationByID: %w", domain.NotFound("participation"))
	}
	return &p, nil
}

func (m *InMemory) GetParticipationByUser(ctx context.Context, contestID, userID uuid.UUID) (*domain.Participation, error) {
	defer m.lock()()
	for _, p := range m.data.participations {
		if p.ContestID == contestID && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("InMemory.GetParticipationByUser: %w", domain.NotFound("participation"))
}

func (m *InMemory) UpdateParticipationStatus(ctx context.Context, participationID uuid.UUID, status domain.ParticipationStatus, approvedAt *time.Time) error {
	defer m.lock()()
	p, ok := m.data.participations[participationID]
	if !ok {
		return fmt.Errorf("InMemory.UpdateParticipationStatus: %w", domain.NotFound("participation"))
	}
	p.Status = status
	p.ApprovedAt = approvedAt
	m.data.participations[participationID] = p
	return nil
}

func (m *InMemory) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	defer m.lock()()
	if _, ok := m.data.contests[s.ContestID]; !ok {
		return fmt.Errorf("InMemory.CreateSubmission: %w", domain.NotFound("contest"))
	}
	if _, ok := m.data.categories[s.CategoryID]; !ok {
		return fmt.Errorf("InMemory.CreateSubmission: %w", domain.NotFound("category"))
	}
	now := m.now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.data.submissions[s.ID] = *s
	return nil
}

func (m *InMemory) GetSubmissionByID(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error) {
	defer m.lock()()
	s, ok := m.data.submissions[submissionID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetSubmissionByID: %w", domain.NotFound("submission"))
	}
	return &s, nil
}

// GetSubmissionForUpdate needs no row lock: transactions are already serialized.
func (m *InMemory) GetSubmissionForUpdate(ctx context.Context, submissionID uuid.UUID) (*domain.Submission, error) {
	return m.GetSubmissionByID(ctx, submissionID)
}

func (m *InMemory) GetSubmissionsByContestID(ctx context.Context, contestID uuid.UUID, status *domain.SubmissionStatus) ([]domain.Submission, error) {
	defer m.lock()()
	var out []domain.Submission
	for _, s := range m.data.submissions {
		if s.ContestID != contestID {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *InMemory) CountSubmissions(ctx context.Context, participationID, categoryID uuid.UUID) (int, error) {
	defer m.lock()()
	n := 0
	for _, s := range m.data.submissions {
		if s.ParticipationID == participationID && s.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *InMemory) UpdateSubmission(ctx context.Context, s *domain.Submission) error {
	defer m.lock()()
	existing, ok := m.data.submissions[s.ID]
	if !ok {
		return fmt.Errorf("InMemory.UpdateSubmission: %w", domain.NotFound("submission"))
	}
	existing.CategoryID = s.CategoryID
	existing.Title = s.Title
	existing.Description = s.Description
	existing.Metadata = s.Metadata
	existing.LivestockID = s.LivestockID
	existing.UpdatedAt = m.now()
	m.data.submissions[s.ID] = existing
	s.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *InMemory) UpdateSubmissionStatus(ctx context.Context, submissionID uuid.UUID, status domain.SubmissionStatus, submittedAt *time.Time) error {
	defer m.lock()()
	s, ok := m.data.submissions[submissionID]
	if !ok {
		return fmt.Errorf("InMemory.UpdateSubmissionStatus: %w", domain.NotFound("submission"))
	}
	s.Status = status
	if submittedAt != nil {
		s.SubmittedAt = submittedAt
	}
	s.UpdatedAt = m.now()
	m.data.submissions[submissionID] = s
	return nil
}

// DeleteSubmission fails while scores, media or history still reference the submission.
func (m *InMemory) DeleteSubmission(ctx context.Context, submissionID uuid.UUID) error {
	op := "InMemory.DeleteSubmission"
	defer m.lock()()
	if _, ok := m.data.submissions[submissionID]; !ok {
		return fmt.Errorf("%s: %w", op, domain.NotFound("submission"))
	}
	var refs []string
	for k := range m.data.scores {
		if k.submissionID == submissionID {
			refs = append(refs, "judging_scores")
			break
		}
	}
	for _, md := range m.data.media {
		if md.SubmissionID == submissionID {
			refs = append(refs, "submission_media")
			break
		}
	}
	for _, h := range m.data.history {
		if h.SubmissionID == submissionID {
			refs = append(refs, "submission_status_history")
			break
		}
	}
	if len(refs) > 0 {
		return fmt.Errorf("%s: submission %s still referenced by %s", op, submissionID, strings.Join(refs, ", "))
	}
	delete(m.data.submissions, submissionID)
	return nil
}

func (m *InMemory) CreateStatusChange(ctx context.Context, change *domain.StatusChange) error {
	defer m.lock()()
	change.CreatedAt = m.now()
	m.data.history[change.ID] = *change
	return nil
}

func (m *InMemory) GetStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.StatusChange, error) {
	defer m.lock()()
	var out []domain.StatusChange
	for _, h := range m.data.history {
		if h.SubmissionID == submissionID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *InMemory) DeleteStatusChangesBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	defer m.lock()()
	maps.DeleteFunc(m.data.history, func(_ uuid.UUID, h domain.StatusChange) bool {
		return h.SubmissionID == submissionID
	})
	return nil
}

func (m *InMemory) CreateMedia(ctx context.Context, media *domain.Media) error {
	defer m.lock()()
	if _, ok := m.data.submissions[media.SubmissionID]; !ok {
		return fmt.Errorf("InMemory.CreateMedia: %w", domain.NotFound("submission"))
	}
	media.CreatedAt = m.now()
	m.data.media[media.ID] = *media
	return nil
}

func (m *InMemory) GetMediaBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) (map[uuid.UUID][]domain.Media, error) {
	defer m.lock()()
	want := make(map[uuid.UUID]bool, len(submissionIDs))
	for _, id := range submissionIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID][]domain.Media, len(submissionIDs))
	for _, md := range m.data.media {
		if want[md.SubmissionID] {
			out[md.SubmissionID] = append(out[md.SubmissionID], md)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool {
			if list[i].DisplayOrder != list[j].DisplayOrder {
				return list[i].DisplayOrder < list[j].DisplayOrder
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}
	return out, nil
}

func (m *InMemory) DeleteMediaBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	defer m.lock()()
	maps.DeleteFunc(m.data.media, func(_ uuid.UUID, md domain.Media) bool {
		return md.SubmissionID == submissionID
	})
	return nil
}

func (m *InMemory) CreateLivestock(ctx context.Context, l *domain.Livestock) error {
	defer m.lock()()
	m.data.livestock[l.ID] = *l
	return nil
}

func (m *InMemory) GetLivestockByID(ctx context.Context, livestockID uuid.UUID) (*domain.Livestock, error) {
	defer m.lock()()
	l, ok := m.data.livestock[livestockID]
	if !ok {
		return nil, fmt.Errorf("InMemory.GetLivestockByID: %w", domain.NotFound("livestock"))
	}
	return &l, nil
}

func (m *InMemory) GetLivestockByIDs(ctx context.Context, livestockIDs []uuid.UUID) (map[uuid.UUID]domain.Livestock, error) {
	defer m.lock()()
	out := make(map[uuid.UUID]domain.Livestock, len(livestockIDs))
	for _, id := range livestockIDs {
		if l, ok := m.data.livestock[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (m *InMemory) UpsertScore(ctx context.Context, score *domain.JudgingScore) error {
	defer m.lock()()
	if _, ok := m.data.submissions[score.SubmissionID]; !ok {
		return fmt.Errorf("InMemory.UpsertScore: %w", domain.NotFound("submission"))
	}
	key := scoreKey{score.JudgeID, score.SubmissionID, score.CriteriaID}
	now := m.now()
	if existing, ok := m.data.scores[key]; ok {
		score.ID = existing.ID
		score.CreatedAt = existing.CreatedAt
	} else {
		if score.ID == uuid.Nil {
			score.ID = uuid.New()
		}
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	m.data.scores[key] = *score
	return nil
}

func (m *InMemory) GetScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) ([]domain.JudgingScore, error) {
	return m.GetScoresBySubmissionIDs(ctx, []uuid.UUID{submissionID})
}

func (m *InMemory) GetScoresBySubmissionIDs(ctx context.Context, submissionIDs []uuid.UUID) ([]domain.JudgingScore, error) {
	defer m.lock()()
	want := make(map[uuid.UUID]bool, len(submissionIDs))
	for _, id := range submissionIDs {
		want[id] = true
	}
	var out []domain.JudgingScore
	for k, s := range m.data.scores {
		if want[k.submissionID] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionID != out[j].SubmissionID {
			return out[i].SubmissionID.String() < out[j].SubmissionID.String()
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *InMemory) DeleteScoresBySubmissionID(ctx context.Context, submissionID uuid.UUID) error {
	defer m.lock()()
	maps.DeleteFunc(m.data.scores, func(k scoreKey, _ domain.JudgingScore) bool {
		return k.submissionID == submissionID
	})
	return nil
}
