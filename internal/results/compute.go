package results

import (
	"sort"
	"time"

	"ContestScoreAPI/internal/models/domain"

	"github.com/google/uuid"
)

// Snapshot is everything the aggregation reads, taken from one consistent view of the store.
type Snapshot struct {
	ContestID   uuid.UUID
	Categories  []domain.Category
	Criteria    []domain.Criteria
	Submissions []domain.Submission
	Scores      []domain.JudgingScore
	Users       map[uuid.UUID]domain.User
	Media       map[uuid.UUID][]domain.Media
	Livestock   map[uuid.UUID]domain.Livestock
}

type ContestResults struct {
	ContestID  uuid.UUID        `json:"contestId"`
	Categories []CategoryResult `json:"categories"`
}

type CategoryResult struct {
	CategoryID   uuid.UUID          `json:"categoryId"`
	CategoryName string             `json:"categoryName"`
	Submissions  []SubmissionResult `json:"submissions"`
}

type SubmissionResult struct {
	SubmissionID    uuid.UUID         `json:"submissionId"`
	Title           string            `json:"title"`
	ParticipantID   uuid.UUID         `json:"participantId"`
	ParticipantName string            `json:"participantName"`
	CriteriaScores  []CriteriaScore   `json:"criteriaScores"`
	TotalScore      float64           `json:"totalScore"`
	Rank            int               `json:"rank"`
	Media           []domain.Media    `json:"media"`
	Ganado          *domain.Livestock `json:"ganado,omitempty"`

	createdAt time.Time
}

type CriteriaScore struct {
	CriteriaID   uuid.UUID `json:"criteriaId"`
	CriteriaName string    `json:"criteriaName"`
	Weight       float64   `json:"weight"`
	Average      float64   `json:"average"`
	Scores       []float64 `json:"scores"`
}

// Compute ranks the JUDGED submissions of a snapshot per category.
//
// Each criterion's average is the plain mean of every judge's score for it.
// The total is the weight-normalized mean of those averages over criteria
// with at least one score, and 0 when nothing was scored. Submissions are
// ordered by total descending, then creation time, then ID.
func Compute(snap Snapshot) ContestResults {
	criteria := make(map[uuid.UUID]domain.Criteria, len(snap.Criteria))
	for _, c := range snap.Criteria {
		criteria[c.ID] = c
	}

	bySubmission := make(map[uuid.UUID][]domain.JudgingScore)
	for _, sc := range snap.Scores {
		bySubmission[sc.SubmissionID] = append(bySubmission[sc.SubmissionID], sc)
	}

	byCategory := make(map[uuid.UUID][]SubmissionResult)
	for _, sub := range snap.Submissions {
		if sub.ContestID != snap.ContestID || sub.Status != domain.SubmissionJudged {
			continue
		}
		byCategory[sub.CategoryID] = append(byCategory[sub.CategoryID],
			submissionResult(sub, bySubmission[sub.ID], criteria, snap))
	}

	categories := append([]domain.Category(nil), snap.Categories...)
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].DisplayOrder != categories[j].DisplayOrder {
			return categories[i].DisplayOrder < categories[j].DisplayOrder
		}
		return categories[i].Name < categories[j].Name
	})

	out := ContestResults{ContestID: snap.ContestID, Categories: []CategoryResult{}}
	for _, cat := range categories {
		subs := byCategory[cat.ID]
		if len(subs) == 0 {
			continue
		}
		rank(subs)
		out.Categories = append(out.Categories, CategoryResult{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Submissions:  subs,
		})
	}
	return out
}

func submissionResult(sub domain.Submission, scores []domain.JudgingScore, criteria map[uuid.UUID]domain.Criteria, snap Snapshot) SubmissionResult {
	grouped := make(map[uuid.UUID][]float64)
	for _, sc := range scores {
		if _, ok := criteria[sc.CriteriaID]; !ok {
			continue
		}
		grouped[sc.CriteriaID] = append(grouped[sc.CriteriaID], sc.Score)
	}

	breakdown := make([]CriteriaScore, 0, len(grouped))
	for id, values := range grouped {
		c := criteria[id]
		breakdown = append(breakdown, CriteriaScore{
			CriteriaID:   id,
			CriteriaName: c.Name,
			Weight:       c.Weight,
			Average:      mean(values),
			Scores:       values,
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		ci, cj := criteria[breakdown[i].CriteriaID], criteria[breakdown[j].CriteriaID]
		if ci.DisplayOrder != cj.DisplayOrder {
			return ci.DisplayOrder < cj.DisplayOrder
		}
		if ci.Name != cj.Name {
			return ci.Name < cj.Name
		}
		return ci.ID.String() < cj.ID.String()
	})

	res := SubmissionResult{
		SubmissionID:    sub.ID,
		Title:           sub.Title,
		ParticipantID:   sub.OwnerID,
		ParticipantName: snap.Users[sub.OwnerID].Name,
		CriteriaScores:  breakdown,
		TotalScore:      WeightedTotal(breakdown),
		Media:           snap.Media[sub.ID],
		createdAt:       sub.CreatedAt,
	}
	if res.Media == nil {
		res.Media = []domain.Media{}
	}
	if sub.LivestockID != nil {
		if l, ok := snap.Livestock[*sub.LivestockID]; ok {
			res.Ganado = &l
		}
	}
	return res
}

// WeightedTotal is Σ(average·weight)/Σweight, 0 when the weights sum to 0.
func WeightedTotal(scores []CriteriaScore) float64 {
	var weightedSum, totalWeight float64
	for _, cs := range scores {
		weightedSum += cs.Average * cs.Weight
		totalWeight += cs.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func rank(subs []SubmissionResult) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].TotalScore != subs[j].TotalScore {
			return subs[i].TotalScore > subs[j].TotalScore
		}
		if !subs[i].createdAt.Equal(subs[j].createdAt) {
			return subs[i].createdAt.Before(subs[j].createdAt)
		}
		return subs[i].SubmissionID.String() < subs[j].SubmissionID.String()
	})
	for i := range subs {
		subs[i].Rank = i + 1
	}
}
