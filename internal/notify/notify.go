package notify

import (
	"context"
	"fmt"
	"strings"

	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/results"
)

const podiumSize = 3

// Notifier announces contest events outside the API.
type Notifier interface {
	ResultsPublished(ctx context.Context, contest domain.Contest, res *results.ContestResults) error
	Shutdown(ctx context.Context) error
}

// Nop is used when no chat is configured.
type Nop struct{}

func (Nop) ResultsPublished(context.Context, domain.Contest, *results.ContestResults) error {
	return nil
}

func (Nop) Shutdown(context.Context) error { return nil }

// formatPodium renders the top entries of every category as plain text.
func formatPodium(contest domain.Contest, res *results.ContestResults) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Results published: %s\n", contest.Name)
	if res == nil || len(res.Categories) == 0 {
		sb.WriteString("\nNo judged entries.")
		return sb.String()
	}

	for _, cat := range res.Categories {
		fmt.Fprintf(&sb, "\n%s\n", cat.CategoryName)
		for i, s := range cat.Submissions {
			if i == podiumSize {
				break
			}
			fmt.Fprintf(&sb, "%d. %s", s.Rank, s.Title)
			if s.ParticipantName != "" {
				fmt.Fprintf(&sb, " (%s)", s.ParticipantName)
			}
			fmt.Fprintf(&sb, " - %.2f\n", s.TotalScore)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// splitTextIntoChunks splits text into chunks of at most chunkSize runes.
func splitTextIntoChunks(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
