// internal/rag/format.go
package rag

import (
	"fmt"
	"strings"
	"time"

	"insert-coin-bot/internal/models"
)

// FormatTimeAgo renders the largest whole unit elapsed since t.
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours ago", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes ago", int(d/time.Minute))
	default:
		return "few moments ago"
	}
}

func FormatPost(p models.Post, now time.Time) string {
	return fmt.Sprintf("<@%s>: *%s* (%s)", p.AuthorID, p.Text, FormatTimeAgo(p.CreatedAt, now))
}

func formatPosts(posts []models.ScoredPost, now time.Time) string {
	lines := make([]string, len(posts))
	for i, p := range posts {
		lines[i] = FormatPost(p.Post, now)
	}
	return strings.Join(lines, "\n\n")
}

func formatHistoryEntry(p models.Post) string {
	amount := "-"
	if p.MatchAmountUSD != nil {
		amount = fmt.Sprintf("%d", *p.MatchAmountUSD)
	}
	return fmt.Sprintf("**Summary:** %s\n**Game:** %s\n**Platform:** %s\n**Match Amount:** $%s",
		p.Text, orDash(p.Game), orDash(p.Platform), amount)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
