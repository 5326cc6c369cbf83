// internal/models/models.go
package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Label is the intent assigned to a free-text prompt.
type Label string

const (
	LabelTournament   Label = "tournament"
	LabelOneVOne      Label = "1v1"
	LabelList         Label = "list"
	LabelDelete       Label = "delete"
	LabelUnidentified Label = "unidentified"
)

// Complement returns the post type a submission of type l is matched against.
func (l Label) Complement() Label {
	switch l {
	case LabelTournament:
		return LabelOneVOne
	case LabelOneVOne:
		return LabelTournament
	}
	return ""
}

// Post is a stored tournament or 1v1 submission.
type Post struct {
	ID             string          `gorm:"primaryKey"`
	Embedding      pgvector.Vector `gorm:"type:vector(1536)"` // OpenAI embedding size
	Text           string          `gorm:"type:text;not null"`
	AuthorID       string          `gorm:"not null;index"`
	PromptType     Label           `gorm:"type:text;not null;index"`
	Platform       string
	Category       string
	Game           string
	MatchAmountUSD *int64 `gorm:"column:match_amount_usd"`
	CreatedAt      time.Time
}

func (Post) TableName() string { return "posts" }

// ScoredPost is a Post returned from a similarity query.
type ScoredPost struct {
	Post  `gorm:"embedded"`
	Score float64
}

// PostQuery selects posts. A nil Vector makes it a filter-only query.
type PostQuery struct {
	Vector     []float32
	AuthorID   string
	PromptType Label
	TopK       int
}

type MatchStatus string

const (
	MatchStatusOpen     MatchStatus = "open"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusExpired  MatchStatus = "expired"
)

// MatchRecord is the ledger row of a 1v1 challenge.
type MatchRecord struct {
	MatchID        int64       `gorm:"column:match_id;primaryKey;autoIncrement:false"`
	ChannelID      string      `gorm:"column:channel_id;not null;index"`
	Player1ID      string      `gorm:"column:player1_id;not null"`
	Player1Name    string      `gorm:"column:player1_name;not null"`
	Player2ID      *string     `gorm:"column:player2_id"`
	Player2Name    *string     `gorm:"column:player2_name"`
	MatchAmountUSD int64       `gorm:"column:match_amount_usd"`
	Category       string      `gorm:"column:category"`
	Platform       string      `gorm:"column:platform"`
	Game           string      `gorm:"column:game"`
	Status         MatchStatus `gorm:"column:status;type:text;not null;default:open;index"`
	PostID         string      `gorm:"column:post_id"`
	CreatedAt      time.Time   `gorm:"column:created_at"`
	AcceptedAt     *time.Time  `gorm:"column:accepted_at"`
}

func (MatchRecord) TableName() string { return "matches" }

type TournamentStatus string

const (
	TournamentOpen       TournamentStatus = "open"
	TournamentInProgress TournamentStatus = "in-progress"
	TournamentClosed     TournamentStatus = "closed"
)

type Tournament struct {
	ID                 int64            `gorm:"primaryKey;autoIncrement:false"`
	NumEntrants        int              `gorm:"not null"`
	WinnersPercentage  int              `gorm:"not null;default:0"`
	MultisigPercentage int              `gorm:"not null;default:0"`
	Status             TournamentStatus `gorm:"type:text;not null;default:open"`
	Platform           string
	Category           string
	Game               string
	CreatedAt          time.Time
}

func (Tournament) TableName() string { return "tournaments" }

type TournamentEntrant struct {
	TournamentID int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID       string `gorm:"primaryKey"`
	CreatedAt    time.Time
}

func (TournamentEntrant) TableName() string { return "tournament_entrants" }

type TournamentChannel struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID int64  `gorm:"not null;index"`
	ChannelID    string `gorm:"not null"`
	UserID       string `gorm:"not null"`
	CreatedAt    time.Time
}

func (TournamentChannel) TableName() string { return "tournament_channels" }
