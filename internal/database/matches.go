// internal/database/matches.go
package database

import (
	"context"
	"time"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func (db *DB) CreateMatch(ctx context.Context, match *models.MatchRecord) error {
	if match.Status == "" {
		match.Status = models.MatchStatusOpen
	}

	res := db.WithContext(ctx).Create(match)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "insert match %d", match.MatchID)
	}
	if res.RowsAffected == 0 {
		return models.ErrLedgerWriteRejected
	}
	return nil
}

func (db *DB) GetMatch(ctx context.Context, matchID int64) (*models.MatchRecord, error) {
	var match models.MatchRecord
	err := db.WithContext(ctx).First(&match, "match_id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrMatchNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get match %d", matchID)
	}
	return &match, nil
}

// ChannelForMatch returns the Discord channel that belongs to a match.
func (db *DB) ChannelForMatch(ctx context.Context, matchID int64) (string, error) {
	match, err := db.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	return match.ChannelID, nil
}

// AcceptMatch assigns the second player exactly once. Only an open match without a
// second player is updated; a lost race reports why nothing changed.
func (db *DB) AcceptMatch(ctx context.Context, matchID int64, playerID, playerName string) (*models.MatchRecord, error) {
	now := time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&models.MatchRecord{}).
		Where("match_id = ? AND status = ? AND player2_id IS NULL", matchID, models.MatchStatusOpen).
		Updates(map[string]interface{}{
			"player2_id":   playerID,
			"player2_name": playerName,
			"status":       models.MatchStatusAccepted,
			"accepted_at":  now,
		})
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "accept match %d", matchID)
	}

	match, err := db.GetMatch(ctx, matchID)
	if errors.Is(err, models.ErrMatchNotFound) {
		return nil, models.ErrLedgerWriteRejected
	}
	if err != nil {
		return nil, err
	}

	if res.RowsAffected == 0 {
		switch match.Status {
		case models.MatchStatusAccepted:
			return match, models.ErrAlreadyAccepted
		case models.MatchStatusExpired:
			return match, models.ErrMatchClosed
		default:
			return nil, models.ErrLedgerWriteRejected
		}
	}

	return match, nil
}

// ExpireStaleMatches closes open matches created before cutoff and returns them.
func (db *DB) ExpireStaleMatches(ctx context.Context, cutoff time.Time) ([]models.MatchRecord, error) {
	var stale []models.MatchRecord
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.MatchStatusOpen, cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, errors.Wrap(err, "find stale matches")
	}

	expired := make([]models.MatchRecord, 0, len(stale))
	for _, match := range stale {
		res := db.WithContext(ctx).
			Model(&models.MatchRecord{}).
			Where("match_id = ? AND status = ?", match.MatchID, models.MatchStatusOpen).
			Update("status", models.MatchStatusExpired)
		if res.Error != nil {
			return expired, errors.Wrapf(res.Error, "expire match %d", match.MatchID)
		}
		// accepted in the meantime
		if res.RowsAffected == 0 {
			continue
		}
		match.Status = models.MatchStatusExpired
		expired = append(expired, match)
	}

	return expired, nil
}
