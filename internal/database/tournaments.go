// internal/database/tournaments.go
package database

import (
	"context"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (db *DB) CreateTournament(ctx context.Context, t *models.Tournament) error {
	if t.Status == "" {
		t.Status = models.TournamentOpen
	}
	res := db.WithContext(ctx).Create(t)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "insert tournament %d", t.ID)
	}
	if res.RowsAffected == 0 {
		return models.ErrLedgerWriteRejected
	}
	return nil
}

func (db *DB) GetTournament(ctx context.Context, id int64) (*models.Tournament, error) {
	var t models.Tournament
	err := db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTournamentNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get tournament %d", id)
	}
	return &t, nil
}

func (db *DB) SetTournamentStatus(ctx context.Context, id int64, status models.TournamentStatus) error {
	res := db.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update tournament %d", id)
	}
	if res.RowsAffected == 0 {
		return models.ErrTournamentNotFound
	}
	return nil
}

// AddTournamentEntrant registers userID for an open tournament. It reports false when
// the user had already joined.
func (db *DB) AddTournamentEntrant(ctx context.Context, tournamentID int64, userID string) (bool, error) {
	joined := false

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock serializes joins so the capacity check below sees every seat.
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.TournamentOpen {
			return models.ErrTournamentClosed
		}

		var count int64
		if err := tx.Model(&models.TournamentEntrant{}).
			Where("tournament_id = ?", tournamentID).
			Count(&count).Error; err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.TournamentEntrant{TournamentID: tournamentID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if t.NumEntrants > 0 && count >= int64(t.NumEntrants) {
			return models.ErrTournamentFull
		}

		joined = true
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "join tournament %d", tournamentID)
	}
	return joined, nil
}

func (db *DB) RemoveTournamentEntrant(ctx context.Context, tournamentID int64, userID string) error {
	err := db.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Delete(&models.TournamentEntrant{}).Error
	return errors.Wrapf(err, "leave tournament %d", tournamentID)
}

func (db *DB) AddTournamentChannel(ctx context.Context, tournamentID int64, channelID, userID string) error {
	err := db.WithContext(ctx).Create(&models.TournamentChannel{
		TournamentID: tournamentID,
		ChannelID:    channelID,
		UserID:       userID,
	}).Error
	return errors.Wrapf(err, "insert tournament channel for %d", tournamentID)
}
