package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLedgerDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := &DB{gormDB}
	if err := db.Migrate(LedgerModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func openMatch(t *testing.T, db *DB, id int64) {
	t.Helper()
	err := db.CreateMatch(context.Background(), &models.MatchRecord{
		MatchID:        id,
		ChannelID:      "chan-1",
		Player1ID:      "creator",
		Player1Name:    "Creator",
		MatchAmountUSD: 25,
		Platform:       "PC",
		Category:       "Fighting",
		Game:           "Tekken 8",
	})
	if err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
}

func TestCreateAndGetMatch(t *testing.T) {
	db := newLedgerDB(t)
	openMatch(t, db, 7)

	got, err := db.GetMatch(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetMatch() error = %v", err)
	}
	if got.Status != models.MatchStatusOpen {
		t.Errorf("status = %q, want %q", got.Status, models.MatchStatusOpen)
	}
	if got.Player2Name != nil {
		t.Errorf("player2_name = %v, want nil", *got.Player2Name)
	}

	channel, err := db.ChannelForMatch(context.Background(), 7)
	if err != nil || channel != "chan-1" {
		t.Errorf("ChannelForMatch() = %q, %v; want chan-1", channel, err)
	}

	if _, err := db.GetMatch(context.Background(), 8); !errors.Is(err, models.ErrMatchNotFound) {
		t.Errorf("GetMatch(missing) error = %v, want ErrMatchNotFound", err)
	}
}

func TestAcceptMatchOnce(t *testing.T) {
	db := newLedgerDB(t)
	openMatch(t, db, 1)
	ctx := context.Background()

	match, err := db.AcceptMatch(ctx, 1, "p2", "Player Two")
	if err != nil {
		t.Fatalf("AcceptMatch() error = %v", err)
	}
	if match.Status != models.MatchStatusAccepted || match.Player2Name == nil || *match.Player2Name != "Player Two" {
		t.Fatalf("AcceptMatch() = %+v", match)
	}

	again, err := db.AcceptMatch(ctx, 1, "p3", "Player Three")
	if !errors.Is(err, models.ErrAlreadyAccepted) {
		t.Fatalf("second AcceptMatch() error = %v, want ErrAlreadyAccepted", err)
	}
	if *again.Player2Name != "Player Two" {
		t.Errorf("player2_name = %q after second accept, want Player Two", *again.Player2Name)
	}
}

func TestAcceptMatchConcurrent(t *testing.T) {
	db := newLedgerDB(t)
	openMatch(t, db, 3)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("player-%d", n)
			_, err := db.AcceptMatch(context.Background(), 3, name, name)
			if err == nil {
				mu.Lock()
				winners = append(winners, name)
				mu.Unlock()
			} else if !errors.Is(err, models.ErrAlreadyAccepted) {
				t.Errorf("AcceptMatch() unexpected error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly one", winners)
	}
	match, err := db.GetMatch(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetMatch() error = %v", err)
	}
	if *match.Player2Name != winners[0] {
		t.Errorf("player2_name = %q, want %q", *match.Player2Name, winners[0])
	}
}

func TestAcceptMatchMissingRow(t *testing.T) {
	db := newLedgerDB(t)
	if _, err := db.AcceptMatch(context.Background(), 99, "p2", "P2"); !errors.Is(err, models.ErrLedgerWriteRejected) {
		t.Fatalf("AcceptMatch(missing) error = %v, want ErrLedgerWriteRejected", err)
	}
}

func TestExpireStaleMatches(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()
	openMatch(t, db, 10)
	openMatch(t, db, 11)

	if _, err := db.AcceptMatch(ctx, 11, "p2", "P2"); err != nil {
		t.Fatalf("AcceptMatch() error = %v", err)
	}

	expired, err := db.ExpireStaleMatches(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ExpireStaleMatches() error = %v", err)
	}
	if len(expired) != 1 || expired[0].MatchID != 10 {
		t.Fatalf("expired = %+v, want match 10 only", expired)
	}

	if _, err := db.AcceptMatch(ctx, 10, "p2", "P2"); !errors.Is(err, models.ErrMatchClosed) {
		t.Errorf("AcceptMatch(expired) error = %v, want ErrMatchClosed", err)
	}

	none, err := db.ExpireStaleMatches(ctx, time.Now().Add(-time.Hour))
	if err != nil || len(none) != 0 {
		t.Errorf("ExpireStaleMatches(old cutoff) = %v, %v; want none", none, err)
	}
}
