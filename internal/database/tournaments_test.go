package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
)

func TestTournamentLifecycle(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	err := db.CreateTournament(ctx, &models.Tournament{ID: 4, NumEntrants: 2, Game: "FIFA 23"})
	if err != nil {
		t.Fatalf("CreateTournament() error = %v", err)
	}

	tests := []struct {
		name       string
		user       string
		wantJoined bool
		wantErr    error
	}{
		{name: "first entrant", user: "a", wantJoined: true},
		{name: "same entrant again", user: "a", wantJoined: false},
		{name: "second entrant", user: "b", wantJoined: true},
		{name: "over capacity", user: "c", wantErr: models.ErrTournamentFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined, err := db.AddTournamentEntrant(ctx, 4, tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AddTournamentEntrant() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddTournamentEntrant() error = %v", err)
			}
			if joined != tt.wantJoined {
				t.Errorf("joined = %v, want %v", joined, tt.wantJoined)
			}
		})
	}

	if err := db.SetTournamentStatus(ctx, 4, models.TournamentInProgress); err != nil {
		t.Fatalf("SetTournamentStatus() error = %v", err)
	}
	got, err := db.GetTournament(ctx, 4)
	if err != nil || got.Status != models.TournamentInProgress {
		t.Fatalf("GetTournament() = %+v, %v", got, err)
	}

	if _, err := db.AddTournamentEntrant(ctx, 4, "d"); !errors.Is(err, models.ErrTournamentClosed) {
		t.Errorf("AddTournamentEntrant(started) error = %v, want ErrTournamentClosed", err)
	}
	if err := db.SetTournamentStatus(ctx, 40, models.TournamentClosed); !errors.Is(err, models.ErrTournamentNotFound) {
		t.Errorf("SetTournamentStatus(missing) error = %v, want ErrTournamentNotFound", err)
	}
	if err := db.AddTournamentChannel(ctx, 4, "chan", "a"); err != nil {
		t.Errorf("AddTournamentChannel() error = %v", err)
	}
}

func TestTournamentEntrantRemoval(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	if err := db.CreateTournament(ctx, &models.Tournament{ID: 5, NumEntrants: 1}); err != nil {
		t.Fatalf("CreateTournament() error = %v", err)
	}
	if joined, err := db.AddTournamentEntrant(ctx, 5, "a"); err != nil || !joined {
		t.Fatalf("AddTournamentEntrant(a) = %v, %v", joined, err)
	}
	if _, err := db.AddTournamentEntrant(ctx, 5, "b"); !errors.Is(err, models.ErrTournamentFull) {
		t.Fatalf("AddTournamentEntrant(b) error = %v, want ErrTournamentFull", err)
	}

	if err := db.RemoveTournamentEntrant(ctx, 5, "a"); err != nil {
		t.Fatalf("RemoveTournamentEntrant() error = %v", err)
	}
	if joined, err := db.AddTournamentEntrant(ctx, 5, "b"); err != nil || !joined {
		t.Fatalf("AddTournamentEntrant(b) after removal = %v, %v", joined, err)
	}
	if err := db.RemoveTournamentEntrant(ctx, 5, "nobody"); err != nil {
		t.Errorf("RemoveTournamentEntrant(missing) error = %v", err)
	}
}

func TestTournamentConcurrentJoinsRespectCapacity(t *testing.T) {
	db := newLedgerDB(t)
	ctx := context.Background()

	if err := db.CreateTournament(ctx, &models.Tournament{ID: 6, NumEntrants: 3}); err != nil {
		t.Fatalf("CreateTournament() error = %v", err)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			ok, err := db.AddTournamentEntrant(ctx, 6, user)
			if err != nil && !errors.Is(err, models.ErrTournamentFull) {
				t.Errorf("AddTournamentEntrant(%s) error = %v", user, err)
			}
			if ok {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}(fmt.Sprintf("user-%d", i))
	}
	wg.Wait()

	var count int64
	if err := db.Model(&models.TournamentEntrant{}).Where("tournament_id = ?", 6).Count(&count).Error; err != nil {
		t.Fatalf("count entrants: %v", err)
	}
	if joined != 3 || count != 3 {
		t.Errorf("joined = %d, stored = %d, want 3", joined, count)
	}
}
