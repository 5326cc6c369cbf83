package challenge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type fakeAllocator struct {
	next int64
	err  error
}

func (a *fakeAllocator) NextMatchID(ctx context.Context) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	a.next++
	return a.next, nil
}

// fakeLedger mirrors the conditional update of the database ledger.
type fakeLedger struct {
	mu        sync.Mutex
	matches   map[int64]models.MatchRecord
	createErr error
	updates   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{matches: make(map[int64]models.MatchRecord)}
}

func (l *fakeLedger) CreateMatch(ctx context.Context, match *models.MatchRecord) error {
	if l.createErr != nil {
		return l.createErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matches[match.MatchID] = *match
	return nil
}

func (l *fakeLedger) GetMatch(ctx context.Context, matchID int64) (*models.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.matches[matchID]
	if !ok {
		return nil, models.ErrMatchNotFound
	}
	return &m, nil
}

func (l *fakeLedger) AcceptMatch(ctx context.Context, matchID int64, playerID, playerName string) (*models.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.matches[matchID]
	if !ok {
		return nil, models.ErrLedgerWriteRejected
	}
	switch {
	case m.Status == models.MatchStatusAccepted:
		return &m, models.ErrAlreadyAccepted
	case m.Status == models.MatchStatusExpired:
		return &m, models.ErrMatchClosed
	}
	m.Player2ID = &playerID
	m.Player2Name = &playerName
	m.Status = models.MatchStatusAccepted
	l.matches[matchID] = m
	l.updates++
	return &m, nil
}

func (l *fakeLedger) ExpireStaleMatches(ctx context.Context, cutoff time.Time) ([]models.MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.MatchRecord
	for id, m := range l.matches {
		if m.Status == models.MatchStatusOpen && m.CreatedAt.Before(cutoff) {
			m.Status = models.MatchStatusExpired
			l.matches[id] = m
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeChannels struct {
	mu          sync.Mutex
	created     []string
	deleted     []string
	restricted  map[string][]string
	sent        map[string][]string
	restrictErr error // returned once
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{
		restricted: make(map[string][]string),
		sent:       make(map[string][]string),
	}
}

func (c *fakeChannels) CreateMatchChannel(ctx context.Context, guildID, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, name)
	return "chan-" + name, nil
}

func (c *fakeChannels) RestrictChannel(ctx context.Context, guildID, channelID string, memberIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.restrictErr; err != nil {
		c.restrictErr = nil
		return err
	}
	c.restricted[channelID] = memberIDs
	return nil
}

func (c *fakeChannels) DeleteChannel(ctx context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, channelID)
	return nil
}

func (c *fakeChannels) Send(ctx context.Context, channelID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[channelID] = append(c.sent[channelID], content)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

func newTestService(ledger *fakeLedger, channels *fakeChannels, locker Locker) *Service {
	return NewService(&fakeAllocator{next: 41}, ledger, channels, locker, "https://frontpage.example", time.Hour, zap.NewNop())
}

func openTestChallenge(t *testing.T, svc *Service) *models.MatchRecord {
	t.Helper()
	match, err := svc.Open(context.Background(), OpenRequest{
		GuildID:        "guild",
		CreatorID:      "creator",
		CreatorName:    "Ryu",
		PostID:         "msg-1",
		Platform:       "PC",
		Game:           "Tekken 8",
		MatchAmountUSD: 10,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return match
}

func TestOpen(t *testing.T) {
	ledger := newFakeLedger()
	channels := newFakeChannels()
	svc := newTestService(ledger, channels, nil)

	match := openTestChallenge(t, svc)

	if match.MatchID != 42 {
		t.Errorf("MatchID = %d, want 42", match.MatchID)
	}
	if match.Status != models.MatchStatusOpen {
		t.Errorf("Status = %q, want open", match.Status)
	}
	if len(channels.created) != 1 || channels.created[0] != "1v1-ryu-pc-tekken-8" {
		t.Errorf("created channels = %v", channels.created)
	}
	if len(channels.sent[match.ChannelID]) != 1 {
		t.Errorf("expected match parameters in channel, got %v", channels.sent[match.ChannelID])
	}
}

func TestOpenFailures(t *testing.T) {
	t.Run("direct message", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), newFakeChannels(), nil)
		_, err := svc.Open(context.Background(), OpenRequest{CreatorID: "creator"})
		if !errors.Is(err, models.ErrNoGuild) {
			t.Fatalf("Open() error = %v, want ErrNoGuild", err)
		}
	})

	t.Run("allocator down", func(t *testing.T) {
		channels := newFakeChannels()
		svc := NewService(&fakeAllocator{err: errors.New("rpc down")}, newFakeLedger(), channels, nil, "", time.Hour, zap.NewNop())
		if _, err := svc.Open(context.Background(), OpenRequest{GuildID: "guild"}); err == nil {
			t.Fatal("Open() error = nil, want allocator error")
		}
		if len(channels.created) != 0 {
			t.Errorf("channel created despite allocation failure")
		}
	})

	t.Run("ledger rejects", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.createErr = errors.New("constraint violation")
		channels := newFakeChannels()
		svc := newTestService(ledger, channels, nil)

		_, err := svc.Open(context.Background(), OpenRequest{GuildID: "guild", CreatorName: "Ken"})
		if !errors.Is(err, models.ErrLedgerWriteRejected) {
			t.Fatalf("Open() error = %v, want ErrLedgerWriteRejected", err)
		}
		if !errors.Is(err, ledger.createErr) || !strings.Contains(err.Error(), "constraint violation") {
			t.Errorf("Open() error = %v, lost the ledger cause", err)
		}
		if len(channels.deleted) != 1 {
			t.Errorf("orphaned channel not deleted: %v", channels.deleted)
		}
	})
}

func TestAccept(t *testing.T) {
	ledger := newFakeLedger()
	channels := newFakeChannels()
	svc := newTestService(ledger, channels, nil)
	match := openTestChallenge(t, svc)
	ctx := context.Background()

	got, err := svc.Accept(ctx, AcceptRequest{GuildID: "guild", MatchID: match.MatchID, AcceptorID: "acceptor", AcceptorName: "Ken"})
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if got.Player2Name == nil || *got.Player2Name != "Ken" {
		t.Errorf("Player2Name = %v, want Ken", got.Player2Name)
	}

	members := channels.restricted[match.ChannelID]
	if len(members) != 2 || members[0] != "creator" || members[1] != "acceptor" {
		t.Errorf("restricted members = %v", members)
	}
	// parameters plus two acceptance notices
	if n := len(channels.sent[match.ChannelID]); n != 3 {
		t.Errorf("messages in channel = %d, want 3", n)
	}

	tests := []struct {
		name    string
		req     AcceptRequest
		wantErr error
	}{
		{name: "second acceptor", req: AcceptRequest{MatchID: match.MatchID, AcceptorID: "late"}, wantErr: models.ErrAlreadyAccepted},
		{name: "own challenge", req: AcceptRequest{MatchID: match.MatchID, AcceptorID: "creator"}, wantErr: models.ErrOwnChallenge},
		{name: "unknown match", req: AcceptRequest{MatchID: 999, AcceptorID: "someone"}, wantErr: models.ErrMatchNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Accept(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Accept() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAcceptDoubleActivation(t *testing.T) {
	ledger := newFakeLedger()
	channels := newFakeChannels()
	svc := newTestService(ledger, channels, &fakeLocker{held: make(map[string]bool)})
	match := openTestChallenge(t, svc)

	acceptors := []string{"p2", "p3", "p2", "p4", "p5", "p2"}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners = make(map[string]bool)
	)
	for _, id := range acceptors {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Accept(context.Background(), AcceptRequest{GuildID: "guild", MatchID: match.MatchID, AcceptorID: id, AcceptorName: id})
			switch {
			case err == nil:
				mu.Lock()
				winners[id] = true
				mu.Unlock()
			case errors.Is(err, models.ErrAlreadyAccepted), errors.Is(err, models.ErrAcceptInProgress):
			default:
				t.Errorf("Accept(%s) unexpected error = %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("players who won the match = %v, want exactly one", winners)
	}
	if ledger.updates != 1 {
		t.Fatalf("ledger updates = %d, want 1", ledger.updates)
	}
	stored, _ := ledger.GetMatch(context.Background(), match.MatchID)
	if stored.Player2ID == nil || stored.Player2Name == nil || *stored.Player2ID != *stored.Player2Name {
		t.Errorf("inconsistent second player: %v / %v", stored.Player2ID, stored.Player2Name)
	}
}

func TestAcceptResumesAfterChannelFailure(t *testing.T) {
	ledger := newFakeLedger()
	channels := newFakeChannels()
	svc := newTestService(ledger, channels, nil)
	match := openTestChallenge(t, svc)
	ctx := context.Background()
	req := AcceptRequest{GuildID: "guild", MatchID: match.MatchID, AcceptorID: "acceptor", AcceptorName: "Ken"}

	channels.restrictErr = errors.New("discord 500")
	if _, err := svc.Accept(ctx, req); err == nil {
		t.Fatal("Accept() error = nil, want restrict failure")
	}
	if _, ok := channels.restricted[match.ChannelID]; ok {
		t.Fatal("channel restricted despite failure")
	}

	if _, err := svc.Accept(ctx, AcceptRequest{GuildID: "guild", MatchID: match.MatchID, AcceptorID: "late"}); !errors.Is(err, models.ErrAlreadyAccepted) {
		t.Fatalf("Accept(other player) error = %v, want ErrAlreadyAccepted", err)
	}
	if _, ok := channels.restricted[match.ChannelID]; ok {
		t.Fatal("another player's click touched the channel")
	}

	got, err := svc.Accept(ctx, req)
	if err != nil {
		t.Fatalf("Accept(retry) error = %v", err)
	}
	if got.Player2ID == nil || *got.Player2ID != "acceptor" {
		t.Errorf("Player2ID = %v, want acceptor", got.Player2ID)
	}
	members := channels.restricted[match.ChannelID]
	if len(members) != 2 || members[0] != "creator" || members[1] != "acceptor" {
		t.Errorf("restricted members = %v", members)
	}
	if ledger.updates != 1 {
		t.Errorf("ledger updates = %d, want 1", ledger.updates)
	}
}

func TestExpireStale(t *testing.T) {
	ledger := newFakeLedger()
	channels := newFakeChannels()
	svc := newTestService(ledger, channels, nil)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.Add(-2 * time.Hour) }
	old := openTestChallenge(t, svc)
	svc.now = func() time.Time { return now }
	fresh := openTestChallenge(t, svc)

	n, err := svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if len(channels.deleted) != 1 || channels.deleted[0] != old.ChannelID {
		t.Errorf("deleted channels = %v, want [%s]", channels.deleted, old.ChannelID)
	}
	if m, _ := ledger.GetMatch(context.Background(), fresh.MatchID); m.Status != models.MatchStatusOpen {
		t.Errorf("fresh match status = %q, want open", m.Status)
	}
}
