// internal/challenge/service.go
package challenge

import (
	"context"
	"fmt"
	"time"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Allocator hands out globally unique match ids.
type Allocator interface {
	NextMatchID(ctx context.Context) (int64, error)
}

type Ledger interface {
	CreateMatch(ctx context.Context, match *models.MatchRecord) error
	GetMatch(ctx context.Context, matchID int64) (*models.MatchRecord, error)
	AcceptMatch(ctx context.Context, matchID int64, playerID, playerName string) (*models.MatchRecord, error)
	ExpireStaleMatches(ctx context.Context, cutoff time.Time) ([]models.MatchRecord, error)
}

// Channels is the chat platform side of a challenge.
type Channels interface {
	CreateMatchChannel(ctx context.Context, guildID, name string) (string, error)
	// RestrictChannel hides the channel from everyone except the given members and the bot.
	RestrictChannel(ctx context.Context, guildID, channelID string, memberIDs ...string) error
	DeleteChannel(ctx context.Context, channelID string) error
	Send(ctx context.Context, channelID, content string) error
}

// Locker is an optional cross-process guard in front of the ledger update.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

type OpenRequest struct {
	GuildID        string
	CreatorID      string
	CreatorName    string
	PostID         string
	Prompt         string
	Platform       string
	Category       string
	Game           string
	MatchAmountUSD int64
}

type AcceptRequest struct {
	GuildID      string
	MatchID      int64
	AcceptorID   string
	AcceptorName string
}

type Service struct {
	allocator    Allocator
	ledger       Ledger
	channels     Channels
	locker       Locker
	frontpageURL string
	ttl          time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(allocator Allocator, ledger Ledger, channels Channels, locker Locker, frontpageURL string, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		allocator:    allocator,
		ledger:       ledger,
		channels:     channels,
		locker:       locker,
		frontpageURL: frontpageURL,
		ttl:          ttl,
		logger:       logger.With(zap.String("feature", "challenge")),
		now:          time.Now,
	}
}

// Open creates the placeholder channel and the ledger row for a new challenge.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*models.MatchRecord, error) {
	if req.GuildID == "" {
		return nil, models.ErrNoGuild
	}

	matchID, err := s.allocator.NextMatchID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "allocate match id")
	}

	channelID, err := s.channels.CreateMatchChannel(ctx, req.GuildID, ChannelName(req.CreatorName, req.Platform, req.Game))
	if err != nil {
		return nil, errors.Wrap(err, "create match channel")
	}

	match := &models.MatchRecord{
		MatchID:        matchID,
		ChannelID:      channelID,
		Player1ID:      req.CreatorID,
		Player1Name:    req.CreatorName,
		MatchAmountUSD: req.MatchAmountUSD,
		Category:       req.Category,
		Platform:       req.Platform,
		Game:           req.Game,
		Status:         models.MatchStatusOpen,
		PostID:         req.PostID,
		CreatedAt:      s.now(),
	}
	if err := s.ledger.CreateMatch(ctx, match); err != nil {
		if derr := s.channels.DeleteChannel(ctx, channelID); derr != nil {
			s.logger.Warn("unable to remove orphaned match channel",
				zap.String("channel_id", channelID),
				zap.Error(derr),
			)
		}
		s.logger.Error("ledger rejected new challenge",
			zap.Int64("match_id", matchID),
			zap.String("creator_id", req.CreatorID),
			zap.Error(err),
		)
		return nil, &models.LedgerError{Err: err}
	}

	if err := s.channels.Send(ctx, channelID, matchParameters(match, s.frontpageURL)); err != nil {
		s.logger.Warn("unable to post match parameters",
			zap.Int64("match_id", matchID),
			zap.Error(err),
		)
	}

	s.logger.Info("challenge opened",
		zap.Int64("match_id", matchID),
		zap.String("channel_id", channelID),
		zap.String("creator_id", req.CreatorID),
	)
	return match, nil
}

// Accept assigns the second player. Only the first caller for a match wins it;
// the ledger's conditional update is the guard, the lock only saves a round trip.
// A repeat by the winner completes the channel setup again.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (*models.MatchRecord, error) {
	match, err := s.ledger.GetMatch(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	if match.Player1ID == req.AcceptorID {
		return match, models.ErrOwnChallenge
	}

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, fmt.Sprintf("accept:%d", req.MatchID))
		switch {
		case err != nil:
			s.logger.Warn("accept lock unavailable", zap.Int64("match_id", req.MatchID), zap.Error(err))
		case !ok:
			return match, models.ErrAcceptInProgress
		default:
			defer release()
		}
	}

	match, err = s.ledger.AcceptMatch(ctx, req.MatchID, req.AcceptorID, req.AcceptorName)
	switch {
	case errors.Is(err, models.ErrAlreadyAccepted) && acceptedBy(match, req.AcceptorID):
		// The same player pressing again finishes a setup that failed after the ledger write.
		s.logger.Info("resuming accepted challenge setup",
			zap.Int64("match_id", req.MatchID),
			zap.String("acceptor_id", req.AcceptorID),
		)
	case err != nil:
		return match, err
	}

	if err := s.channels.RestrictChannel(ctx, req.GuildID, match.ChannelID, match.Player1ID, req.AcceptorID); err != nil {
		return match, errors.Wrap(err, "restrict match channel")
	}

	for _, notice := range []string{
		fmt.Sprintf("<@%s> and <@%s>, your private match channel is ready!", match.Player1ID, req.AcceptorID),
		fmt.Sprintf("<@%s>, please start the match on the 1v1 frontpage.", match.Player1ID),
	} {
		if err := s.channels.Send(ctx, match.ChannelID, notice); err != nil {
			return match, errors.Wrap(err, "send acceptance notice")
		}
	}

	s.logger.Info("challenge accepted",
		zap.Int64("match_id", match.MatchID),
		zap.String("acceptor_id", req.AcceptorID),
	)
	return match, nil
}

func acceptedBy(match *models.MatchRecord, playerID string) bool {
	return match != nil && match.Status == models.MatchStatusAccepted &&
		match.Player2ID != nil && *match.Player2ID == playerID
}

// ExpireStale closes open challenges older than the configured TTL and removes their channels.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.ledger.ExpireStaleMatches(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}

	for _, match := range expired {
		if err := s.channels.DeleteChannel(ctx, match.ChannelID); err != nil {
			s.logger.Warn("unable to delete expired match channel",
				zap.Int64("match_id", match.MatchID),
				zap.String("channel_id", match.ChannelID),
				zap.Error(err),
			)
		}
	}
	return len(expired), nil
}

func matchParameters(match *models.MatchRecord, frontpageURL string) string {
	msg := fmt.Sprintf("1v1 Match Parameters:\nPlatform: %s\nCategory: %s\nGame: %s\nMatch Amount: $%d\n\n<@%s>, please start the match",
		orDash(match.Platform), orDash(match.Category), orDash(match.Game), match.MatchAmountUSD, match.Player1ID)
	if frontpageURL != "" {
		msg += "\n1v1 Frontpage: " + frontpageURL
	}
	return msg
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
