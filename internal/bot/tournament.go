// internal/bot/tournament.go
package bot

import (
	"context"
	"fmt"
	"strconv"

	"insert-coin-bot/internal/challenge"
	"insert-coin-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgTournamentCreated      = "Tournament created with ID: %d. Click to join!"
	msgTournamentCreateFailed = "Failed to create tournament. Please try again."
	msgTournamentStarted      = "Tournament %d has started!"
	msgTournamentEnded        = "Tournament %d has ended!"
	msgTournamentStatusFailed = "Failed to %s tournament. Please check the tournament ID and try again."
	msgTournamentAdminOnly    = "Only an administrator can manage tournaments."
	msgTournamentJoined       = "Private channel created! <#%s>"
	msgTournamentJoinFailed   = "Failed to join the tournament. Please try again."
	msgTournamentAlready      = "You have already joined this tournament."
	msgTournamentFull         = "This tournament is full."
	msgTournamentNotOpen      = "This tournament is not open for new entrants."
	msgTournamentWelcome      = "Welcome to your private tournament channel! Here is a demo link: %s"
)

func tournamentChannelName(tournamentID int64, username string) string {
	return challenge.SanitizeChannelName("tournament-" + strconv.FormatInt(tournamentID, 10) + "-" + username)
}

func joinFailureMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrTournamentFull):
		return msgTournamentFull
	case errors.Is(err, models.ErrTournamentClosed), errors.Is(err, models.ErrTournamentNotFound):
		return msgTournamentNotOpen
	}
	return msgTournamentJoinFailed
}

func (h *BotHandler) handleCreateTournament(s *discordgo.Session, i *discordgo.InteractionCreate, options optionMap, logger *zap.Logger) {
	if err := deferResponse(s, i, false); err != nil {
		h.reportError(logger, errors.Wrap(err, "defer create tournament"))
		return
	}

	ctx, cancel := h.callContext()
	defer cancel()

	id, err := h.allocator.NextTournamentID(ctx)
	if err == nil {
		err = h.tournaments.CreateTournament(ctx, &models.Tournament{
			ID:          id,
			NumEntrants: int(options.intValue(optionEntrants)),
			Status:      models.TournamentOpen,
			Platform:    options.stringValue(optionPlatform),
			Category:    options.stringValue(optionCategory),
			Game:        options.stringValue(optionGame),
		})
	}
	if err != nil {
		h.reportError(logger, errors.Wrap(err, "create tournament"))
		if fErr := followup(s, i, &discordgo.WebhookParams{Content: msgTournamentCreateFailed}); fErr != nil {
			logger.Warn("followup failed", zap.Error(fErr))
		}
		return
	}

	logger.Info("tournament created", zap.Int64("tournament_id", id))
	err = followup(s, i, &discordgo.WebhookParams{
		Content:    fmt.Sprintf(msgTournamentCreated, id),
		Components: buttonRow("Join Tournament", challenge.CustomID(challenge.JoinPrefix, id)),
	})
	if err != nil {
		h.reportError(logger, errors.Wrap(err, "post tournament"))
	}
}

func (h *BotHandler) handleTournamentStatus(s *discordgo.Session, i *discordgo.InteractionCreate, options optionMap, start bool, logger *zap.Logger) {
	_, user := interactionUser(i)
	if user == nil {
		return
	}
	if !h.isAdmin(user.ID) {
		if err := respondEphemeral(s, i, msgTournamentAdminOnly); err != nil {
			logger.Warn("respond failed", zap.Error(err))
		}
		return
	}

	id := options.intValue(optionTournament)
	status, done, verb := models.TournamentClosed, msgTournamentEnded, "end"
	if start {
		status, done, verb = models.TournamentInProgress, msgTournamentStarted, "start"
	}

	ctx, cancel := h.callContext()
	defer cancel()

	content := fmt.Sprintf(done, id)
	if err := h.tournaments.SetTournamentStatus(ctx, id, status); err != nil {
		if errors.Is(err, models.ErrTournamentNotFound) {
			logger.Info("tournament not found", zap.Int64("tournament_id", id))
		} else {
			h.reportError(logger, errors.Wrapf(err, "%s tournament", verb))
		}
		content = fmt.Sprintf(msgTournamentStatusFailed, verb)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		logger.Warn("respond failed", zap.Error(err))
	}
}

func (h *BotHandler) handleJoinTournament(s *discordgo.Session, i *discordgo.InteractionCreate, tournamentID int64, logger *zap.Logger) {
	_, user := interactionUser(i)
	if user == nil || i.GuildID == "" {
		return
	}

	if err := deferResponse(s, i, true); err != nil {
		h.reportError(logger, errors.Wrap(err, "defer join"))
		return
	}

	ctx, cancel := h.callContext()
	defer cancel()

	content, err := h.joinTournament(ctx, i.GuildID, tournamentID, user)
	if err != nil {
		if errors.Is(err, models.ErrTournamentFull) || errors.Is(err, models.ErrTournamentClosed) ||
			errors.Is(err, models.ErrTournamentNotFound) {
			logger.Info("join rejected", zap.Error(err))
		} else {
			h.reportError(logger, err)
		}
		content = joinFailureMessage(err)
	}

	if err := followup(s, i, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		h.reportError(logger, errors.Wrap(err, "send join followup"))
	}
}

func (h *BotHandler) joinTournament(ctx context.Context, guildID string, tournamentID int64, user *discordgo.User) (string, error) {
	joined, err := h.tournaments.AddTournamentEntrant(ctx, tournamentID, user.ID)
	if err != nil {
		return "", err
	}
	if !joined {
		return msgTournamentAlready, nil
	}

	channelID, err := h.channels.CreatePrivateChannel(ctx, guildID, tournamentChannelName(tournamentID, user.Username), user.ID)
	if err != nil {
		h.releaseSeat(ctx, tournamentID, user.ID)
		return "", err
	}
	if err := h.tournaments.AddTournamentChannel(ctx, tournamentID, channelID, user.ID); err != nil {
		if derr := h.channels.DeleteChannel(ctx, channelID); derr != nil {
			h.logger.Warn("unable to remove tournament channel", zap.String("channel_id", channelID), zap.Error(derr))
		}
		h.releaseSeat(ctx, tournamentID, user.ID)
		return "", err
	}
	if err := h.channels.Send(ctx, channelID, fmt.Sprintf(msgTournamentWelcome, h.tournamentURL)); err != nil {
		h.logger.Warn("unable to send tournament welcome", zap.String("channel_id", channelID), zap.Error(err))
	}
	return fmt.Sprintf(msgTournamentJoined, channelID), nil
}

// releaseSeat undoes a registration whose channel could not be set up, so the
// user can join again.
func (h *BotHandler) releaseSeat(ctx context.Context, tournamentID int64, userID string) {
	if err := h.tournaments.RemoveTournamentEntrant(ctx, tournamentID, userID); err != nil {
		h.logger.Error("unable to release tournament seat",
			zap.Int64("tournament_id", tournamentID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
