// internal/bot/challenge.go
package bot

import (
	"fmt"

	"insert-coin-bot/internal/challenge"
	"insert-coin-bot/internal/models"
	"insert-coin-bot/internal/rag"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgChallengePosted   = "%s has initiated a 1v1 challenge for %s on %s with a match amount of $%d. Waiting for an opponent!"
	msgChallengeFailed   = "There was an error creating the match. Please try again later."
	msgChallengeNoGuild  = "1v1 challenges can only be created inside a server."
	msgRecordFailed      = "An error occurred while fetching your post history. Please try again later."
	msgAcceptReady       = "Your private match channel <#%s> is ready!"
	msgAcceptTaken       = "This challenge has already been accepted."
	msgAcceptClosed      = "This challenge is no longer open."
	msgAcceptOwn         = "You cannot accept your own challenge."
	msgAcceptBusy        = "Someone else is accepting this challenge right now. Please try again in a moment."
	msgAcceptNotFound    = "This challenge could not be found."
	msgAcceptFailed      = "An error occurred while processing the match acceptance. Please try again or contact an administrator."
	msgAcceptLateSuccess = "<@%s>, there was an issue processing your request. The match has been accepted, but there might be some delays."
)

// acceptMessage maps the outcome of an accept to the text shown to the acceptor.
func acceptMessage(match *models.MatchRecord, err error) string {
	switch {
	case err == nil && match != nil:
		return fmt.Sprintf(msgAcceptReady, match.ChannelID)
	case errors.Is(err, models.ErrAlreadyAccepted):
		return msgAcceptTaken
	case errors.Is(err, models.ErrMatchClosed):
		return msgAcceptClosed
	case errors.Is(err, models.ErrOwnChallenge):
		return msgAcceptOwn
	case errors.Is(err, models.ErrAcceptInProgress):
		return msgAcceptBusy
	case errors.Is(err, models.ErrMatchNotFound):
		return msgAcceptNotFound
	}
	return msgAcceptFailed
}

// expectedAcceptError reports outcomes that are user mistakes rather than faults.
func expectedAcceptError(err error) bool {
	for _, target := range []error{
		models.ErrAlreadyAccepted,
		models.ErrMatchClosed,
		models.ErrOwnChallenge,
		models.ErrAcceptInProgress,
		models.ErrMatchNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *BotHandler) handleAccept(s *discordgo.Session, i *discordgo.InteractionCreate, matchID int64, logger *zap.Logger) {
	member, user := interactionUser(i)
	if user == nil {
		return
	}

	// A stale token must not block the accept itself.
	deferErr := deferResponse(s, i, true)
	expired := deferErr != nil && isExpiredInteraction(deferErr)
	if deferErr != nil && !expired {
		h.reportError(logger, errors.Wrap(deferErr, "defer accept"))
		return
	}

	ctx, cancel := h.callContext()
	defer cancel()

	match, err := h.challenges.Accept(ctx, challenge.AcceptRequest{
		GuildID:      i.GuildID,
		MatchID:      matchID,
		AcceptorID:   user.ID,
		AcceptorName: displayName(member, user),
	})
	switch {
	case err == nil:
		logger.Info("challenge accepted", zap.String("acceptor_id", user.ID))
	case expectedAcceptError(err):
		logger.Info("challenge not accepted", zap.Error(err))
	default:
		h.reportError(logger, errors.Wrap(err, "accept challenge"))
	}

	if !expired {
		fErr := followup(s, i, &discordgo.WebhookParams{
			Content: acceptMessage(match, err),
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		if fErr == nil {
			return
		}
		if !isExpiredInteraction(fErr) {
			h.reportError(logger, errors.Wrap(fErr, "send accept followup"))
			return
		}
	}

	if sendErr := h.channels.Send(ctx, i.ChannelID, lateAcceptMessage(user.ID, match, err)); sendErr != nil {
		h.reportError(logger, errors.Wrap(sendErr, "send late accept notice"))
	}
}

// lateAcceptMessage is posted in the channel when the interaction can no longer be answered.
func lateAcceptMessage(userID string, match *models.MatchRecord, err error) string {
	if err == nil {
		return fmt.Sprintf(msgAcceptLateSuccess, userID)
	}
	return fmt.Sprintf("<@%s>, %s", userID, acceptMessage(match, err))
}

func (h *BotHandler) handleOneVOne(s *discordgo.Session, i *discordgo.InteractionCreate, options optionMap, logger *zap.Logger) {
	member, user := interactionUser(i)
	if user == nil {
		return
	}
	if i.GuildID == "" {
		if err := respondEphemeral(s, i, msgChallengeNoGuild); err != nil {
			logger.Warn("respond failed", zap.Error(err))
		}
		return
	}

	if err := deferResponse(s, i, false); err != nil {
		h.reportError(logger, errors.Wrap(err, "defer 1v1"))
		return
	}

	ctx, cancel := h.callContext()
	defer cancel()

	req := challenge.OpenRequest{
		GuildID:        i.GuildID,
		CreatorID:      user.ID,
		CreatorName:    displayName(member, user),
		PostID:         i.ID,
		Platform:       options.stringValue(optionPlatform),
		Category:       options.stringValue(optionCategory),
		Game:           options.stringValue(optionGame),
		MatchAmountUSD: options.intValue(optionAmount),
	}

	match, err := h.challenges.Open(ctx, req)
	if err != nil {
		h.reportError(logger, errors.Wrap(err, "open 1v1"))
		if fErr := followup(s, i, &discordgo.WebhookParams{Content: msgChallengeFailed}); fErr != nil {
			logger.Warn("followup failed", zap.Error(fErr))
		}
		return
	}
	logger = logger.With(zap.Int64("match_id", match.MatchID))

	if err := h.workflow.RecordSetupPost(ctx, rag.Setup{
		ID:             i.ID,
		AuthorID:       user.ID,
		Platform:       req.Platform,
		Category:       req.Category,
		Game:           req.Game,
		MatchAmountUSD: req.MatchAmountUSD,
	}); err != nil {
		logger.Warn("unable to record 1v1 post", zap.Error(err))
	}

	err = followup(s, i, &discordgo.WebhookParams{
		Content:    fmt.Sprintf(msgChallengePosted, user.Mention(), req.Game, req.Platform, req.MatchAmountUSD),
		Components: buttonRow("Accept", challenge.CustomID(challenge.AcceptPrefix, match.MatchID)),
	})
	if err != nil {
		h.reportError(logger, errors.Wrap(err, "post 1v1 challenge"))
	}
}

func (h *BotHandler) handleRecord(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger) {
	_, user := interactionUser(i)
	if user == nil {
		return
	}

	if err := deferResponse(s, i, true); err != nil {
		h.reportError(logger, errors.Wrap(err, "defer record"))
		return
	}

	ctx, cancel := h.callContext()
	defer cancel()

	content, err := h.workflow.History(ctx, user.ID)
	if err != nil {
		h.reportError(logger, errors.Wrap(err, "load history"))
		content = msgRecordFailed
	}

	if err := followup(s, i, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		h.reportError(logger, errors.Wrap(err, "send history"))
	}
}
