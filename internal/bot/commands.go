// internal/bot/commands.go
package bot

import (
	"strings"

	"insert-coin-bot/internal/config"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	commandOneVOne          = "1v1"
	commandRecord           = "record"
	commandCreateTournament = "create_tournament"
	commandStartTournament  = "start_tournament"
	commandEndTournament    = "end_tournament"

	optionPlatform    = "platform"
	optionCategory    = "category"
	optionGame        = "game"
	optionAmount      = "match_amount_usd"
	optionEntrants    = "num_entrants"
	optionTournament  = "tournament_id"
	maxAutocompletion = 25
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func parseOptions(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	om := make(optionMap, len(options))
	for _, opt := range options {
		om[opt.Name] = opt
	}
	return om
}

func (om optionMap) stringValue(name string) string {
	if opt, ok := om[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (om optionMap) intValue(name string) int64 {
	if opt, ok := om[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func choices(values []string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return out
}

// gameOptions are shared by /1v1 and /create_tournament.
func gameOptions(catalog *config.Catalog) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optionPlatform,
			Description: "Platform the match is played on",
			Required:    true,
			Choices:     choices(catalog.Platforms),
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        optionCategory,
			Description: "Game category",
			Required:    true,
			Choices:     choices(catalog.CategoryNames()),
		},
		{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         optionGame,
			Description:  "Game title",
			Required:     true,
			Autocomplete: true,
		},
	}
}

func commandDefinitions(catalog *config.Catalog) []*discordgo.ApplicationCommand {
	minAmount := float64(1)
	minEntrants := float64(2)
	tournamentID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        optionTournament,
		Description: "Tournament ID",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        commandOneVOne,
			Description: "Set up a 1v1 match",
			Options: append(gameOptions(catalog), &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optionAmount,
				Description: "Match amount in USD",
				Required:    true,
				MinValue:    &minAmount,
			}),
		},
		{
			Name:        commandRecord,
			Description: "Show your latest posts",
		},
		{
			Name:        commandCreateTournament,
			Description: "Create a new tournament",
			Options: append(gameOptions(catalog), &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optionEntrants,
				Description: "Number of entrants",
				Required:    true,
				MinValue:    &minEntrants,
			}),
		},
		{
			Name:        commandStartTournament,
			Description: "Start a tournament",
			Options:     []*discordgo.ApplicationCommandOption{tournamentID},
		},
		{
			Name:        commandEndTournament,
			Description: "End a tournament",
			Options:     []*discordgo.ApplicationCommandOption{tournamentID},
		},
	}
}

// RegisterCommands replaces the application's commands with the current set.
// An empty guildID registers them globally.
func (h *BotHandler) RegisterCommands(s *discordgo.Session, appID, guildID string) error {
	if appID == "" && s.State != nil && s.State.User != nil {
		appID = s.State.User.ID
	}

	defs := commandDefinitions(h.catalog)
	registered, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs)
	if err != nil {
		return errors.Wrap(err, "unable to register commands")
	}
	h.logger.Info("registered commands", zap.Int("count", len(registered)), zap.String("guild_id", guildID))
	return nil
}

func (h *BotHandler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger) {
	data := i.ApplicationCommandData()
	options := parseOptions(data.Options)
	logger = logger.With(zap.String("command", data.Name))

	switch data.Name {
	case commandOneVOne:
		h.handleOneVOne(s, i, options, logger)
	case commandRecord:
		h.handleRecord(s, i, logger)
	case commandCreateTournament:
		h.handleCreateTournament(s, i, options, logger)
	case commandStartTournament:
		h.handleTournamentStatus(s, i, options, true, logger)
	case commandEndTournament:
		h.handleTournamentStatus(s, i, options, false, logger)
	default:
		logger.Warn("unknown command")
	}
}

func (h *BotHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger) {
	data := i.ApplicationCommandData()
	options := parseOptions(data.Options)

	var query string
	for _, opt := range data.Options {
		if opt.Focused {
			query = opt.StringValue()
		}
	}

	games := h.catalog.SearchGames(options.stringValue(optionCategory), query, maxAutocompletion)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices(games),
		},
	})
	if err != nil {
		logger.Warn("autocomplete response failed", zap.Error(err))
	}
}

// respondEphemeral answers an interaction with a message only the invoker sees.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncate(content),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) error {
	params.Content = truncate(params.Content)
	_, err := s.FollowupMessageCreate(i.Interaction, true, params)
	return err
}
