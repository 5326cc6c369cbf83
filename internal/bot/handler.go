// internal/bot/handler.go
package bot

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"insert-coin-bot/internal/challenge"
	"insert-coin-bot/internal/config"
	"insert-coin-bot/internal/logging"
	"insert-coin-bot/internal/models"
	"insert-coin-bot/internal/rag"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxMessageLength = 2000

type PostWorkflow interface {
	Handle(ctx context.Context, msg rag.Message) rag.Response
	RecordSetupPost(ctx context.Context, setup rag.Setup) error
	History(ctx context.Context, authorID string) (string, error)
}

type Challenges interface {
	Open(ctx context.Context, req challenge.OpenRequest) (*models.MatchRecord, error)
	Accept(ctx context.Context, req challenge.AcceptRequest) (*models.MatchRecord, error)
}

type TournamentStore interface {
	CreateTournament(ctx context.Context, t *models.Tournament) error
	SetTournamentStatus(ctx context.Context, id int64, status models.TournamentStatus) error
	AddTournamentEntrant(ctx context.Context, tournamentID int64, userID string) (bool, error)
	RemoveTournamentEntrant(ctx context.Context, tournamentID int64, userID string) error
	AddTournamentChannel(ctx context.Context, tournamentID int64, channelID, userID string) error
}

// ChannelManager is implemented by Channels.
type ChannelManager interface {
	CreatePrivateChannel(ctx context.Context, guildID, name string, memberIDs ...string) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	Send(ctx context.Context, channelID, content string) error
}

type TournamentAllocator interface {
	NextTournamentID(ctx context.Context) (int64, error)
}

type Options struct {
	Workflow      PostWorkflow
	Challenges    Challenges
	Tournaments   TournamentStore
	Allocator     TournamentAllocator
	Channels      ChannelManager
	Catalog       *config.Catalog
	AdminID       string
	TournamentURL string
	CallTimeout   time.Duration
	Logger        *zap.Logger
}

type BotHandler struct {
	workflow      PostWorkflow
	challenges    Challenges
	tournaments   TournamentStore
	allocator     TournamentAllocator
	channels      ChannelManager
	catalog       *config.Catalog
	adminID       string
	tournamentURL string
	callTimeout   time.Duration
	logger        *zap.Logger
}

func NewBotHandler(opts Options) *BotHandler {
	return &BotHandler{
		workflow:      opts.Workflow,
		challenges:    opts.Challenges,
		tournaments:   opts.Tournaments,
		allocator:     opts.Allocator,
		channels:      opts.Channels,
		catalog:       opts.Catalog,
		adminID:       opts.AdminID,
		tournamentURL: opts.TournamentURL,
		callTimeout:   opts.CallTimeout,
		logger:        opts.Logger.With(zap.String("feature", "bot")),
	}
}

// AddHandlers registers the event handlers on s. Call it before opening the session.
func (h *BotHandler) AddHandlers(s *discordgo.Session) {
	s.AddHandler(h.OnMessageCreate)
	s.AddHandler(h.OnInteractionCreate)
}

func (h *BotHandler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	botID := selfID(s)
	// Ignore bot messages
	if m.Author == nil || m.Author.ID == botID {
		return
	}
	if !mentionsUser(m.Message, botID) {
		return
	}

	logger := h.eventLogger("message_create").With(
		zap.String("channel_id", m.ChannelID),
		zap.String("author_id", m.Author.ID),
	)
	defer h.recoverEvent(logger)

	ctx := context.Background()
	s.ChannelTyping(m.ChannelID, discordgo.WithContext(ctx)) // nolint: errcheck

	resp := h.workflow.Handle(ctx, rag.Message{
		ID:         m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m.Member, m.Author),
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		Content:    m.Content,
		BotID:      botID,
	})

	if resp.Announcement != nil {
		_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
			Content:    truncate(resp.Announcement.Content),
			Components: buttonRow("Accept", challenge.CustomID(challenge.AcceptPrefix, resp.Announcement.MatchID)),
		}, discordgo.WithContext(ctx))
		if err != nil {
			h.reportError(logger, errors.Wrap(err, "send challenge announcement"))
		}
	}

	if resp.Private {
		h.sendPrivate(ctx, s, m, resp.Reply, logger)
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, truncate(resp.Reply), m.Reference(), discordgo.WithContext(ctx)); err != nil {
		h.reportError(logger, errors.Wrap(err, "send reply"))
	}
}

// sendPrivate delivers content by DM, falling back to a reply when DMs are closed.
func (h *BotHandler) sendPrivate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, content string, logger *zap.Logger) {
	dm, err := s.UserChannelCreate(m.Author.ID, discordgo.WithContext(ctx))
	if err == nil {
		_, err = s.ChannelMessageSend(dm.ID, truncate(content), discordgo.WithContext(ctx))
	}
	if err == nil {
		return
	}

	logger.Debug("direct message failed, replying in channel", zap.Error(err))
	if _, err := s.ChannelMessageSendReply(m.ChannelID, truncate(content), m.Reference(), discordgo.WithContext(ctx)); err != nil {
		h.reportError(logger, errors.Wrap(err, "send private reply"))
	}
}

func (h *BotHandler) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	logger := h.eventLogger("interaction_create").With(zap.String("interaction_id", i.ID))
	defer h.recoverEvent(logger)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(s, i, logger)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i, logger)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(s, i, logger)
	}
}

func (h *BotHandler) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, logger *zap.Logger) {
	prefix, id, err := challenge.ParseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		logger.Warn("unknown component", zap.Error(err))
		return
	}

	switch prefix {
	case challenge.AcceptPrefix:
		h.handleAccept(s, i, id, logger.With(zap.Int64("match_id", id)))
	case challenge.JoinPrefix:
		h.handleJoinTournament(s, i, id, logger.With(zap.Int64("tournament_id", id)))
	default:
		logger.Warn("unknown component prefix", zap.String("prefix", prefix))
	}
}

func (h *BotHandler) eventLogger(event string) *zap.Logger {
	return h.logger.With(
		zap.String("event", event),
		zap.String("event_id", uuid.New().String()),
	)
}

func (h *BotHandler) recoverEvent(logger *zap.Logger) {
	if r := recover(); r != nil {
		h.reportError(logger, errors.Errorf("panic in event handler: %v", r))
	}
}

func (h *BotHandler) reportError(logger *zap.Logger, err error) {
	logger.Error("event handling failed", zap.Error(err))
	logging.CaptureError(err, map[string]string{"feature": "bot"})
}

func (h *BotHandler) callContext() (context.Context, context.CancelFunc) {
	if h.callTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), h.callTimeout)
}

func (h *BotHandler) isAdmin(userID string) bool {
	return h.adminID != "" && userID == h.adminID
}

func selfID(s *discordgo.Session) string {
	if s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

// interactionUser returns the invoking user for both guild and DM interactions.
func interactionUser(i *discordgo.InteractionCreate) (*discordgo.Member, *discordgo.User) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member, i.Member.User
	}
	return nil, i.User
}

// isExpiredInteraction reports a REST 404, which Discord returns once an interaction token is gone.
func isExpiredInteraction(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func buttonRow(label, customID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    label,
					Style:    discordgo.SuccessButton,
					CustomID: customID,
				},
			},
		},
	}
}

func truncate(content string) string {
	if utf8.RuneCountInString(content) <= maxMessageLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxMessageLength-1]) + "…"
}
