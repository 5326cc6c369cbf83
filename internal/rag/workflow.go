// internal/rag/workflow.go
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"insert-coin-bot/internal/challenge"
	"insert-coin-bot/internal/logging"
	"insert-coin-bot/internal/models"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	listTopK    = 5
	relatedTopK = 5
	historyTopK = 100
	historyShow = 5
)

type Classifier interface {
	Classify(ctx context.Context, text string) models.Label
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

type PostStore interface {
	UpsertPost(ctx context.Context, post *models.Post) error
	QueryPosts(ctx context.Context, q models.PostQuery) ([]models.ScoredPost, error)
	DeletePosts(ctx context.Context, ids ...string) error
	ClearPosts(ctx context.Context) error
}

type Limiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

type ChallengeOpener interface {
	Open(ctx context.Context, req challenge.OpenRequest) (*models.MatchRecord, error)
}

type Config struct {
	AdminID         string
	MaxPromptLength int
	MaxUsesPerDay   int
	MinScore        float64
	CallTimeout     time.Duration
}

// Message is a chat message addressed to the bot.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	ChannelID  string
	GuildID    string
	Content    string
	BotID      string
}

// Announcement is a public message carrying an Accept button for MatchID.
type Announcement struct {
	Content string
	MatchID int64
}

type Response struct {
	Reply string
	// Private replies go to the author only.
	Private      bool
	Announcement *Announcement
}

// Setup is a match configured through the /1v1 command.
type Setup struct {
	ID             string
	AuthorID       string
	Platform       string
	Category       string
	Game           string
	MatchAmountUSD int64
}

type Workflow struct {
	cfg        Config
	classifier Classifier
	embedder   Embedder
	completer  Completer
	store      PostStore
	limiter    Limiter
	challenges ChallengeOpener
	logger     *zap.Logger
	now        func() time.Time
}

func NewWorkflow(
	cfg Config,
	classifier Classifier,
	embedder Embedder,
	completer Completer,
	store PostStore,
	limiter Limiter,
	challenges ChallengeOpener,
	logger *zap.Logger,
) *Workflow {
	return &Workflow{
		cfg:        cfg,
		classifier: classifier,
		embedder:   embedder,
		completer:  completer,
		store:      store,
		limiter:    limiter,
		challenges: challenges,
		logger:     logger.With(zap.String("feature", "workflow")),
		now:        time.Now,
	}
}

// StripMention removes the bot's mention tokens from content.
func StripMention(content, botID string) string {
	if botID != "" {
		content = strings.NewReplacer("<@"+botID+">", "", "<@!"+botID+">", "").Replace(content)
	}
	return strings.TrimSpace(content)
}

// Handle runs one message through the workflow. It never returns an error:
// failures become the generic reply.
func (w *Workflow) Handle(ctx context.Context, msg Message) (resp Response) {
	logger := w.logger.With(
		zap.String("message_id", msg.ID),
		zap.String("author_id", msg.AuthorID),
	)

	defer func() {
		if r := recover(); r != nil {
			w.fail(logger, errors.Errorf("panic handling message: %v", r))
			resp = Response{Reply: MsgGenericFailure}
		}
	}()

	isAdmin := w.cfg.AdminID != "" && msg.AuthorID == w.cfg.AdminID

	if !isAdmin {
		lctx, cancel := w.callContext(ctx)
		allowed, err := w.limiter.Allow(lctx, msg.AuthorID)
		cancel()
		if err != nil {
			logger.Warn("rate limiter unavailable, letting request through", zap.Error(err))
		} else if !allowed {
			logger.Info("daily limit exceeded")
			return Response{Reply: fmt.Sprintf(msgQuotaExceeded, w.cfg.MaxUsesPerDay)}
		}
	}

	prompt := StripMention(msg.Content, msg.BotID)
	if n := utf8.RuneCountInString(prompt); n > w.cfg.MaxPromptLength {
		logger.Info("prompt too long", zap.Int("length", n))
		return Response{Reply: fmt.Sprintf(msgTooLong, w.cfg.MaxPromptLength)}
	}

	if isAdmin && strings.EqualFold(prompt, ClearPhrase) {
		cctx, cancel := w.callContext(ctx)
		defer cancel()
		if err := w.store.ClearPosts(cctx); err != nil {
			w.fail(logger, err)
			return Response{Reply: MsgGenericFailure}
		}
		logger.Warn("post store cleared by admin")
		return Response{Reply: msgCleared}
	}

	if prompt == "" {
		return Response{Reply: HelpMessage}
	}

	label := w.classify(ctx, prompt)
	logger.Debug("prompt classified", zap.String("label", string(label)))

	var err error
	switch label {
	case models.LabelList:
		resp, err = w.list(ctx, prompt)
	case models.LabelDelete:
		resp, err = w.deletePost(ctx, msg.AuthorID, prompt)
	case models.LabelTournament, models.LabelOneVOne:
		resp, err = w.createPost(ctx, msg, label, prompt)
	default:
		resp = Response{Reply: HelpMessage}
	}
	if err != nil {
		w.fail(logger.With(zap.String("label", string(label))), err)
		return Response{Reply: MsgGenericFailure}
	}

	return resp
}

func (w *Workflow) list(ctx context.Context, prompt string) (Response, error) {
	vector, err := w.embed(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	posts, err := w.query(ctx, models.PostQuery{Vector: vector, TopK: listTopK})
	if err != nil {
		return Response{}, err
	}

	posts = w.aboveMinScore(posts)
	if len(posts) == 0 {
		return Response{Reply: msgListEmpty}, nil
	}
	return Response{Reply: msgListHeader + formatPosts(posts, w.now())}, nil
}

// deletePost removes the single post by authorID nearest to the description.
func (w *Workflow) deletePost(ctx context.Context, authorID, prompt string) (Response, error) {
	vector, err := w.embed(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	posts, err := w.query(ctx, models.PostQuery{Vector: vector, AuthorID: authorID, TopK: 1})
	if err != nil {
		return Response{}, err
	}
	if len(posts) == 0 {
		return Response{Reply: msgDeleteMiss}, nil
	}

	target := posts[0].Post
	cctx, cancel := w.callContext(ctx)
	defer cancel()
	if err := w.store.DeletePosts(cctx, target.ID); err != nil {
		return Response{}, errors.Wrap(err, "delete post")
	}

	return Response{Reply: fmt.Sprintf(msgDeleted, FormatPost(target, w.now()))}, nil
}

func (w *Workflow) createPost(ctx context.Context, msg Message, label models.Label, prompt string) (Response, error) {
	vector, err := w.embed(ctx, prompt)
	if err != nil {
		return Response{}, err
	}

	post := &models.Post{
		ID:         msg.ID,
		Embedding:  pgvector.NewVector(vector),
		Text:       prompt,
		AuthorID:   msg.AuthorID,
		PromptType: label,
		CreatedAt:  w.now(),
	}
	if err := w.upsert(ctx, post); err != nil {
		return Response{}, err
	}

	related, err := w.query(ctx, models.PostQuery{
		Vector:     vector,
		PromptType: label.Complement(),
		TopK:       relatedTopK,
	})
	if err != nil {
		return Response{}, err
	}
	related = w.aboveMinScore(related)

	cctx, cancel := w.callContext(ctx)
	defer cancel()
	thanks, err := w.completer.Complete(cctx, thankPrimer(label, len(related) > 0), prompt)
	if err != nil {
		return Response{}, errors.Wrap(err, "generate thank-you")
	}
	if len(related) > 0 {
		thanks = fmt.Sprintf("%s \n\n %s", thanks, formatPosts(related, w.now()))
	}

	if label != models.LabelOneVOne {
		return Response{Reply: thanks}, nil
	}

	octx, ocancel := w.callContext(ctx)
	defer ocancel()
	match, err := w.challenges.Open(octx, challenge.OpenRequest{
		GuildID:     msg.GuildID,
		CreatorID:   msg.AuthorID,
		CreatorName: msg.AuthorName,
		PostID:      msg.ID,
		Prompt:      prompt,
	})
	if errors.Is(err, models.ErrNoGuild) {
		// no channel to announce in
		return Response{Reply: thanks}, nil
	}
	if err != nil {
		return Response{}, errors.Wrap(err, "open challenge")
	}

	// The generated thank-you is not sent for 1v1 posts; the announcement replaces it.
	w.logger.Debug("discarding 1v1 thank-you", zap.String("message_id", msg.ID), zap.String("reply", thanks))

	return Response{
		Reply:   msgRecorded,
		Private: true,
		Announcement: &Announcement{
			Content: fmt.Sprintf(msgAnnouncement, msg.AuthorName, prompt),
			MatchID: match.MatchID,
		},
	}, nil
}

// RecordSetupPost stores a 1v1 post for a match configured through the slash command.
func (w *Workflow) RecordSetupPost(ctx context.Context, setup Setup) error {
	summary := fmt.Sprintf("1v1 challenge: %s on %s (%s) for $%d",
		orDash(setup.Game), orDash(setup.Platform), orDash(setup.Category), setup.MatchAmountUSD)

	vector, err := w.embed(ctx, summary)
	if err != nil {
		return err
	}

	amount := setup.MatchAmountUSD
	return w.upsert(ctx, &models.Post{
		ID:             setup.ID,
		Embedding:      pgvector.NewVector(vector),
		Text:           summary,
		AuthorID:       setup.AuthorID,
		PromptType:     models.LabelOneVOne,
		Platform:       setup.Platform,
		Category:       setup.Category,
		Game:           setup.Game,
		MatchAmountUSD: &amount,
		CreatedAt:      w.now(),
	})
}

// History formats the latest posts of authorID.
func (w *Workflow) History(ctx context.Context, authorID string) (string, error) {
	posts, err := w.query(ctx, models.PostQuery{AuthorID: authorID, TopK: historyTopK})
	if err != nil {
		return "", err
	}
	if len(posts) == 0 {
		return msgHistoryEmpty, nil
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if len(posts) > historyShow {
		posts = posts[:historyShow]
	}

	entries := make([]string, len(posts))
	for i, p := range posts {
		entries[i] = formatHistoryEntry(p.Post)
	}
	return msgHistoryHeader + strings.Join(entries, "\n\n"), nil
}

// aboveMinScore keeps results scoring at least the configured minimum.
func (w *Workflow) aboveMinScore(posts []models.ScoredPost) []models.ScoredPost {
	kept := posts[:0:0]
	for _, p := range posts {
		if p.Score >= w.cfg.MinScore {
			kept = append(kept, p)
		}
	}
	return kept
}

func (w *Workflow) embed(ctx context.Context, text string) ([]float32, error) {
	cctx, cancel := w.callContext(ctx)
	defer cancel()

	vector, err := w.embedder.CreateEmbedding(cctx, text)
	return vector, errors.Wrap(err, "embed prompt")
}

func (w *Workflow) query(ctx context.Context, q models.PostQuery) ([]models.ScoredPost, error) {
	cctx, cancel := w.callContext(ctx)
	defer cancel()

	posts, err := w.store.QueryPosts(cctx, q)
	return posts, errors.Wrap(err, "query posts")
}

func (w *Workflow) upsert(ctx context.Context, post *models.Post) error {
	cctx, cancel := w.callContext(ctx)
	defer cancel()

	return errors.Wrap(w.store.UpsertPost(cctx, post), "upsert post")
}

func (w *Workflow) classify(ctx context.Context, prompt string) models.Label {
	cctx, cancel := w.callContext(ctx)
	defer cancel()

	return w.classifier.Classify(cctx, prompt)
}

func (w *Workflow) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, w.cfg.CallTimeout)
}

func (w *Workflow) fail(logger *zap.Logger, err error) {
	logger.Error("unable to handle message", zap.Error(err))
	logging.CaptureError(err, map[string]string{"feature": "workflow"})
}
