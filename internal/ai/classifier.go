// internal/ai/classifier.go
package ai

import (
	"context"
	"strings"
	"unicode/utf8"

	"insert-coin-bot/internal/models"

	"go.uber.org/zap"
)

const classifierPrimer = `
My only purpose is to categorise user input into 5 categories.
First category is for Tournaments. If I think given text can be classified as a tournament, my response will be
one word "tournament".
Second category is for 1v1. If I think given text can be classified as a profile description of a
player looking for a 1v1 match, my response will be one word: "1v1".
Third category is for showing list of active 1v1 rounds. If I think given text can be classified as a
request to show list of user 1v1 posts or active tournaments or player profile descriptions, my response will be one
word: "list". This also applies if given text is user saying he wants to see something or asks what you have or if
you have. Fourth category is for deleting previously submitted post by user. If I think given text can be classified
as a request for deletion of user post, my response will be one word: "delete".
Fifth category is for unidentified. If I think given text can't be classified as neither of previous categories,
my response will be one word: "unidentified".
I only respond with one of following phrases: "tournament", "1v1", "list", "delete", "unidentified".

GIVEN TEXT:
`

// Completer produces a reply to userText under a system instruction.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

type Classifier struct {
	completer Completer
	maxLength int
	logger    *zap.Logger
}

func NewClassifier(completer Completer, maxLength int, logger *zap.Logger) *Classifier {
	return &Classifier{
		completer: completer,
		maxLength: maxLength,
		logger:    logger,
	}
}

// Classify never fails: anything it cannot label is unidentified.
func (c *Classifier) Classify(ctx context.Context, text string) models.Label {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.LabelUnidentified
	}
	if c.maxLength > 0 && utf8.RuneCountInString(text) > c.maxLength {
		return models.LabelUnidentified
	}

	reply, err := c.completer.Complete(ctx, classifierPrimer, text)
	if err != nil {
		c.logger.Warn("classification failed", zap.Error(err))
		return models.LabelUnidentified
	}

	label := ParseLabel(reply)
	c.logger.Debug("classified prompt",
		zap.String("reply", reply),
		zap.String("label", string(label)),
	)
	return label
}

// ParseLabel extracts a label from a free-form model reply. Precedence is
// list > delete > tournament > 1v1, and any mention of "unidentified" wins outright.
func ParseLabel(reply string) models.Label {
	if strings.Contains(reply, string(models.LabelUnidentified)) {
		return models.LabelUnidentified
	}

	for _, label := range []models.Label{
		models.LabelList,
		models.LabelDelete,
		models.LabelTournament,
		models.LabelOneVOne,
	} {
		if strings.Contains(reply, string(label)) {
			return label
		}
	}

	return models.LabelUnidentified
}
