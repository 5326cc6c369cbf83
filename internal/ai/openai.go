// internal/ai/openai.go
package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

type AIService struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	dimensions     int
}

func NewAIService(apiKey, chatModel, embeddingModel string, dimensions int) *AIService {
	return &AIService{
		client:         openai.NewClient(apiKey),
		chatModel:      chatModel,
		embeddingModel: openai.EmbeddingModel(embeddingModel),
		dimensions:     dimensions,
	}
}

func (ai *AIService) ChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := ai.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    ai.chatModel,
		Messages: messages,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// Complete runs a single system instruction against the user's text.
func (ai *AIService) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return ai.ChatCompletion(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userText},
	})
}
