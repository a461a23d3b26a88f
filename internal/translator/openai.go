package translator

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

var defaultOpenAIModel = string(openai.ChatModelGPT4oMini)

type openAICompleter struct {
	client openai.Client
	model  string
}

func (c *openAICompleter) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// NewOpenAI создает провайдера OpenAI. Без ключа провайдер недоступен.
func NewOpenAI(apiKey, model string, timeout time.Duration, log *zap.Logger, opts ...option.RequestOption) *ChatProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	c := &openAICompleter{client: openai.NewClient(opts...), model: model}
	return newChatProvider("openai", c, apiKey != "", timeout, log)
}
