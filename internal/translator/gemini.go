package translator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func (c *geminiCompleter) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
		MaxOutputTokens:   int32(maxTokens),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// NewGemini создает провайдера Google Gemini. Без ключа клиент не создается
// и провайдер недоступен.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, log *zap.Logger) (*ChatProvider, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if apiKey == "" {
		return newChatProvider("gemini", nil, false, timeout, log), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newChatProvider("gemini", &geminiCompleter{client: client, model: model}, true, timeout, log), nil
}
