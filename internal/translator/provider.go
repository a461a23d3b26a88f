// Package translator содержит провайдеров машинного перевода.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Коды ошибок, которые сохраняются вместе с неудачным переводом.
const (
	ErrCodeDummy               = "dummy_provider"
	ErrCodeAPIKeyMissing       = "api_key_missing"
	ErrCodeUnsupportedLanguage = "unsupported_language"
	ErrCodeEmptyReply          = "empty_reply"
	errCodeAPIPrefix           = "api_error:"
)

// Request - что перевести. SourceLang пустой, если язык не определен.
type Request struct {
	Text       string
	Title      string
	SourceLang string
	TargetLang string
}

// Result - результат перевода. При Success == false Text и Title
// содержат оригинал, а ErrorCode - причину.
type Result struct {
	Text       string
	Title      string
	SourceLang string
	TargetLang string
	Provider   string
	ErrorCode  string
	Success    bool
}

// Provider - контракт провайдера перевода.
//
// Translate возвращает ошибку только при сбое вызова (сеть, таймаут, ответ API);
// такой результат не кешируется. Детерминированные отказы (нет ключа,
// неподдерживаемый язык) приходят как Result с ErrorCode и nil ошибкой.
type Provider interface {
	Name() string
	Available() bool
	Translate(ctx context.Context, req Request) (Result, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Config - настройки выбора провайдера.
type Config struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Timeout     time.Duration
}

// New выбирает провайдера по имени. Если выбранный провайдер недоступен
// (нет ключа), используется Dummy.
func New(ctx context.Context, cfg Config, log *zap.Logger) (Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var p Provider
	switch name := strings.ToLower(strings.TrimSpace(cfg.Provider)); name {
	case "", "openai":
		p = NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Timeout, log)
	case "gemini":
		g, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.Timeout, log)
		if err != nil {
			return nil, err
		}
		p = g
	case "dummy":
		return NewDummy(log), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}

	if !p.Available() {
		log.Warn("translation provider not available, falling back to dummy", zap.String("provider", p.Name()))
		return NewDummy(log), nil
	}
	return p, nil
}

// failed собирает неуспешный результат, сохраняя оригинальный текст.
func failed(provider string, req Request, code string) Result {
	return Result{
		Text:       req.Text,
		Title:      req.Title,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Provider:   provider,
		ErrorCode:  code,
	}
}
