package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"go.uber.org/zap"
)

const (
	translateTemperature = 0.3
	translateMaxTokens   = 4000
	detectMaxTokens      = 10
	detectSampleRunes    = 500
	defaultTimeout       = 60 * time.Second
)

// englishNames используются в промптах.
var englishNames = map[string]string{
	"ja": "Japanese",
	"en": "English",
	"ko": "Korean",
	"es": "Spanish",
	"pt": "Portuguese",
	"fr": "French",
	"it": "Italian",
	"de": "German",
}

// completer - один вызов чат-модели.
type completer interface {
	complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// ChatProvider переводит через LLM с чат-интерфейсом (OpenAI, Gemini).
type ChatProvider struct {
	name    string
	c       completer
	ready   bool
	timeout time.Duration
	log     *zap.Logger
}

func newChatProvider(name string, c completer, ready bool, timeout time.Duration, log *zap.Logger) *ChatProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChatProvider{name: name, c: c, ready: ready, timeout: timeout, log: log.With(zap.String("provider", name))}
}

func (p *ChatProvider) Name() string    { return p.name }
func (p *ChatProvider) Available() bool { return p.ready }

func (p *ChatProvider) Translate(ctx context.Context, req Request) (Result, error) {
	if !p.ready {
		return failed(p.name, req, ErrCodeAPIKeyMissing), nil
	}
	target, ok := englishNames[req.TargetLang]
	if !ok {
		return failed(p.name, req, ErrCodeUnsupportedLanguage), nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.c.complete(ctx, systemPrompt(req.SourceLang, target), userPrompt(req.Title, req.Text),
		translateTemperature, translateMaxTokens)
	if err != nil {
		p.log.Error("translation call failed", zap.Error(err))
		return failed(p.name, req, errCodeAPIPrefix+errorKind(err)), fmt.Errorf("%s translate: %w", p.name, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return failed(p.name, req, ErrCodeEmptyReply), nil
	}

	title, text := ParseReply(reply, req.Title != "")
	return Result{
		Text:       text,
		Title:      title,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Provider:   p.name,
		Success:    true,
	}, nil
}

func (p *ChatProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if !p.ready {
		return domain.UnknownLang, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	reply, err := p.c.complete(ctx, detectPrompt, truncateRunes(text, detectSampleRunes), 0, detectMaxTokens)
	if err != nil {
		return domain.UnknownLang, fmt.Errorf("%s detect: %w", p.name, err)
	}
	code := strings.Trim(strings.ToLower(strings.TrimSpace(reply)), `'".`)
	if !lang.IsSupported(code) {
		return domain.UnknownLang, nil
	}
	return code, nil
}

const detectPrompt = "Detect the language of the following text. Respond with only the ISO 639-1 language code " +
	"(e.g., 'en', 'ja', 'ko', 'es', 'pt', 'fr', 'it', 'de'). If unsure, respond with 'unknown'."

func systemPrompt(sourceLang, target string) string {
	source := "auto-detected language"
	if sourceLang != "" && sourceLang != domain.UnknownLang {
		source = "the original language"
		if n, ok := englishNames[sourceLang]; ok {
			source = n
		}
	}
	return fmt.Sprintf(`You are a professional translator. Translate the following content from %s to %s.
Keep the original meaning, tone, and style. Do not add explanations or notes.
If there is a title, translate it separately and format your response as:
Title: [translated title]

Text:
[translated text]

If there is no title, just provide the translated text directly.`, source, target)
}

func userPrompt(title, text string) string {
	content := "Text:\n" + text
	if title != "" {
		content = "Title: " + title + "\n\n" + content
	}
	return content
}

// ParseReply разбирает ответ формата "Title: ...\n\nText:\n...".
// Без заголовка весь ответ считается текстом.
func ParseReply(reply string, hadTitle bool) (title, text string) {
	reply = strings.TrimSpace(reply)
	if !hadTitle || !strings.HasPrefix(reply, "Title:") {
		return "", strings.TrimSpace(strings.TrimPrefix(reply, "Text:"))
	}

	first, rest, _ := strings.Cut(reply, "\n")
	title = strings.TrimSpace(strings.TrimPrefix(first, "Title:"))
	if _, after, ok := strings.Cut(rest, "Text:"); ok {
		return title, strings.TrimSpace(after)
	}
	return title, strings.TrimSpace(rest)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// errorKind - короткое имя ошибки для error_code.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return fmt.Sprintf("%T", err)
	}
}
