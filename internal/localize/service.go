// Package localize собирает локализованные представления постов,
// комментариев и сообщений: выбирает между оригиналом и переводом
// и создает переводы по требованию.
package localize

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/localized-view-service/internal/dataloader"
	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/UkralStul/localized-view-service/internal/translator"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidInput - ошибка во входных данных запроса.
var ErrInvalidInput = errors.New("invalid input")

const defaultCacheSize = 4096

// MessagePublisher получает новые сообщения чата (см. пакет stream).
type MessagePublisher interface {
	Publish(msg *domain.Message)
}

// Service - единая точка локализации контента.
type Service struct {
	store     storage.Storage
	provider  translator.Provider
	cache     *lru.Cache[storage.TranslationKey, *domain.Translation]
	group     singleflight.Group
	publisher MessagePublisher
	log       *zap.Logger
	cacheSize int
}

// Option настраивает Service.
type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithCacheSize(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

func WithPublisher(p MessagePublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New создает сервис локализации.
func New(store storage.Storage, provider translator.Provider, opts ...Option) (*Service, error) {
	s := &Service{
		store:     store,
		provider:  provider,
		log:       zap.NewNop(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize <= 0 {
		s.cacheSize = defaultCacheSize
	}

	cache, err := lru.New[storage.TranslationKey, *domain.Translation](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// SetPublisher подключает получателя сообщений после создания сервиса.
func (s *Service) SetPublisher(p MessagePublisher) {
	s.publisher = p
}

// Provider возвращает используемого провайдера перевода.
func (s *Service) Provider() translator.Provider {
	return s.provider
}

// source - то, что нужно перевести.
type source struct {
	key          storage.TranslationKey
	title        string
	text         string
	originalLang string
}

// translation возвращает существующий перевод или создает новый.
// nil означает, что перевода нет и показывается оригинал; ошибки
// только логируются.
func (s *Service) translation(ctx context.Context, src source) *domain.Translation {
	log := s.log.With(zap.String("key", src.key.String()))

	if !lang.IsSupported(src.key.Lang) {
		log.Warn("unsupported target language")
		return nil
	}

	if t, ok := s.cache.Get(src.key); ok {
		log.Debug("translation cache hit")
		return t
	}

	t, err := s.lookup(ctx, src.key)
	if err != nil {
		log.Error("translation lookup failed", zap.Error(err))
		return nil
	}
	if t != nil {
		log.Debug("translation storage hit")
		s.cache.Add(src.key, t)
		return t
	}

	if src.originalLang == src.key.Lang {
		log.Debug("source and target language are the same, skipping translation")
		return nil
	}

	log.Info("translation cache miss, translating")
	// Один вызов провайдера на ключ, даже при параллельных запросах
	v, err, shared := s.group.Do(src.key.String(), func() (interface{}, error) {
		return s.create(context.WithoutCancel(ctx), src)
	})
	if err != nil {
		log.Error("translation failed, falling back to original", zap.Error(err))
		return nil
	}
	if shared {
		log.Debug("translation shared with concurrent request")
	}
	return v.(*domain.Translation)
}

// lookup ищет перевод через dataloader запроса, если он есть.
func (s *Service) lookup(ctx context.Context, key storage.TranslationKey) (*domain.Translation, error) {
	if l := dataloader.For(ctx); l != nil {
		return l.LoadTranslation(ctx, key)
	}
	t, err := s.store.GetTranslation(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (s *Service) create(ctx context.Context, src source) (*domain.Translation, error) {
	// Перевод мог появиться, пока мы ждали своей очереди
	if t, err := s.store.GetTranslation(ctx, src.key); err == nil {
		s.remember(ctx, src.key, t)
		return t, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	sourceLang := src.originalLang
	if sourceLang == domain.UnknownLang {
		sourceLang = ""
	}
	res, err := s.provider.Translate(ctx, translator.Request{
		Text:       src.text,
		Title:      src.title,
		SourceLang: sourceLang,
		TargetLang: src.key.Lang,
	})
	if err != nil {
		return nil, err
	}

	rec := &domain.Translation{
		EntityKind:     src.key.Kind,
		EntityID:       src.key.EntityID,
		Lang:           src.key.Lang,
		TranslatedText: res.Text,
		Provider:       res.Provider,
	}
	if res.Success {
		rec.TranslatedTitle = res.Title
	} else {
		rec.ErrorCode = res.ErrorCode
		if rec.ErrorCode == "" {
			rec.ErrorCode = "translation_failed"
		}
	}

	created, err := s.store.CreateTranslation(ctx, rec)
	if errors.Is(err, storage.ErrDuplicate) {
		// Другая реплика успела создать перевод раньше
		s.log.Info("translation already exists", zap.String("key", src.key.String()))
		created, err = s.store.GetTranslation(ctx, src.key)
	}
	if err != nil {
		return nil, err
	}

	s.remember(ctx, src.key, created)
	return created, nil
}

func (s *Service) remember(ctx context.Context, key storage.TranslationKey, t *domain.Translation) {
	s.cache.Add(key, t)
	if l := dataloader.For(ctx); l != nil {
		l.Prime(ctx, key, t)
	}
}

// DetectLanguage определяет язык контента. Возвращает "unknown",
// если провайдер не справился или язык не поддерживается.
func (s *Service) DetectLanguage(ctx context.Context, title, body string) string {
	content := body
	if title != "" {
		content = title + "\n" + body
	}
	if content == "" {
		return domain.UnknownLang
	}

	code, err := s.provider.DetectLanguage(ctx, content)
	if err != nil {
		s.log.Error("language detection failed", zap.Error(err))
		return domain.UnknownLang
	}
	if !lang.IsSupported(code) {
		return domain.UnknownLang
	}
	return code
}
