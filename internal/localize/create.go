package localize

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"go.uber.org/zap"
)

const (
	maxTitleLen   = 200
	maxCommentLen = 2000
)

var (
	visibilities = []string{"public", "members", "followers", "private"}
	postTypes    = []string{"post", "blog", "tourism", "news"}
)

// NewPost - входные данные для создания поста.
type NewPost struct {
	AuthorID     string   `json:"-"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	Visibility   string   `json:"visibility"`
	PostType     string   `json:"post_type"`
	MediaURLs    []string `json:"media_urls"`
	OriginalLang string   `json:"original_lang"`
}

// NewComment - входные данные для комментария.
type NewComment struct {
	PostID       string  `json:"-"`
	ParentID     *string `json:"parent_id"`
	AuthorID     string  `json:"-"`
	Body         string  `json:"body"`
	OriginalLang string  `json:"original_lang"`
}

// NewMessage - входные данные для сообщения чата.
type NewMessage struct {
	ChatID       string `json:"-"`
	SenderID     string `json:"-"`
	Body         string `json:"body"`
	OriginalLang string `json:"original_lang"`
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// originalOrDetect берет язык клиента, если он поддерживается, иначе определяет.
func (s *Service) originalOrDetect(ctx context.Context, declared, title, body string) string {
	if code, ok := lang.Parse(declared); ok {
		return code
	}
	return s.DetectLanguage(ctx, title, body)
}

// CreatePost сохраняет пост, определив язык оригинала.
func (s *Service) CreatePost(ctx context.Context, in NewPost) (*domain.Post, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, invalid("post body cannot be empty")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return nil, invalid("post title is too long")
	}
	if in.Visibility == "" {
		in.Visibility = "public"
	}
	if !slices.Contains(visibilities, in.Visibility) {
		return nil, invalid("unknown visibility " + in.Visibility)
	}
	if in.PostType == "" {
		in.PostType = "post"
	}
	if !slices.Contains(postTypes, in.PostType) {
		return nil, invalid("unknown post type " + in.PostType)
	}

	post := &domain.Post{
		AuthorID:     in.AuthorID,
		Title:        in.Title,
		Body:         in.Body,
		Category:     in.Category,
		Subcategory:  in.Subcategory,
		Visibility:   in.Visibility,
		PostType:     in.PostType,
		Status:       "published",
		MediaURLs:    in.MediaURLs,
		OriginalLang: s.originalOrDetect(ctx, in.OriginalLang, in.Title, in.Body),
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}
	s.log.Info("post created", zap.String("post_id", created.ID), zap.String("original_lang", created.OriginalLang))
	return created, nil
}

// CreateComment сохраняет комментарий к посту.
func (s *Service) CreateComment(ctx context.Context, in NewComment) (*domain.Comment, error) {
	if utf8.RuneCountInString(in.Body) > maxCommentLen {
		return nil, invalid("comment content is too long")
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, invalid("comment content cannot be empty")
	}

	return s.store.CreateComment(ctx, &domain.Comment{
		PostID:       in.PostID,
		ParentID:     in.ParentID,
		AuthorID:     in.AuthorID,
		Body:         in.Body,
		OriginalLang: s.originalOrDetect(ctx, in.OriginalLang, "", in.Body),
	})
}

// CreateMessage сохраняет сообщение и рассылает его подписчикам чата.
func (s *Service) CreateMessage(ctx context.Context, in NewMessage) (*domain.Message, error) {
	if strings.TrimSpace(in.ChatID) == "" {
		return nil, invalid("chat id is required")
	}

	original := domain.UnknownLang
	if in.Body != "" {
		original = s.originalOrDetect(ctx, in.OriginalLang, "", in.Body)
	}
	msg, err := s.store.CreateMessage(ctx, &domain.Message{
		ChatID:       in.ChatID,
		SenderID:     in.SenderID,
		Body:         in.Body,
		OriginalLang: original,
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(msg)
	}
	return msg, nil
}

// === User language ===

// UserLanguage возвращает сохраненный язык пользователя или "".
func (s *Service) UserLanguage(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	p, err := s.store.GetUserPreference(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.PreferredLang, nil
}

// SetUserLanguage сохраняет выбор языка пользователя.
func (s *Service) SetUserLanguage(ctx context.Context, userID, code string) (string, error) {
	parsed, ok := lang.Parse(code)
	if !ok {
		return "", invalid("unsupported language " + code)
	}
	if err := s.store.SaveUserPreference(ctx, &domain.UserPreference{UserID: userID, PreferredLang: parsed}); err != nil {
		return "", err
	}
	return parsed, nil
}
