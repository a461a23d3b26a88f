package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/localized-view-service/internal/domain"
)

var (
	// ErrNotFound возвращается, когда запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate возвращается при нарушении уникальности (например, перевод уже создан).
	ErrDuplicate = errors.New("duplicate record")
)

// PaginationArgs - аргументы для пагинации.
type PaginationArgs struct {
	Limit  int
	Cursor *string
}

// PostFilter - фильтр ленты постов.
type PostFilter struct {
	Category   string
	Visibility string
	Limit      int
	Offset     int
}

// TranslationKey однозначно определяет перевод.
type TranslationKey struct {
	Kind     domain.EntityKind
	EntityID string
	Lang     string
}

// String используется как ключ кеша и dataloader'а.
func (k TranslationKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.EntityID, k.Lang)
}

// Storage определяет контракт для хранилищ. Посты и комментарии
// возвращаются копиями: изменение результата не меняет запись.
type Storage interface {
	GetPosts(ctx context.Context, filter PostFilter) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string, args PaginationArgs) ([]*domain.Comment, error)
	GetCommentsByParentID(ctx context.Context, parentID string, args PaginationArgs) ([]*domain.Comment, error)

	// Метод для Dataloader'ов: ответы на каждый комментарий, старые первыми.
	GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error)

	CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	GetMessageByID(ctx context.Context, id string) (*domain.Message, error)

	// Переводы. CreateTranslation возвращает ErrDuplicate, если пара уже есть.
	GetTranslation(ctx context.Context, key TranslationKey) (*domain.Translation, error)
	CreateTranslation(ctx context.Context, t *domain.Translation) (*domain.Translation, error)

	// Метод для Dataloader'ов: отсутствующие ключи просто не попадают в карту.
	GetTranslations(ctx context.Context, keys []TranslationKey) (map[TranslationKey]*domain.Translation, error)

	GetUserPreference(ctx context.Context, userID string) (*domain.UserPreference, error)
	SaveUserPreference(ctx context.Context, pref *domain.UserPreference) error
}
