package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/storage"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, debug bool) (*Store, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		// Нарушение уникальности приходит как gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&domain.Post{},
		&domain.Comment{},
		&domain.Message{},
		&domain.Translation{},
		&domain.UserPreference{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// wrap приводит ошибки GORM к ошибкам пакета storage.
func wrap(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// checkID отсекает строки, которые не являются uuid: колонка id имеет тип
// uuid, и Postgres ответил бы ошибкой 22P02 вместо "не найдено".
func checkID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return nil
}

// validIDs оставляет только корректные uuid.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	// GORM автоматически заполнит ID и CreatedAt после создания
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, wrap(err, "create post")
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if err := checkID(id, "post"); err != nil {
		return nil, err
	}
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "post "+id)
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	var posts []*domain.Post
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Visibility != "" {
		query = query.Where("visibility = ?", filter.Visibility)
	}
	if err := query.Find(&posts).Error; err != nil {
		return nil, wrap(err, "list posts")
	}
	return posts, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Проверяем существование поста и родителя в одной транзакции
	if err := checkID(comment.PostID, "post"); err != nil {
		return nil, err
	}
	if comment.ParentID != nil {
		if err := checkID(*comment.ParentID, "parent comment"); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.Select("id").First(&post, "id = ?", comment.PostID).Error; err != nil {
			return wrap(err, "post "+comment.PostID)
		}

		if comment.ParentID != nil {
			// Родитель должен принадлежать этому же посту
			var parentCount int64
			err := tx.Model(&domain.Comment{}).
				Where("id = ? AND post_id = ?", *comment.ParentID, comment.PostID).
				Count(&parentCount).Error
			if err != nil {
				return err
			}
			if parentCount == 0 {
				return fmt.Errorf("parent comment %s on post %s: %w", *comment.ParentID, comment.PostID, storage.ErrNotFound)
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, wrap(err, "create comment")
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	if err := checkID(id, "comment"); err != nil {
		return nil, err
	}
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "comment "+id)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	if err := checkID(postID, "post"); err != nil {
		return nil, err
	}
	// Выбираем только комментарии верхнего уровня для поста (parent_id IS NULL)
	query := s.db.WithContext(ctx).Where("post_id = ? AND parent_id IS NULL", postID)
	return s.paginateComments(ctx, query, args)
}

func (s *Store) GetCommentsByParentID(ctx context.Context, parentID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	if err := checkID(parentID, "comment"); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Where("parent_id = ?", parentID)
	return s.paginateComments(ctx, query, args)
}

// paginateComments применяет курсор: ID последнего комментария прошлой страницы.
func (s *Store) paginateComments(ctx context.Context, query *gorm.DB, args storage.PaginationArgs) ([]*domain.Comment, error) {
	query = query.Order("created_at ASC").Limit(args.Limit)
	if args.Cursor != nil && checkID(*args.Cursor, "cursor") == nil {
		var cursorComment domain.Comment
		if err := s.db.WithContext(ctx).First(&cursorComment, "id = ?", *args.Cursor).Error; err == nil {
			query = query.Where("created_at > ?", cursorComment.CreatedAt)
		}
	}

	var comments []*domain.Comment
	if err := query.Find(&comments).Error; err != nil {
		return nil, wrap(err, "list comments")
	}
	return comments, nil
}

// === Message Methods ===

func (s *Store) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, wrap(err, "create message")
	}
	return msg, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	if err := checkID(id, "message"); err != nil {
		return nil, err
	}
	var msg domain.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "message "+id)
	}
	return &msg, nil
}

// === Translation Methods ===

func (s *Store) GetTranslation(ctx context.Context, key storage.TranslationKey) (*domain.Translation, error) {
	if err := checkID(key.EntityID, "translation of"); err != nil {
		return nil, err
	}
	var t domain.Translation
	err := s.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND lang = ?", key.Kind, key.EntityID, key.Lang).
		First(&t).Error
	if err != nil {
		return nil, wrap(err, "translation "+key.String())
	}
	return &t, nil
}

func (s *Store) CreateTranslation(ctx context.Context, t *domain.Translation) (*domain.Translation, error) {
	// Уникальный индекс uq_translation_entity_lang не дает создать второй перевод
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, wrap(err, "create translation")
	}
	return t, nil
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	result := make(map[string][]*domain.Comment, len(parentIDs))
	for _, id := range parentIDs {
		result[id] = []*domain.Comment{}
	}
	ids := validIDs(parentIDs)
	if len(ids) == 0 {
		return result, nil
	}

	// Все ответы одним запросом: parent_id IN (...)
	var rows []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err, "batch replies")
	}
	for _, c := range rows {
		result[*c.ParentID] = append(result[*c.ParentID], c)
	}
	return result, nil
}

func (s *Store) GetTranslations(ctx context.Context, keys []storage.TranslationKey) (map[storage.TranslationKey]*domain.Translation, error) {
	result := make(map[storage.TranslationKey]*domain.Translation, len(keys))

	// Загружаем все переводы одним запросом: (kind, id, lang) IN (...)
	tuples := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		if checkID(k.EntityID, "translation of") != nil {
			continue
		}
		tuples = append(tuples, []interface{}{k.Kind, k.EntityID, k.Lang})
	}
	if len(tuples) == 0 {
		return result, nil
	}
	var rows []*domain.Translation
	err := s.db.WithContext(ctx).
		Where("(entity_kind, entity_id, lang) IN ?", tuples).
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err, "batch translations")
	}

	for _, t := range rows {
		result[storage.TranslationKey{Kind: t.EntityKind, EntityID: t.EntityID, Lang: t.Lang}] = t
	}
	return result, nil
}

// === User Preference Methods ===

func (s *Store) GetUserPreference(ctx context.Context, userID string) (*domain.UserPreference, error) {
	var p domain.UserPreference
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, wrap(err, "preference for "+userID)
	}
	return &p, nil
}

func (s *Store) SaveUserPreference(ctx context.Context, pref *domain.UserPreference) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferred_lang", "updated_at"}),
	}).Create(pref).Error
	return wrap(err, "save preference")
}
