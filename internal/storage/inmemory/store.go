package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu             sync.RWMutex
	posts          map[string]*domain.Post
	comments       map[string]*domain.Comment
	commentsByPost   map[string][]string // map[postID][]commentID (только корневые)
	commentsByParent map[string][]string // map[parentID][]commentID
	messages         map[string]*domain.Message
	translations     map[storage.TranslationKey]*domain.Translation
	prefs            map[string]*domain.UserPreference
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:            make(map[string]*domain.Post),
		comments:         make(map[string]*domain.Comment),
		commentsByPost:   make(map[string][]string),
		commentsByParent: make(map[string][]string),
		messages:         make(map[string]*domain.Message),
		translations:     make(map[storage.TranslationKey]*domain.Translation),
		prefs:            make(map[string]*domain.UserPreference),
	}
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	s.posts[post.ID] = copyPost(post)
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return copyPost(post), nil
}

func (s *Store) GetPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Visibility != "" && p.Visibility != filter.Visibility {
			continue
		}
		allPosts = append(allPosts, p)
	}

	sort.Slice(allPosts, func(i, j int) bool {
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})

	start := filter.Offset
	if start >= len(allPosts) {
		return []*domain.Post{}, nil
	}
	end := start + filter.Limit
	if end > len(allPosts) {
		end = len(allPosts)
	}
	page := make([]*domain.Post, 0, end-start)
	for _, p := range allPosts[start:end] {
		page = append(page, copyPost(p))
	}
	return page, nil
}

// copyPost отдает наружу снимок поста; счетчики меняются только под s.mu.
func copyPost(p *domain.Post) *domain.Post {
	cp := *p
	cp.MediaURLs = append([]string(nil), p.MediaURLs...)
	return &cp
}

func copyComment(c *domain.Comment) *domain.Comment {
	cp := *c
	if c.ParentID != nil {
		parentID := *c.ParentID
		cp.ParentID = &parentID
	}
	return &cp
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[comment.PostID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", comment.PostID, storage.ErrNotFound)
	}
	if comment.ParentID != nil {
		// Ответить можно только на комментарий этого же поста
		parent, ok := s.comments[*comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return nil, fmt.Errorf("parent comment %s on post %s: %w", *comment.ParentID, comment.PostID, storage.ErrNotFound)
		}
	}

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	s.comments[comment.ID] = copyComment(comment)
	post.CommentCount++

	if comment.ParentID == nil {
		// Корневой комментарий
		s.commentsByPost[comment.PostID] = append(s.commentsByPost[comment.PostID], comment.ID)
	} else {
		s.commentsByParent[*comment.ParentID] = append(s.commentsByParent[*comment.ParentID], comment.ID)
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return copyComment(comment), nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commentIDs, ok := s.commentsByPost[postID]
	if !ok {
		return []*domain.Comment{}, nil
	}
	return s.paginateComments(commentIDs, args), nil
}

func (s *Store) GetCommentsByParentID(ctx context.Context, parentID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commentIDs, ok := s.commentsByParent[parentID]
	if !ok {
		return []*domain.Comment{}, nil
	}
	return s.paginateComments(commentIDs, args), nil
}

// paginateComments - вспомогательная функция для курсорной пагинации
func (s *Store) paginateComments(ids []string, args storage.PaginationArgs) []*domain.Comment {
	allComments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			allComments = append(allComments, c)
		}
	}
	// Сортируем по времени создания, чтобы пагинация была консистентной
	sort.SliceStable(allComments, func(i, j int) bool {
		return allComments[i].CreatedAt.Before(allComments[j].CreatedAt)
	})

	startIndex := 0
	if args.Cursor != nil {
		for i, c := range allComments {
			if c.ID == *args.Cursor {
				startIndex = i + 1
				break
			}
		}
	}
	if startIndex >= len(allComments) {
		return []*domain.Comment{}
	}

	endIndex := startIndex + args.Limit
	if endIndex > len(allComments) {
		endIndex = len(allComments)
	}
	page := make([]*domain.Comment, 0, endIndex-startIndex)
	for _, c := range allComments[startIndex:endIndex] {
		page = append(page, copyComment(c))
	}
	return page
}

// === Message Methods ===

func (s *Store) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, storage.ErrNotFound)
	}
	return msg, nil
}

// === Translation Methods ===

func (s *Store) GetTranslation(ctx context.Context, key storage.TranslationKey) (*domain.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.translations[key]
	if !ok {
		return nil, fmt.Errorf("translation %s: %w", key, storage.ErrNotFound)
	}
	return t, nil
}

func (s *Store) CreateTranslation(ctx context.Context, t *domain.Translation) (*domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storage.TranslationKey{Kind: t.EntityKind, EntityID: t.EntityID, Lang: t.Lang}
	if _, ok := s.translations[key]; ok {
		return nil, fmt.Errorf("translation %s: %w", key, storage.ErrDuplicate)
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	s.translations[key] = t
	return t, nil
}

// === Dataloader Methods ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Comment, len(parentIDs))
	for _, pID := range parentIDs {
		childIDs := s.commentsByParent[pID]
		children := make([]*domain.Comment, 0, len(childIDs))
		for _, cID := range childIDs {
			if c, ok := s.comments[cID]; ok {
				children = append(children, copyComment(c))
			}
		}
		// Dataloader'у нужны отсортированные данные для консистентности
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].CreatedAt.Before(children[j].CreatedAt)
		})
		results[pID] = children
	}
	return results, nil
}

func (s *Store) GetTranslations(ctx context.Context, keys []storage.TranslationKey) (map[storage.TranslationKey]*domain.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[storage.TranslationKey]*domain.Translation, len(keys))
	for _, k := range keys {
		if t, ok := s.translations[k]; ok {
			results[k] = t
		}
	}
	return results, nil
}

// === User Preference Methods ===

func (s *Store) GetUserPreference(ctx context.Context, userID string) (*domain.UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, fmt.Errorf("preference for %s: %w", userID, storage.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveUserPreference(ctx context.Context, pref *domain.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *pref
	cp.UpdatedAt = time.Now().UTC()
	s.prefs[pref.UserID] = &cp
	return nil
}
