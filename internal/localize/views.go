package localize

import (
	"context"
	"fmt"

	"github.com/UkralStul/localized-view-service/internal/dataloader"
	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Режимы показа.
const (
	ModeTranslated = "translated"
	ModeOriginal   = "original"
)

const (
	DefaultFeedLimit     = 20
	MaxFeedLimit         = 100
	DefaultCommentsLimit = 10
	// Сколько ответов показывать под комментарием в списке
	ReplyPreviewLimit  = 3
	resolveParallelism = 8
)

// Options - на каком языке и в каком режиме показывать.
type Options struct {
	Lang string
	Mode string
}

func (o Options) normalize() Options {
	code, ok := lang.Parse(o.Lang)
	if !ok {
		code = lang.Default
	}
	if o.Mode != ModeOriginal {
		o.Mode = ModeTranslated
	}
	o.Lang = code
	return o
}

// FeedQuery - параметры ленты.
type FeedQuery struct {
	Lang     string
	Category string
	Limit    int
	Offset   int
}

// CommentPage - страница комментариев с курсором.
type CommentPage struct {
	Comments    []*domain.CommentView `json:"comments"`
	HasNextPage bool                  `json:"has_next_page"`
	EndCursor   *string               `json:"end_cursor,omitempty"`
}

func originalLang(code string) string {
	if code == "" {
		return domain.UnknownLang
	}
	return code
}

// === Posts ===

// ResolvePost возвращает пост на языке зрителя.
func (s *Service) ResolvePost(ctx context.Context, id string, opts Options) (*domain.TranslatedPost, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ViewPost(ctx, post, opts), nil
}

// ViewPost собирает отображаемые поля поста.
func (s *Service) ViewPost(ctx context.Context, post *domain.Post, opts Options) *domain.TranslatedPost {
	opts = opts.normalize()
	view := &domain.TranslatedPost{
		Post:         *post,
		ViewLang:     opts.Lang,
		DisplayTitle: post.Title,
		DisplayText:  post.Body,
	}
	view.OriginalLang = originalLang(post.OriginalLang)

	if opts.Mode == ModeOriginal || opts.Lang == view.OriginalLang {
		return view
	}

	t := s.translation(ctx, source{
		key:          storage.TranslationKey{Kind: domain.KindPost, EntityID: post.ID, Lang: opts.Lang},
		title:        post.Title,
		text:         post.Body,
		originalLang: view.OriginalLang,
	})
	view.HasTranslation = t != nil
	if t.Translated() {
		if t.TranslatedTitle != "" {
			view.DisplayTitle = t.TranslatedTitle
		}
		view.DisplayText = t.TranslatedText
		view.IsTranslated = true
	}
	return view
}

// Feed возвращает публичные посты, новые первыми, на языке зрителя.
func (s *Service) Feed(ctx context.Context, q FeedQuery) ([]*domain.TranslatedPost, error) {
	if q.Limit == 0 {
		q.Limit = DefaultFeedLimit
	}
	if q.Limit < 1 || q.Limit > MaxFeedLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxFeedLimit)
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}

	posts, err := s.store.GetPosts(ctx, storage.PostFilter{
		Category:   q.Category,
		Visibility: "public",
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, err
	}

	opts := Options{Lang: q.Lang, Mode: ModeTranslated}
	views := make([]*domain.TranslatedPost, len(posts))
	// Параллельно, чтобы dataloader собрал поиски переводов в один батч
	var g errgroup.Group
	g.SetLimit(resolveParallelism)
	for i, p := range posts {
		g.Go(func() error {
			views[i] = s.ViewPost(ctx, p, opts)
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}

// === Comments ===

// ResolveComment возвращает комментарий на языке зрителя.
func (s *Service) ResolveComment(ctx context.Context, id string, opts Options) (*domain.CommentView, error) {
	c, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.viewThread(ctx, []*domain.Comment{c}, opts)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ViewComment собирает отображаемые поля комментария.
func (s *Service) ViewComment(ctx context.Context, c *domain.Comment, opts Options) *domain.CommentView {
	opts = opts.normalize()
	view := &domain.CommentView{
		CommentID:      c.ID,
		PostID:         c.PostID,
		ParentID:       c.ParentID,
		AuthorID:       c.AuthorID,
		OriginalLang:   originalLang(c.OriginalLang),
		OriginalText:   c.Body,
		TranslatedText: c.Body,
		TargetLang:     opts.Lang,
	}
	if opts.Mode == ModeOriginal || opts.Lang == view.OriginalLang {
		return view
	}

	t := s.translation(ctx, source{
		key:          storage.TranslationKey{Kind: domain.KindComment, EntityID: c.ID, Lang: opts.Lang},
		text:         c.Body,
		originalLang: view.OriginalLang,
	})
	view.HasTranslation = t != nil
	if t.Translated() {
		view.TranslatedText = t.TranslatedText
		view.IsTranslated = true
	}
	return view
}

// CommentsForPost возвращает страницу корневых комментариев поста.
func (s *Service) CommentsForPost(ctx context.Context, postID string, opts Options, args storage.PaginationArgs) (*CommentPage, error) {
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	l, err := commentsLimit(args.Limit)
	if err != nil {
		return nil, err
	}

	// Запрашиваем на один элемент больше, чтобы определить, есть ли следующая страница
	comments, err := s.store.GetCommentsByPostID(ctx, postID, storage.PaginationArgs{Limit: l + 1, Cursor: args.Cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %w", err)
	}
	return s.commentPage(ctx, comments, l, opts)
}

// RepliesForComment возвращает страницу прямых ответов на комментарий.
func (s *Service) RepliesForComment(ctx context.Context, commentID string, opts Options, args storage.PaginationArgs) (*CommentPage, error) {
	if _, err := s.store.GetCommentByID(ctx, commentID); err != nil {
		return nil, err
	}
	l, err := commentsLimit(args.Limit)
	if err != nil {
		return nil, err
	}

	comments, err := s.store.GetCommentsByParentID(ctx, commentID, storage.PaginationArgs{Limit: l + 1, Cursor: args.Cursor})
	if err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}
	return s.commentPage(ctx, comments, l, opts)
}

func commentsLimit(l int) (int, error) {
	if l == 0 {
		return DefaultCommentsLimit, nil
	}
	if l < 1 || l > MaxFeedLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxFeedLimit)
	}
	return l, nil
}

// commentPage обрезает выборку из limit+1 элементов до страницы.
func (s *Service) commentPage(ctx context.Context, comments []*domain.Comment, limit int, opts Options) (*CommentPage, error) {
	hasNextPage := len(comments) > limit
	if hasNextPage {
		comments = comments[:limit]
	}

	views, err := s.viewThread(ctx, comments, opts)
	if err != nil {
		return nil, err
	}

	page := &CommentPage{Comments: views, HasNextPage: hasNextPage}
	if len(views) > 0 {
		page.EndCursor = &views[len(views)-1].CommentID
	}
	return page, nil
}

// viewThread локализует комментарии вместе с первыми ответами на них.
// Ответы загружаются одним батчем на все комментарии.
func (s *Service) viewThread(ctx context.Context, comments []*domain.Comment, opts Options) ([]*domain.CommentView, error) {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	children, err := s.children(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}

	views := make([]*domain.CommentView, len(comments))
	var g errgroup.Group
	g.SetLimit(resolveParallelism)
	for i, c := range comments {
		g.Go(func() error {
			v := s.ViewComment(ctx, c, opts)
			replies := children[c.ID]
			v.ReplyCount = len(replies)
			if len(replies) > ReplyPreviewLimit {
				replies = replies[:ReplyPreviewLimit]
			}
			for _, r := range replies {
				v.Replies = append(v.Replies, s.ViewComment(ctx, r, opts))
			}
			views[i] = v
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}

func (s *Service) children(ctx context.Context, ids []string) (map[string][]*domain.Comment, error) {
	if len(ids) == 0 {
		return map[string][]*domain.Comment{}, nil
	}
	if l := dataloader.For(ctx); l != nil {
		return l.LoadChildrenMany(ctx, ids)
	}
	return s.store.GetCommentsByParentIDs(ctx, ids)
}

// === Messages ===

// ResolveMessage возвращает сообщение на языке зрителя.
func (s *Service) ResolveMessage(ctx context.Context, id string, opts Options) (*domain.MessageView, error) {
	m, err := s.store.GetMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ViewMessage(ctx, m, opts), nil
}

// ViewMessage собирает отображаемые поля сообщения. Пустое сообщение
// не переводится.
func (s *Service) ViewMessage(ctx context.Context, m *domain.Message, opts Options) *domain.MessageView {
	opts = opts.normalize()
	view := &domain.MessageView{
		MessageID:      m.ID,
		ChatID:         m.ChatID,
		SenderID:       m.SenderID,
		OriginalLang:   originalLang(m.OriginalLang),
		OriginalText:   m.Body,
		TranslatedText: m.Body,
		TargetLang:     opts.Lang,
		CreatedAt:      m.CreatedAt,
	}
	if opts.Mode == ModeOriginal || m.Body == "" || opts.Lang == view.OriginalLang {
		return view
	}

	t := s.translation(ctx, source{
		key:          storage.TranslationKey{Kind: domain.KindMessage, EntityID: m.ID, Lang: opts.Lang},
		text:         m.Body,
		originalLang: view.OriginalLang,
	})
	view.HasTranslation = t != nil
	if t.Translated() {
		view.TranslatedText = t.TranslatedText
		view.IsTranslated = true
	}
	return view
}
