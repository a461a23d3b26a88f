package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// translationKey адаптирует storage.TranslationKey к dataloader.Key.
type translationKey struct {
	storage.TranslationKey
}

func (k translationKey) Raw() interface{} { return k.TranslationKey }

// Loaders содержит все дата-лоадеры запроса.
type Loaders struct {
	TranslationByKey    *dataloader.Loader
	ChildrenByCommentID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища.
func NewLoaders(store storage.Storage) *Loaders {
	return &Loaders{
		TranslationByKey:    dataloader.NewBatchedLoader(translationBatch(store), dataloader.WithWait(time.Millisecond*2)),
		ChildrenByCommentID: dataloader.NewBatchedLoader(childrenBatch(store), dataloader.WithWait(time.Millisecond*1)),
	}
}

func childrenBatch(store storage.Storage) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Преобразуем ключи в []string
		parentIDs := make([]string, len(keys))
		for i, key := range keys {
			parentIDs[i] = key.String()
		}

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		commentsMap, err := store.GetCommentsByParentIDs(ctx, parentIDs)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		for i, parentID := range parentIDs {
			children := commentsMap[parentID]
			if children == nil {
				children = []*domain.Comment{}
			}
			results[i] = &dataloader.Result{Data: children}
		}
		return results
	}
}

func translationBatch(store storage.Storage) dataloader.BatchFunc {
	// Батч-функция делает ОДИН запрос к хранилищу на все ключи
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		tKeys := make([]storage.TranslationKey, len(keys))
		for i, k := range keys {
			tKeys[i] = k.Raw().(storage.TranslationKey)
		}

		found, err := store.GetTranslations(ctx, tKeys)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			// В случае ошибки возвращаем ее для всех ключей
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результат в том же порядке, что и ключи. Отсутствующий перевод - nil.
		for i, k := range tKeys {
			if t, ok := found[k]; ok {
				results[i] = &dataloader.Result{Data: t}
			} else {
				results[i] = &dataloader.Result{Data: (*domain.Translation)(nil)}
			}
		}
		return results
	}
}

// LoadTranslation возвращает перевод или nil, если его нет.
func (l *Loaders) LoadTranslation(ctx context.Context, k storage.TranslationKey) (*domain.Translation, error) {
	v, err := l.TranslationByKey.Load(ctx, translationKey{k})()
	if err != nil {
		return nil, err
	}
	t, _ := v.(*domain.Translation)
	return t, nil
}

// LoadChildren возвращает ответы на комментарий, старые первыми.
func (l *Loaders) LoadChildren(ctx context.Context, commentID string) ([]*domain.Comment, error) {
	v, err := l.ChildrenByCommentID.Load(ctx, dataloader.StringKey(commentID))()
	if err != nil {
		return nil, err
	}
	children, _ := v.([]*domain.Comment)
	return children, nil
}

// LoadChildrenMany загружает ответы для нескольких комментариев одним батчем.
func (l *Loaders) LoadChildrenMany(ctx context.Context, commentIDs []string) (map[string][]*domain.Comment, error) {
	values, errs := l.ChildrenByCommentID.LoadMany(ctx, dataloader.NewKeysFromStrings(commentIDs))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make(map[string][]*domain.Comment, len(commentIDs))
	for i, id := range commentIDs {
		children, _ := values[i].([]*domain.Comment)
		out[id] = children
	}
	return out, nil
}

// Prime кладет только что созданный перевод в кеш лоадера.
func (l *Loaders) Prime(ctx context.Context, k storage.TranslationKey, t *domain.Translation) {
	tk := translationKey{k}
	l.TranslationByKey.Clear(ctx, tk).Prime(ctx, tk, t)
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLoaders кладет лоадеры в контекст.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For извлекает лоадеры из контекста. Вне HTTP запроса возвращает nil.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}
