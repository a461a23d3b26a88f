package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UkralStul/localized-view-service/internal/auth"
	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/localize"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/UkralStul/localized-view-service/internal/storage/inmemory"
	"github.com/UkralStul/localized-view-service/internal/stream"
	"github.com/UkralStul/localized-view-service/internal/translator"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// prefixProvider "переводит", добавляя код языка.
type prefixProvider struct{}

func (prefixProvider) Name() string    { return "prefix" }
func (prefixProvider) Available() bool { return true }

func (prefixProvider) Translate(ctx context.Context, req translator.Request) (translator.Result, error) {
	res := translator.Result{
		Text:       fmt.Sprintf("[%s] %s", req.TargetLang, req.Text),
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Provider:   "prefix",
		Success:    true,
	}
	if req.Title != "" {
		res.Title = fmt.Sprintf("[%s] %s", req.TargetLang, req.Title)
	}
	return res, nil
}

func (prefixProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	return "ja", nil
}

// brokenStore ломается на чтении постов.
type brokenStore struct {
	*inmemory.Store
}

func (brokenStore) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	return nil, fmt.Errorf("connection reset")
}

// batchCountingStore считает батчевые поиски переводов, которые делает
// только dataloader запроса.
type batchCountingStore struct {
	*inmemory.Store
	batches atomic.Int32
}

func (b *batchCountingStore) GetTranslations(ctx context.Context, keys []storage.TranslationKey) (map[storage.TranslationKey]*domain.Translation, error) {
	b.batches.Add(1)
	return b.Store.GetTranslations(ctx, keys)
}

type testEnv struct {
	handler http.Handler
	store   *inmemory.Store
	hub     *stream.Hub
	auth    *auth.Verifier
	post    *domain.Post
}

func newTestEnv(t *testing.T, store storage.Storage) *testEnv {
	t.Helper()
	mem := inmemory.New()
	if store == nil {
		store = mem
	}
	hub := stream.NewHub(nil)
	svc, err := localize.New(store, prefixProvider{}, localize.WithPublisher(hub))
	require.NoError(t, err)

	post, err := mem.CreatePost(context.Background(), &domain.Post{
		AuthorID:     "user-1",
		Title:        "東京の夜",
		Body:         "夜景がきれいです",
		Visibility:   "public",
		PostType:     "post",
		Status:       "published",
		OriginalLang: "ja",
	})
	require.NoError(t, err)

	verifier := auth.NewVerifier(testSecret)
	h := &Handler{Service: svc, Storage: store, Hub: hub, Auth: verifier}
	return &testEnv{handler: h.Routes(), store: mem, hub: hub, auth: verifier, post: post}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.auth.IssueToken(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLanguages(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/languages", "/api/posts/languages"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		cat := decode[lang.Catalog](t, rec)
		assert.Equal(t, "ja", cat.DefaultLanguage)
		assert.Contains(t, cat.SupportedLanguages, "en")
	}
}

func TestPostTranslated(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/posts/" + env.post.ID + "/translated"

	t.Run("query language", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, url+"?lang=en", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[domain.TranslatedPost](t, rec)
		assert.Equal(t, "en", view.ViewLang)
		assert.Equal(t, "[en] 東京の夜", view.DisplayTitle)
		assert.Equal(t, "[en] 夜景がきれいです", view.DisplayText)
		assert.True(t, view.IsTranslated)
		assert.Equal(t, "夜景がきれいです", view.Body)
	})

	t.Run("same language is not translated", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, url+"?lang=ja", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[domain.TranslatedPost](t, rec)
		assert.False(t, view.IsTranslated)
		assert.False(t, view.HasTranslation)
		assert.Equal(t, "夜景がきれいです", view.DisplayText)
	})

	t.Run("original mode", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, url+"?lang=ko&mode=original", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[domain.TranslatedPost](t, rec)
		assert.Equal(t, "東京の夜", view.DisplayTitle)
		assert.False(t, view.IsTranslated)
	})

	t.Run("cookie and accept-language", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.AddCookie(&http.Cookie{Name: lang.CookieName, Value: "ko"})
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		view := decode[domain.TranslatedPost](t, env.do(req))
		assert.Equal(t, "ko", view.ViewLang)

		req = httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		view = decode[domain.TranslatedPost](t, env.do(req))
		assert.Equal(t, "en", view.ViewLang)
	})

	t.Run("not found", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/posts/missing/translated", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decode[errorResponse](t, rec)
		assert.Equal(t, "not_found", body.Error)
	})
}

func TestPostTranslated_InternalError(t *testing.T) {
	env := newTestEnv(t, brokenStore{Store: inmemory.New()})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/posts/any/translated", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, loadFailedMessage, body.Message)
	assert.NotContains(t, body.Message, "connection reset")
}

func TestFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/posts?lang=en", "/api/translations/posts?lang=en"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		feed := decode[[]domain.TranslatedPost](t, rec)
		require.Len(t, feed, 1)
		assert.Equal(t, "[en] 東京の夜", feed[0].DisplayTitle)
	}

	for _, q := range []string{"limit=abc", "limit=1000", "offset=-1"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/posts?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"title":"Hello","body":"A short story","original_lang":"en"}`

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "user-7"))
	rec = env.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[domain.Post](t, rec)
	assert.Equal(t, "user-7", post.AuthorID)
	assert.Equal(t, "en", post.OriginalLang)
	assert.Equal(t, "public", post.Visibility)

	req = httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":"x","body":"  "}`))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "user-7"))
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "user-7"))
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/posts/" + env.post.ID + "/comments"

	for _, text := range []string{"最初", "二番目", "三番目"} {
		rec := env.do(httptest.NewRequest(http.MethodPost, url+"?lang=en",
			strings.NewReader(fmt.Sprintf(`{"body":%q,"original_lang":"ja"}`, text))))
		require.Equal(t, http.StatusCreated, rec.Code)
		view := decode[domain.CommentView](t, rec)
		assert.Equal(t, "[en] "+text, view.TranslatedText)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, url+"?lang=en&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[localize.CommentPage](t, rec)
	require.Len(t, page.Comments, 2)
	assert.True(t, page.HasNextPage)
	require.NotNil(t, page.EndCursor)

	rec = env.do(httptest.NewRequest(http.MethodGet, url+"?lang=en&limit=2&cursor="+*page.EndCursor, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	next := decode[localize.CommentPage](t, rec)
	require.Len(t, next.Comments, 1)
	assert.False(t, next.HasNextPage)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/comments/"+next.Comments[0].CommentID+"/translated?lang=ko", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(decode[domain.CommentView](t, rec).TranslatedText, "[ko] "))

	rec = env.do(httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"body":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/posts/missing/comments", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplies(t *testing.T) {
	env := newTestEnv(t, nil)
	url := "/api/posts/" + env.post.ID + "/comments"

	rec := env.do(httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"body":"親コメント","original_lang":"ja"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	root := decode[domain.CommentView](t, rec)

	for _, text := range []string{"返信1", "返信2"} {
		body := fmt.Sprintf(`{"body":%q,"parent_id":%q,"original_lang":"ja"}`, text, root.CommentID)
		rec := env.do(httptest.NewRequest(http.MethodPost, url, strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, url+"?lang=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[localize.CommentPage](t, rec)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, 2, page.Comments[0].ReplyCount)
	require.Len(t, page.Comments[0].Replies, 2)
	assert.Equal(t, "[en] 返信1", page.Comments[0].Replies[0].TranslatedText)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/comments/"+root.CommentID+"/replies?lang=ko&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	replies := decode[localize.CommentPage](t, rec)
	require.Len(t, replies.Comments, 1)
	assert.True(t, replies.HasNextPage)
	assert.Equal(t, "[ko] 返信1", replies.Comments[0].TranslatedText)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/comments/"+root.CommentID+"/replies?lang=ko&limit=1&cursor="+*replies.EndCursor, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rest := decode[localize.CommentPage](t, rec)
	require.Len(t, rest.Comments, 1)
	assert.Equal(t, "[ko] 返信2", rest.Comments[0].TranslatedText)
	assert.False(t, rest.HasNextPage)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/comments/missing/replies", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/comments/"+root.CommentID+"/replies?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateComment_ParentOnAnotherPost(t *testing.T) {
	env := newTestEnv(t, nil)
	other, err := env.store.CreatePost(context.Background(), &domain.Post{Body: "other", Visibility: "public", OriginalLang: "ja"})
	require.NoError(t, err)
	foreign, err := env.store.CreateComment(context.Background(), &domain.Comment{PostID: other.ID, Body: "x", OriginalLang: "ja"})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"body":"reply","parent_id":%q}`, foreign.ID)
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/posts/"+env.post.ID+"/comments", strings.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserLanguage(t *testing.T) {
	env := newTestEnv(t, nil)
	bearer := "Bearer " + env.token(t, "user-3")

	rec := env.do(httptest.NewRequest(http.MethodPut, "/api/users/me/language", strings.NewReader(`{"preferred_lang":"ko"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/users/me/language", strings.NewReader(`{"preferred_lang":"xx"}`))
	req.Header.Set("Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)

	req = httptest.NewRequest(http.MethodPut, "/api/users/me/language", strings.NewReader(`{"preferred_lang":"ko-KR"}`))
	req.Header.Set("Authorization", bearer)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ko", decode[languageResponse](t, rec).PreferredLang)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, lang.CookieName, cookies[0].Name)
	assert.Equal(t, "ko", cookies[0].Value)

	// Настройка пользователя важнее cookie, но уступает ?lang=
	req = httptest.NewRequest(http.MethodGet, "/api/users/me/language", nil)
	req.Header.Set("Authorization", bearer)
	req.AddCookie(&http.Cookie{Name: lang.CookieName, Value: "en"})
	assert.Equal(t, "ko", decode[languageResponse](t, env.do(req)).PreferredLang)

	req = httptest.NewRequest(http.MethodGet, "/api/posts/"+env.post.ID+"/translated", nil)
	req.Header.Set("Authorization", bearer)
	assert.Equal(t, "ko", decode[domain.TranslatedPost](t, env.do(req)).ViewLang)

	req = httptest.NewRequest(http.MethodGet, "/api/posts/"+env.post.ID+"/translated?lang=en", nil)
	req.Header.Set("Authorization", bearer)
	assert.Equal(t, "en", decode[domain.TranslatedPost](t, env.do(req)).ViewLang)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/me/language", nil))
	assert.Equal(t, lang.Default, decode[languageResponse](t, rec).PreferredLang)
}

func TestUserLanguage_WireFormat(t *testing.T) {
	env := newTestEnv(t, nil)
	bearer := "Bearer " + env.token(t, "user-4")

	req := httptest.NewRequest(http.MethodPut, "/api/users/me/language", strings.NewReader(`{"preferred_lang":"en"}`))
	req.Header.Set("Authorization", bearer)
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"preferred_lang":"en"}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "preferred_lang", cookies[0].Name)

	pref, err := env.store.GetUserPreference(context.Background(), "user-4")
	require.NoError(t, err)
	assert.Equal(t, "en", pref.PreferredLang)

	// Cookie клиента учитывается до Accept-Language
	req = httptest.NewRequest(http.MethodGet, "/api/users/me/language", nil)
	req.AddCookie(&http.Cookie{Name: "preferred_lang", Value: "ko"})
	req.Header.Set("Accept-Language", "en")
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"preferred_lang":"ko"}`, rec.Body.String())
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chats/chat-1/messages", strings.NewReader(`{"body":"hi"}`))
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/chats/chat-1/messages", strings.NewReader(`{"body":"こんにちは","original_lang":"ja"}`))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "user-2"))
	rec := env.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	msg := decode[domain.Message](t, rec)
	assert.Equal(t, "user-2", msg.SenderID)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/messages/"+msg.ID+"/translated?lang=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[domain.MessageView](t, rec)
	assert.Equal(t, "[en] こんにちは", view.TranslatedText)
	assert.True(t, view.IsTranslated)
}

func TestChatStream(t *testing.T) {
	store := &batchCountingStore{Store: inmemory.New()}
	env := newTestEnv(t, store)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chats/chat-9/stream?lang=en"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers("chat-9") == 1 }, 2*time.Second, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chats/chat-9/messages",
		strings.NewReader(`{"body":"またね","original_lang":"ja"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.token(t, "user-5"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view domain.MessageView
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, "chat-9", view.ChatID)
	assert.Equal(t, "[en] またね", view.TranslatedText)
	assert.Equal(t, "en", view.TargetLang)

	// Поток переводит без лоадеров запроса, обычный запрос - через них
	assert.Zero(t, store.batches.Load())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/messages/"+view.MessageID+"/translated?lang=ko", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), store.batches.Load())
}
