package httpapi

import (
	"net/http"

	"github.com/UkralStul/localized-view-service/internal/auth"
	"github.com/UkralStul/localized-view-service/internal/dataloader"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/localize"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"github.com/UkralStul/localized-view-service/internal/stream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler - корневая структура HTTP API.
// Она содержит все зависимости, которые нужны для выполнения запросов.
type Handler struct {
	Service *localize.Service
	Storage storage.Storage
	Hub     *stream.Hub
	Auth    *auth.Verifier
	Log     *zap.Logger
}

// Routes собирает роутер со всеми маршрутами.
func (h *Handler) Routes() http.Handler {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(h.Log))
	router.Use(middleware.Recoverer)
	router.Use(h.Auth.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		// Без лоадеров запроса: соединение живет дольше одного запроса
		r.Get("/chats/{chatID}/stream", h.stream)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return dataloader.Middleware(h.Storage, next)
			})

			r.Get("/languages", h.languages)
			r.Get("/posts/languages", h.languages)

			r.Get("/posts", h.feed)
			r.Get("/translations/posts", h.feed)
			r.Post("/posts", h.createPost)
			r.Get("/posts/{postID}/translated", h.post)
			r.Get("/posts/{postID}/comments", h.comments)
			r.Post("/posts/{postID}/comments", h.createComment)

			r.Get("/comments/{commentID}/translated", h.comment)
			r.Get("/comments/{commentID}/replies", h.replies)

			r.Post("/chats/{chatID}/messages", h.createMessage)
			r.Get("/messages/{messageID}/translated", h.message)

			r.Get("/users/me/language", h.getLanguage)
			r.Put("/users/me/language", h.putLanguage)
		})
	})

	return router
}

// viewerOptions определяет язык и режим показа для запроса.
func (h *Handler) viewerOptions(r *http.Request) localize.Options {
	var userLang string
	if userID := auth.UserFrom(r.Context()); userID != "" {
		code, err := h.Service.UserLanguage(r.Context(), userID)
		if err != nil {
			h.Log.Warn("failed to load user language", zap.String("user_id", userID), zap.Error(err))
		}
		userLang = code
	}
	return localize.Options{
		Lang: lang.Resolve(lang.SourcesFromRequest(r, userLang)),
		Mode: r.URL.Query().Get("mode"),
	}
}
