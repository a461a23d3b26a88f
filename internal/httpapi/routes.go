package httpapi

import (
	"net/http"

	"github.com/UkralStul/localized-view-service/internal/auth"
	"github.com/UkralStul/localized-view-service/internal/lang"
	"github.com/UkralStul/localized-view-service/internal/localize"
	"github.com/UkralStul/localized-view-service/internal/storage"

	"github.com/go-chi/chi/v5"
)

type languageResponse struct {
	PreferredLang string `json:"preferred_lang"`
}

type languageRequest struct {
	PreferredLang string `json:"preferred_lang"`
}

func (h *Handler) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lang.Languages())
}

// === Posts ===

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := h.viewerOptions(r)
	posts, err := h.Service.Feed(r.Context(), localize.FeedQuery{
		Lang:     opts.Lang,
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.ResolvePost(r.Context(), chi.URLParam(r, "postID"), h.viewerOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in localize.NewPost
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.AuthorID = userID

	post, err := h.Service.CreatePost(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// === Comments ===

func (h *Handler) comments(w http.ResponseWriter, r *http.Request) {
	args, err := pageArgs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.Service.CommentsForPost(r.Context(), chi.URLParam(r, "postID"), h.viewerOptions(r), args)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) replies(w http.ResponseWriter, r *http.Request) {
	args, err := pageArgs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.Service.RepliesForComment(r.Context(), chi.URLParam(r, "commentID"), h.viewerOptions(r), args)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// pageArgs читает limit и cursor для курсорной пагинации.
func pageArgs(r *http.Request) (storage.PaginationArgs, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return storage.PaginationArgs{}, err
	}
	args := storage.PaginationArgs{Limit: limit}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		args.Cursor = &cursor
	}
	return args, nil
}

func (h *Handler) comment(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.ResolveComment(r.Context(), chi.URLParam(r, "commentID"), h.viewerOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// createComment не требует входа: анонимный комментарий сохраняется без автора.
func (h *Handler) createComment(w http.ResponseWriter, r *http.Request) {
	var in localize.NewComment
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.PostID = chi.URLParam(r, "postID")
	in.AuthorID = auth.UserFrom(r.Context())

	c, err := h.Service.CreateComment(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Service.ViewComment(r.Context(), c, h.viewerOptions(r)))
}

// === Chat ===

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in localize.NewMessage
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	in.ChatID = chi.URLParam(r, "chatID")
	in.SenderID = userID

	msg, err := h.Service.CreateMessage(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) message(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.ResolveMessage(r.Context(), chi.URLParam(r, "messageID"), h.viewerOptions(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeChat(w, r, chi.URLParam(r, "chatID"), h.viewerOptions(r), h.Service)
}

// === User language ===

func (h *Handler) getLanguage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languageResponse{PreferredLang: h.viewerOptions(r).Lang})
}

func (h *Handler) putLanguage(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in languageRequest
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	code, err := h.Service.SetUserLanguage(r.Context(), userID, in.PreferredLang)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lang.SetCookie(w, code)
	writeJSON(w, http.StatusOK, languageResponse{PreferredLang: code})
}
