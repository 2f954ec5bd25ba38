package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/service"
)

// PostHandler serves /api/posts and its comment sub-resource.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type createPostRequest struct {
	Title         string   `json:"title" validate:"required,notblank,max=200"`
	Content       string   `json:"content" validate:"required,notblank"`
	Excerpt       string   `json:"excerpt" validate:"max=500"`
	FeaturedImage string   `json:"featuredImage" validate:"max=2048"`
	Tags          []string `json:"tags" validate:"max=50,dive,max=50"`
	Category      string   `json:"category" validate:"max=100"`
	Slug          string   `json:"slug" validate:"max=200"`
}

// updatePostRequest leaves absent fields nil. Emptiness of title and content
// is checked by the service after the merge.
type updatePostRequest struct {
	Title         *string   `json:"title" validate:"omitnil,max=200"`
	Content       *string   `json:"content"`
	Excerpt       *string   `json:"excerpt" validate:"omitnil,max=500"`
	FeaturedImage *string   `json:"featuredImage" validate:"omitnil,max=2048"`
	Tags          *[]string `json:"tags" validate:"omitnil,max=50,dive,max=50"`
	Category      *string   `json:"category" validate:"omitnil,max=100"`
	Slug          *string   `json:"slug" validate:"omitnil,max=200"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

// HandleList serves GET /api/posts?page=&limit=&category=&q=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var fields []apperror.FieldError
	page, ok := positiveIntParam(query.Get("page"), service.DefaultPage)
	if !ok {
		fields = append(fields, apperror.FieldError{Field: "page", Message: "Page must be a positive integer", Location: "query"})
	}
	limit, ok := positiveIntParam(query.Get("limit"), service.DefaultLimit)
	if !ok {
		fields = append(fields, apperror.FieldError{Field: "limit", Message: "Limit must be a positive integer", Location: "query"})
	}
	if len(fields) > 0 {
		writeError(w, h.logger, apperror.Validation(fields...))
		return
	}

	result, err := h.posts.List(r.Context(), service.ListParams{
		Page:     page,
		Limit:    limit,
		Category: query.Get("category"),
		Query:    query.Get("q"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	posts := result.Posts
	if posts == nil {
		posts = []model.Post{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    posts,
		Meta:    &Meta{Page: result.Page, Limit: result.Limit, Total: result.Total},
	})
}

// HandleGet serves GET /api/posts/{id}; the id may also be a slug.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, post)
}

func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	author, _ := auth.UserFromContext(r.Context())
	post, err := h.posts.Create(r.Context(), author, model.PostInput{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		Tags:          req.Tags,
		Category:      req.Category,
		Slug:          req.Slug,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, post)
}

func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	actor, _ := auth.UserFromContext(r.Context())
	post, err := h.posts.Update(r.Context(), actor, chi.URLParam(r, "id"), model.PostPatch{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		Tags:          req.Tags,
		Category:      req.Category,
		Slug:          req.Slug,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, post)
}

func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	if err := h.posts.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "Post deleted"})
}

// HandleAddComment serves POST /api/posts/{id}/comments and answers with the
// new comment only.
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	actor, _ := auth.UserFromContext(r.Context())
	comment, err := h.posts.AddComment(r.Context(), actor, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, comment)
}

// positiveIntParam parses an optional query value. Absent means fallback;
// anything but an integer ≥ 1 is rejected.
func positiveIntParam(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
