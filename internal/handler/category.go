package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/service"
)

type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// HandleList serves GET /api/categories, sorted by name.
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if cats == nil {
		cats = []model.Category{}
	}
	writeData(w, http.StatusOK, cats)
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	cat, err := h.categories.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, cat)
}
