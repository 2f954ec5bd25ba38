package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/service"
)

// maxMemoryBytes is how much of a multipart body is kept in memory before
// the rest spills to temporary files.
const maxMemoryBytes = 32 << 20

type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// HandleUpload serves POST /api/uploads with a multipart field named "file".
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	noFile := apperror.BadRequest("No file uploaded")

	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		writeError(w, h.logger, noFile)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Warn("reading upload", slog.String("error", err.Error()))
		}
		writeError(w, h.logger, noFile)
		return
	}
	defer file.Close()

	result, err := h.uploads.Save(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, result)
}
