package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/apperror"
)

// UploadURLPrefix is where cmd/server mounts the upload directory.
const UploadURLPrefix = "/uploads/"

var whitespace = regexp.MustCompile(`\s+`)

// UploadResult is what a stored file is reported as.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UploadService writes uploaded files into a single directory.
type UploadService struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewUploadService(dir string, logger *slog.Logger) *UploadService {
	return &UploadService{dir: dir, now: time.Now, logger: logger}
}

// Dir returns the directory files are stored in.
func (s *UploadService) Dir() string {
	return s.dir
}

// Save stores r under "<unix millis>-<original name>", with runs of
// whitespace in the name replaced by "-". Should that name exist already,
// a unique id is inserted after the timestamp.
func (s *UploadService) Save(ctx context.Context, originalName string, r io.Reader) (*UploadResult, error) {
	name := storedName(originalName)
	if name == "" {
		return nil, apperror.BadRequest("No file uploaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("service/upload: creating directory: %w", err)
	}

	stamp := s.now().UnixMilli()
	filename := fmt.Sprintf("%d-%s", stamp, name)
	f, err := os.OpenFile(filepath.Join(s.dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		filename = fmt.Sprintf("%d-%s-%s", stamp, xid.New().String(), name)
		f, err = os.OpenFile(filepath.Join(s.dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("service/upload: creating file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, filename))
		return nil, fmt.Errorf("service/upload: writing file: %w", err)
	}

	s.logger.Info("file uploaded", slog.String("filename", filename), slog.Int64("bytes", n))
	return &UploadResult{URL: UploadURLPrefix + filename, Filename: filename}, nil
}

// storedName strips any directory part a client sent and normalizes
// whitespace.
func storedName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return whitespace.ReplaceAllString(strings.TrimSpace(base), "-")
}
