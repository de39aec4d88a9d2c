package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// LocalUploader copies files into <root>/<folderID>/. Used by local runs.
type LocalUploader struct {
	root   string
	logger *slog.Logger
}

func NewLocalUploader(root string, logger *slog.Logger) *LocalUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalUploader{root: root, logger: logger}
}

func (l *LocalUploader) Upload(_ context.Context, folderID, name string, content []byte) (*entity.UploadRef, error) {
	for _, part := range []string{folderID, name} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return nil, fmt.Errorf("invalid path element %q", part)
		}
	}
	dir := filepath.Join(l.root, folderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", dst, err)
	}
	l.logger.Info("upload.local.ok", "path", dst, "bytes", len(content))
	return &entity.UploadRef{FileID: filepath.Join(folderID, name), FileName: name, Link: "file://" + filepath.ToSlash(dst)}, nil
}
