package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveUploader stores files in a Google Drive folder.
type DriveUploader struct {
	svc    *drive.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewDriveUploader(svc *drive.Service, logger *slog.Logger) *DriveUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveUploader{svc: svc, logger: logger, now: time.Now}
}

func (d *DriveUploader) Upload(ctx context.Context, folderID, name string, content []byte) (*entity.UploadRef, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, errors.New("folder id is empty")
	}
	meta := &drive.File{
		Name:        name,
		Parents:     []string{folderID},
		MimeType:    constants.LogContentType,
		Description: Description(d.now()),
	}
	f, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(constants.LogContentType)).
		Fields("id", "name", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive create: %w", err)
	}

	d.logger.Info("upload.drive.ok", "file_id", f.Id, "name", f.Name, "bytes", len(content))
	return &entity.UploadRef{FileID: f.Id, FileName: f.Name, Link: f.WebViewLink}, nil
}

// FolderInfo describes a Drive folder as seen by the service account.
type FolderInfo struct {
	ID   string
	Name string
}

// CheckFolder confirms the folder exists, is a folder, and is visible to the caller.
func (d *DriveUploader) CheckFolder(ctx context.Context, folderID string) (*FolderInfo, error) {
	f, err := d.svc.Files.Get(folderID).
		Fields("id", "name", "mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive get folder %s: %w", folderID, err)
	}
	if f.MimeType != folderMimeType {
		return nil, fmt.Errorf("%s is a %s, not a folder", folderID, f.MimeType)
	}
	return &FolderInfo{ID: f.Id, Name: f.Name}, nil
}

// FileInfo is one entry of a folder listing.
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	CreatedTime string
}

// ListFolder returns up to limit non-trashed files in the folder, newest first.
func (d *DriveUploader) ListFolder(ctx context.Context, folderID string, limit int64) ([]FileInfo, error) {
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))
	resp, err := d.svc.Files.List().
		Q(q).
		OrderBy("createdTime desc").
		PageSize(limit).
		Fields("files(id,name,mimeType,createdTime)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list %s: %w", folderID, err)
	}
	out := make([]FileInfo, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, FileInfo{ID: f.Id, Name: f.Name, MimeType: f.MimeType, CreatedTime: f.CreatedTime})
	}
	return out, nil
}
