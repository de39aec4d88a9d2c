package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/gradebook-relay/internal/common"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	cfg := common.DefaultConfig()
	ref, err := parseTarget(cfg, "s3://uploads/logs/run.log")
	require.NoError(t, err)
	assert.Equal(t, entity.ObjectRef{Bucket: "uploads", Key: "logs/run.log"}, ref)
	assert.Equal(t, "s3", cfg.Storage.Backend)

	for _, bad := range []string{"s3://uploads", "s3:///key.log", "s3://uploads/"} {
		_, err := parseTarget(common.DefaultConfig(), bad)
		assert.Error(t, err, bad)
	}

	cfg = common.DefaultConfig()
	root := t.TempDir()
	local := filepath.Join(root, "kelas-a", "hasil.log")
	ref, err = parseTarget(cfg, local)
	require.NoError(t, err)
	assert.Equal(t, entity.ObjectRef{Bucket: "kelas-a", Key: "hasil.log"}, ref)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, root, cfg.Storage.LocalRoot)
}

func TestRunOnceLocalFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	secretDir := filepath.Join(root, "secrets")
	require.NoError(t, os.MkdirAll(secretDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secretDir, "gradebook.json"),
		[]byte(`{"google_sheet_id":"nilai","google_drive_folder_id":"arsip"}`), 0o600))
	logPath := filepath.Join(root, "logs", "hasil.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0o755))
	require.NoError(t, os.WriteFile(logPath, []byte("NIM: 12345\nScore: 85\n"), 0o600))

	cfg := common.DefaultConfig()
	cfg.Secrets.Backend = "file"
	cfg.Secrets.FileDir = secretDir
	cfg.Secrets.Names = []string{"gradebook"}
	cfg.Sheet.Backend = "xlsx"
	cfg.Sheet.WorkbookDir = filepath.Join(root, "sheets")
	cfg.Upload.Backend = "local"
	cfg.Upload.LocalRoot = filepath.Join(root, "drive")
	cfg.Notify.Mode = "none"

	resp, err := runOnce(context.Background(), cfg, nil, logPath)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	var body entity.SuccessBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "hasil.log", body.Results.FileProcessed)
	assert.Equal(t, "12345", body.Results.DataExtracted.Identifier)
	assert.True(t, body.Results.SheetUpdated)
	assert.True(t, body.Results.DriveUploaded)
}
