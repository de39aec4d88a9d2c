package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"my-project-dev-app-config"}, cfg.Secrets.SecretNames())
	assert.Equal(t, "A:E", cfg.Sheet.Range)
	assert.Equal(t, "email", cfg.Notify.Mode)
	assert.Equal(t, []string{"nim:", "nrp:"}, cfg.Extract.IdentifierKeywords)
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sheet:
  backend: xlsx
  workbook_dir: /tmp/sheets
notify:
  mode: both
bus:
  backend: memory
`), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("GRADEBOOK_NOTIFY__MODE", "bus")
	t.Setenv("GRADEBOOK_EXTRACT__IDENTIFIER_KEYWORDS", "nrp:, npm: ")
	t.Setenv("SECRET_NAME", "legacy-config")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "xlsx", cfg.Sheet.Backend)
	assert.Equal(t, "/tmp/sheets", cfg.Sheet.WorkbookDir)
	assert.Equal(t, "bus", cfg.Notify.Mode, "env wins over file")
	assert.Equal(t, "memory", cfg.Bus.Backend)
	assert.Equal(t, []string{"nrp:", "npm:"}, cfg.Extract.IdentifierKeywords)
	assert.Equal(t, []string{"legacy-config"}, cfg.Secrets.SecretNames())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad mode", mutate: func(c *Config) { c.Notify.Mode = "pager" }, wantErr: "Config.Notify.Mode failed oneof"},
		{name: "smtp without host", mutate: func(c *Config) { c.Notify.EmailBackend = "smtp" }, wantErr: "SMTPHost failed required_if"},
		{name: "file secrets without dir", mutate: func(c *Config) { c.Secrets.Backend = "file" }, wantErr: "FileDir failed required_if"},
		{name: "no secret names", mutate: func(c *Config) { c.Secrets.Suffixes = nil }, wantErr: "no secret names configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSecretNames(t *testing.T) {
	t.Parallel()

	c := SecretsConfig{Project: "kampus", Environment: " ", Suffixes: []string{"app-config", "google"}}
	assert.Equal(t, []string{"kampus-app-config", "kampus-google"}, c.SecretNames())

	c.Names = []string{"explicit"}
	assert.Equal(t, []string{"explicit"}, c.SecretNames())
}
