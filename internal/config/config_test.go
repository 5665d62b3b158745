package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: "0123456789abcdef"
storage:
  allowed_extensions: [".pdf", ".png"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "data/approval.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{".pdf", ".png"}, cfg.Storage.AllowedExtensions)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadSize)
	assert.False(t, cfg.Lark.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APPROVAL_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("LARK_APP_ID", "cli_test")
	t.Setenv("LARK_APP_SECRET", "secret")
	path := writeConfig(t, `
auth:
  jwt_secret: "file-secret-0123456789"
lark:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, "cli_test", cfg.Lark.AppID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "data/approval.db"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: time.Hour},
			Storage:  StorageConfig{AttachmentDir: "data/attachments"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "auth.jwt_secret"},
		{"no ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "auth.token_ttl"},
		{"lark without id", func(c *Config) { c.Lark.Enabled = true }, "lark.app_id"},
		{"lark without secret", func(c *Config) { c.Lark = LarkConfig{Enabled: true, AppID: "cli"} }, "lark.app_secret"},
		{"no attachment dir", func(c *Config) { c.Storage.AttachmentDir = "" }, "storage.attachment_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
