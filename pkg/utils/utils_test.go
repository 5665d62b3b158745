package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{"zhangsan@example.com", "li.jingli+hr@corp.example.cn"} {
		assert.NoError(t, ValidateEmail(email), email)
	}
	for _, email := range []string{"", "wangwu@", "@example.com", "no-at-sign", "a@b.c"} {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json", Service: "approval-center"})
	require.NoError(t, err)
	logger.Info("approval center started")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "approval center started")
	assert.Contains(t, string(content), `"timestamp"`)
	assert.Contains(t, string(content), `"service":"approval-center"`)
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "verbose", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(0))
}
