package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
)

func TestLocalFileStorage_SaveOpenDelete(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), 1024, nil, zap.NewNop())
	ctx := context.Background()

	ref, err := s.Save(ctx, "发票.PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Regexp(t, `^\d{4}/\d{2}/[0-9a-f-]{36}\.pdf$`, ref)
	assert.True(t, s.Exists(ctx, ref))

	rc, err := s.Open(ctx, ref)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))

	require.NoError(t, s.Delete(ctx, ref))
	assert.False(t, s.Exists(ctx, ref))
	assert.NoError(t, s.Delete(ctx, ref), "delete is idempotent")
}

func TestLocalFileStorage_SaveGeneratesDistinctNames(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), 0, nil, zap.NewNop())

	first, err := s.Save(context.Background(), "a.png", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := s.Save(context.Background(), "a.png", strings.NewReader("2"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestLocalFileStorage_SaveRejects(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalFileStorage(dir, 4, []string{".txt"}, zap.NewNop())
	ctx := context.Background()

	_, err := s.Save(ctx, "run.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)

	_, err = s.Save(ctx, "big.txt", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.ErrorIs(t, err, port.ErrFileRejected)

	ref, err := s.Save(ctx, "ok.txt", bytes.NewReader([]byte("1234")))
	require.NoError(t, err)
	assert.True(t, s.Exists(ctx, ref))
}

func TestLocalFileStorage_PathTraversal(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), 0, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Open(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.False(t, s.Exists(ctx, "../outside.pdf"))
	assert.Error(t, s.Delete(ctx, "../outside.pdf"))
	_, err = s.Open(ctx, "")
	assert.Error(t, err)
}
