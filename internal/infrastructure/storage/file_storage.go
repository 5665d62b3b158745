package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = fmt.Errorf("%w: exceeds size limit", port.ErrFileRejected)

	// ErrExtensionNotAllowed is returned for uploads with an unsupported extension
	ErrExtensionNotAllowed = fmt.Errorf("%w: extension not allowed", port.ErrFileRejected)
)

// DefaultAllowedExtensions covers scanned invoices, certificates and office documents
var DefaultAllowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx", ".xls", ".xlsx"}

// LocalFileStorage implements port.FileStorage for local filesystem.
// References are slash separated paths relative to baseDir: yyyy/mm/<uuid><ext>.
type LocalFileStorage struct {
	baseDir    string
	maxSize    int64
	extensions map[string]struct{}
	logger     *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage. maxSize <= 0 disables the size check.
func NewLocalFileStorage(baseDir string, maxSize int64, extensions []string, logger *zap.Logger) *LocalFileStorage {
	if len(extensions) == 0 {
		extensions = DefaultAllowedExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &LocalFileStorage{
		baseDir:    baseDir,
		maxSize:    maxSize,
		extensions: allowed,
		logger:     logger,
	}
}

// Save writes content under a generated name and returns its reference
func (s *LocalFileStorage) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := s.extensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}

	ref := fmt.Sprintf("%s/%s%s", time.Now().Format("2006/01"), uuid.NewString(), ext)
	fullPath, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	reader := content
	if s.maxSize > 0 {
		reader = io.LimitReader(content, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = ErrFileTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		if errors.Is(err, ErrFileTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Info("File saved successfully",
		zap.String("ref", ref),
		zap.String("original_name", originalName),
		zap.Int64("size", written))
	return ref, nil
}

// Open returns a reader over the stored content
func (s *LocalFileStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Exists checks if a file exists for the reference
func (s *LocalFileStorage) Exists(ctx context.Context, ref string) bool {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// Delete removes the referenced file. Missing files are not an error.
func (s *LocalFileStorage) Delete(ctx context.Context, ref string) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a reference to a path and checks it stays within baseDir
func (s *LocalFileStorage) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty file reference")
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, filepath.FromSlash(ref)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", ref)
	}
	return absPath, nil
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
