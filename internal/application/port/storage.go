package port

import (
	"context"
	"errors"
	"io"
)

// ErrFileRejected marks uploads refused by the storage policy (type or size)
var ErrFileRejected = errors.New("file rejected")

// FileStorage stores attachment content and returns opaque references
type FileStorage interface {
	// Save writes content under a generated name and returns its reference
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Exists(ctx context.Context, ref string) bool
	Delete(ctx context.Context, ref string) error
}
