package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
)

// SequenceRepository implements port.SequenceRepository with one counter row per day
type SequenceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sqlite.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Next increments the day's counter in a single statement. Called inside the
// creation transaction, the write lock makes concurrent submissions serialize.
func (r *SequenceRepository) Next(ctx context.Context, day string) (int64, error) {
	var value int64
	err := r.db.Executor(ctx).QueryRowContext(ctx, `
		INSERT INTO app_sequences (seq_date, last_value) VALUES (?, 1)
		ON CONFLICT(seq_date) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`, day).Scan(&value)
	if err != nil {
		r.logger.Error("Failed to advance sequence", zap.String("day", day), zap.Error(err))
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return value, nil
}

// Verify interface compliance
var _ port.SequenceRepository = (*SequenceRepository)(nil)
