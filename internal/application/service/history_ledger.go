package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

// HistoryLedger is the append-only record of approval decisions
type HistoryLedger interface {
	Record(ctx context.Context, entry *entity.HistoryEntry) error
	ListByApplication(ctx context.Context, appID int64) ([]*entity.HistoryEntry, error)
	LatestForApplications(ctx context.Context, appIDs []int64) (map[int64]*entity.HistoryEntry, error)
}

type historyLedgerImpl struct {
	historyRepo port.HistoryRepository
	now         Clock
}

// NewHistoryLedger creates a new HistoryLedger
func NewHistoryLedger(historyRepo port.HistoryRepository, clock Clock) HistoryLedger {
	return &historyLedgerImpl{
		historyRepo: historyRepo,
		now:         orNow(clock),
	}
}

func (l *historyLedgerImpl) Record(ctx context.Context, entry *entity.HistoryEntry) error {
	if entry.ID != 0 {
		return fmt.Errorf("history entry %d already recorded", entry.ID)
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid history action: %d", entry.Action)
	}

	now := l.now()
	if entry.ApproveTime.IsZero() {
		entry.ApproveTime = now
	}
	entry.CreatedAt = now

	if err := l.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (l *historyLedgerImpl) ListByApplication(ctx context.Context, appID int64) ([]*entity.HistoryEntry, error) {
	entries, err := l.historyRepo.ListByAppID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []*entity.HistoryEntry{}
	}
	return entries, nil
}

func (l *historyLedgerImpl) LatestForApplications(ctx context.Context, appIDs []int64) (map[int64]*entity.HistoryEntry, error) {
	if len(appIDs) == 0 {
		return map[int64]*entity.HistoryEntry{}, nil
	}
	latest, err := l.historyRepo.LatestByAppIDs(ctx, appIDs)
	if err != nil {
		return nil, fmt.Errorf("latest history batch: %w", err)
	}
	return latest, nil
}
