package port

import (
	"context"
	"time"

	"github.com/garyjia/approval-center/internal/domain/entity"
)

// ApplicationFilter narrows an applicant's applications at the storage level.
// Zero values disable a criterion; Limit <= 0 returns every match.
type ApplicationFilter struct {
	ApplicantID int64
	AppType     entity.AppType
	Statuses    []entity.Status
	SubmitFrom  *time.Time
	SubmitTo    *time.Time
	Limit       int
	Offset      int
}

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	GetByID(ctx context.Context, id int64) (*entity.Application, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Application, error)
	// UpdateStatus moves an application from one status to another and reports whether a row changed
	UpdateStatus(ctx context.Context, id int64, from, to entity.Status, finishTime time.Time) (bool, error)
	// List returns matches ordered by submit time descending together with the unpaginated count
	List(ctx context.Context, filter ApplicationFilter) ([]*entity.Application, int64, error)
}

// DetailRepository persists the type-specific detail records of applications
type DetailRepository interface {
	Create(ctx context.Context, detail *entity.ApplicationDetail) error
	// GetByApplication returns nil when the application has no detail row
	GetByApplication(ctx context.Context, app *entity.Application) (*entity.ApplicationDetail, error)
	ListByApplications(ctx context.Context, apps []*entity.Application) (map[int64]*entity.ApplicationDetail, error)
}

// TaskRepository defines persistence operations for Task
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	GetOpenByAppID(ctx context.Context, appID int64) (*entity.Task, error)
	// DeleteOpenByAppID removes open tasks only and returns the number removed
	DeleteOpenByAppID(ctx context.Context, appID int64) (int64, error)
	// Complete closes an open task and reports whether it was still open
	Complete(ctx context.Context, id int64, action entity.Action, comment string, finishTime time.Time) (bool, error)
	// ListByAssignee pages tasks for an assignee; limit <= 0 returns every match
	ListByAssignee(ctx context.Context, assigneeID int64, status int, limit, offset int) ([]*entity.Task, int64, error)
}

// HistoryRepository is the append-only store of approval decisions
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	// ListByAppID returns entries newest first
	ListByAppID(ctx context.Context, appID int64) ([]*entity.HistoryEntry, error)
	// LatestByAppIDs returns the entry with the most recent approve time per application
	LatestByAppIDs(ctx context.Context, appIDs []int64) (map[int64]*entity.HistoryEntry, error)
}

// SequenceRepository hands out per-day application sequence numbers
type SequenceRepository interface {
	// Next atomically increments and returns the counter for day (yyyyMMdd)
	Next(ctx context.Context, day string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
