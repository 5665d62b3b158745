package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/dispatcher"
	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/application/service"
	infraLark "github.com/garyjia/approval-center/internal/infrastructure/external/lark"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/repository"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-center/internal/infrastructure/storage"
	"github.com/garyjia/approval-center/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies the embedded migrations and
// wraps the connection in the transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Application: repository.NewApplicationRepository(db, logger),
		Detail:      repository.NewDetailRepository(db, logger),
		Task:        repository.NewTaskRepository(db, logger),
		History:     repository.NewHistoryRepository(db, logger),
		Sequence:    repository.NewSequenceRepository(db, logger),
		Directory:   repository.NewDirectoryRepository(db, logger),
	}, nil
}

// ProvideNotifier returns the Lark messenger, or a log-only notifier when Lark is disabled.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if !cfg.Enabled {
		logger.Info("Lark notifications disabled")
		return infraLark.NewLogNotifier(logger), nil
	}

	sdkClient := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}, logger)
	return infraLark.NewMessenger(sdkClient, logger), nil
}

// ProvideStorage creates the attachment storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if cfg.AttachmentDir == "" {
		return nil, fmt.Errorf("attachment directory is required")
	}
	return storage.NewLocalFileStorage(cfg.AttachmentDir, cfg.MaxUploadSize, cfg.AllowedExtensions, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
	), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Clock      service.Clock
	Logger     *zap.Logger
}

// ProvideServices creates all application services and registers the
// notification handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	router := service.NewTaskRouter(repos.Task, deps.Clock, logger)
	ledger := service.NewHistoryLedger(repos.History, deps.Clock)

	applications := service.NewApplicationService(service.ApplicationDeps{
		Applications: repos.Application,
		Details:      repos.Detail,
		Sequences:    repos.Sequence,
		Directory:    repos.Directory,
		Validator:    service.NewApproverValidator(repos.Directory),
		Router:       router,
		TxManager:    deps.TxManager,
		Publisher:    deps.Dispatcher,
		Clock:        deps.Clock,
		Logger:       logger,
	})

	decisions := service.NewDecisionService(service.DecisionDeps{
		Applications: repos.Application,
		Tasks:        repos.Task,
		Directory:    repos.Directory,
		Router:       router,
		Ledger:       ledger,
		TxManager:    deps.TxManager,
		Publisher:    deps.Dispatcher,
		Clock:        deps.Clock,
		Logger:       logger,
	})

	queries := service.NewQueryService(service.QueryDeps{
		Applications: repos.Application,
		Details:      repos.Detail,
		Tasks:        repos.Task,
		Directory:    repos.Directory,
		Ledger:       ledger,
		Clock:        deps.Clock,
	})

	bundle := &ServiceBundle{
		Application: applications,
		Decision:    decisions,
		Query:       queries,
		Export:      service.NewExportService(queries, logger),
	}

	if deps.Notifier != nil {
		bundle.Notification = service.NewNotificationService(repos.Directory, deps.Notifier, logger)
		bundle.Notification.Register(deps.Dispatcher)
	}

	return bundle, nil
}
