package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/application/service"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/approval-center/pkg/database"
)

// Seeded directory: 研发部 (1) with applicant 1, manager 2 and engineer 3.
const directorySeed = `
INSERT INTO sys_dept (dept_id, dept_name) VALUES (1, '研发部'), (2, '市场部');
INSERT INTO sys_post (post_id, post_code, post_name) VALUES (1, 'MGR', '部门经理'), (2, 'ENG', '工程师');
INSERT INTO sys_post_permission (post_id, permission_id)
	SELECT 1, permission_id FROM sys_permission WHERE permission_code IN ('APPLY', 'APPROVAL_REVIEW');
INSERT INTO sys_post_permission (post_id, permission_id)
	SELECT 2, permission_id FROM sys_permission WHERE permission_code = 'APPLY';
INSERT INTO sys_user (user_id, username, real_name, email, dept_id, post_id, status) VALUES
	(1, 'zhangsan', '张三', 'zhangsan@example.com', 1, 2, 1),
	(2, 'lijingli', '李经理', 'li@example.com', 1, 1, 1),
	(3, 'wangwu', '王五', NULL, 1, 2, 1),
	(4, 'retired', '退休经理', NULL, 1, 1, 0),
	(5, 'newbie', '新人', NULL, NULL, NULL, 1);
`

type repos struct {
	db           *sqlite.DB
	applications port.ApplicationRepository
	details      port.DetailRepository
	tasks        port.TaskRepository
	history      port.HistoryRepository
	sequences    port.SequenceRepository
	directory    port.Directory
}

func setup(t *testing.T) *repos {
	t.Helper()
	logger := zap.NewNop()

	conn, err := database.Open(database.Config{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(directorySeed)
	require.NoError(t, err)

	db := sqlite.NewDB(conn.DB, logger)
	return &repos{
		db:           db,
		applications: NewApplicationRepository(db, logger),
		details:      NewDetailRepository(db, logger),
		tasks:        NewTaskRepository(db, logger),
		history:      NewHistoryRepository(db, logger),
		sequences:    NewSequenceRepository(db, logger),
		directory:    NewDirectoryRepository(db, logger),
	}
}

func newApplication(appNo string, submit time.Time, status entity.Status) *entity.Application {
	return &entity.Application{
		AppNo:       appNo,
		AppType:     entity.AppTypeLeave,
		Title:       "请假申请-测试",
		ApplicantID: 1,
		DeptID:      1,
		Status:      status,
		CurrentNode: "研发部审批",
		SubmitTime:  submit,
		CreatedAt:   submit,
		UpdatedAt:   submit,
	}
}

func TestApplicationRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	first := newApplication("AP20261018000001", base, entity.StatusPending)
	require.NoError(t, r.applications.Create(ctx, first))
	second := newApplication("AP20261018000002", base.Add(time.Hour), entity.StatusApproved)
	second.AppType = entity.AppTypeReimburse
	require.NoError(t, r.applications.Create(ctx, second))

	dup := newApplication("AP20261018000001", base, entity.StatusPending)
	assert.Error(t, r.applications.Create(ctx, dup), "app_no is unique")

	got, err := r.applications.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.AppNo, got.AppNo)
	assert.True(t, got.SubmitTime.Equal(base))
	assert.Nil(t, got.FinishTime)

	missing, err := r.applications.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	apps, total, err := r.applications.List(ctx, port.ApplicationFilter{ApplicantID: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, apps, 1)
	assert.Equal(t, second.ID, apps[0].ID)

	from := base.Add(30 * time.Minute)
	apps, total, err = r.applications.List(ctx, port.ApplicationFilter{
		ApplicantID: 1,
		Statuses:    []entity.Status{entity.StatusApproved, entity.StatusRejected},
		SubmitFrom:  &from,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, second.ID, apps[0].ID)

	finished := base.Add(2 * time.Hour)
	changed, err := r.applications.UpdateStatus(ctx, first.ID, entity.StatusPending, entity.StatusWithdrawn, finished)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.applications.UpdateStatus(ctx, first.ID, entity.StatusPending, entity.StatusApproved, finished)
	require.NoError(t, err)
	assert.False(t, changed, "status guard")

	got, err = r.applications.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWithdrawn, got.Status)
	require.NotNil(t, got.FinishTime)
	assert.True(t, got.FinishTime.Equal(finished))

	byID, err := r.applications.GetByIDs(ctx, []int64{first.ID, second.ID, 999})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestDetailRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	leaveApp := newApplication("AP20261018000001", now, entity.StatusPending)
	require.NoError(t, r.applications.Create(ctx, leaveApp))
	reimburseApp := newApplication("AP20261018000002", now, entity.StatusPending)
	reimburseApp.AppType = entity.AppTypeReimburse
	require.NoError(t, r.applications.Create(ctx, reimburseApp))

	require.NoError(t, r.details.Create(ctx, entity.NewLeaveApplicationDetail(&entity.LeaveDetail{
		AppID: leaveApp.ID, LeaveType: entity.LeaveTypeSick, StartTime: now, EndTime: now.Add(36 * time.Hour),
		Days: decimal.RequireFromString("1.5"), Reason: "发烧",
	})))
	require.NoError(t, r.details.Create(ctx, entity.NewReimburseApplicationDetail(&entity.ReimburseDetail{
		AppID: reimburseApp.ID, ExpenseType: entity.ExpenseTypeTraining, Amount: decimal.RequireFromString("3999.99"),
		Reason: "技术大会门票", InvoiceAttachment: "invoices/abc.pdf", OccurDate: now,
	})))

	mismatched := &entity.ApplicationDetail{Type: entity.AppTypeLeave, Reimburse: &entity.ReimburseDetail{}}
	assert.Error(t, r.details.Create(ctx, mismatched))

	leave, err := r.details.GetByApplication(ctx, leaveApp)
	require.NoError(t, err)
	require.NoError(t, leave.Validate())
	assert.True(t, leave.Matches(leaveApp))
	assert.Equal(t, "1.5", leave.Leave.Days.String())

	all, err := r.details.ListByApplications(ctx, []*entity.Application{leaveApp, reimburseApp})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "3999.99", all[reimburseApp.ID].Reimburse.Amount.String())
	assert.Equal(t, "invoices/abc.pdf", all[reimburseApp.ID].Reimburse.InvoiceAttachment)
}

func TestDetailRepository_RejectsDetailOfWrongType(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	app := newApplication("AP20261018000001", now, entity.StatusPending)
	app.AppType = entity.AppTypeReimburse
	require.NoError(t, r.applications.Create(ctx, app))

	// a leave row stored against a reimbursement application
	require.NoError(t, r.details.Create(ctx, entity.NewLeaveApplicationDetail(&entity.LeaveDetail{
		AppID: app.ID, LeaveType: entity.LeaveTypeSick, StartTime: now, EndTime: now.Add(time.Hour),
		Days: decimal.RequireFromString("1"), Reason: "发烧",
	})))

	_, err := r.details.GetByApplication(ctx, app)
	assert.Error(t, err)

	_, err = r.details.ListByApplications(ctx, []*entity.Application{app})
	assert.Error(t, err)
}

func TestTaskRepository_OneOpenTaskPerApplication(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	app := newApplication("AP20261018000001", now, entity.StatusPending)
	require.NoError(t, r.applications.Create(ctx, app))

	open := &entity.Task{AppID: app.ID, NodeName: "研发部审批", AssigneeID: 2, AssigneeName: "李经理", CreatedAt: now}
	require.NoError(t, r.tasks.Create(ctx, open))

	second := &entity.Task{AppID: app.ID, NodeName: "研发部审批", AssigneeID: 2, AssigneeName: "李经理", CreatedAt: now}
	assert.Error(t, r.tasks.Create(ctx, second))

	changed, err := r.tasks.Complete(ctx, open.ID, entity.ActionApprove, "ok", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.tasks.Complete(ctx, open.ID, entity.ActionReject, "", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	reopened := &entity.Task{AppID: app.ID, NodeName: "研发部审批", AssigneeID: 2, AssigneeName: "李经理", CreatedAt: now}
	require.NoError(t, r.tasks.Create(ctx, reopened))

	removed, err := r.tasks.DeleteOpenByAppID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	closed, err := r.tasks.GetByID(ctx, open.ID)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, entity.ActionApprove, closed.Action)

	none, err := r.tasks.GetOpenByAppID(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	done, total, err := r.tasks.ListByAssignee(ctx, 2, entity.TaskStatusDone, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, done, 1)
}

func TestHistoryRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	app := newApplication("AP20261018000001", now, entity.StatusApproved)
	require.NoError(t, r.applications.Create(ctx, app))
	other := newApplication("AP20261018000002", now, entity.StatusRejected)
	require.NoError(t, r.applications.Create(ctx, other))

	entries := []*entity.HistoryEntry{
		{AppID: app.ID, NodeName: "研发部审批", ApproverID: 2, ApproverName: "李经理", Action: entity.ActionApprove, ApproveTime: now.Add(2 * time.Hour), CreatedAt: now},
		{AppID: app.ID, NodeName: "研发部审批", ApproverID: 3, ApproverName: "王五", Action: entity.ActionReject, ApproveTime: now.Add(time.Hour), CreatedAt: now.Add(time.Minute)},
		{AppID: other.ID, NodeName: "研发部审批", ApproverID: 2, ApproverName: "李经理", Action: entity.ActionReject, ApproveTime: now, CreatedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, r.history.Append(ctx, e))
	}

	listed, err := r.history.ListByAppID(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "王五", listed[0].ApproverName, "newest created first")

	batch, err := r.history.LatestByAppIDs(ctx, []int64{app.ID, other.ID, 999})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, entries[0].ID, batch[app.ID].ID, "latest by approve time")
	assert.Equal(t, "李经理", batch[app.ID].ApproverName)
	assert.Equal(t, entries[2].ID, batch[other.ID].ID)

	none, err := r.history.LatestByAppIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSequenceRepository_Next(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := r.sequences.Next(ctx, "20261018")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := r.sequences.Next(ctx, "20261019")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestDirectoryRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	user, err := r.directory.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "张三", user.RealName)
	require.NotNil(t, user.DeptID)
	assert.Equal(t, int64(1), *user.DeptID)

	newbie, err := r.directory.GetUserByID(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, newbie.DeptID)
	assert.Nil(t, newbie.PostID)

	missing, err := r.directory.GetUserByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	manager, err := r.directory.GetPostByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, manager.CanApprove())
	engineer, err := r.directory.GetPostByID(ctx, 2)
	require.NoError(t, err)
	assert.False(t, engineer.CanApprove())

	codes, err := r.directory.GetPermissionCodesByPostID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"APPLY", "APPROVAL_REVIEW"}, codes)

	users, err := r.directory.ListActiveUsersWithPost(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	dept, err := r.directory.GetDeptByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "市场部", dept.Name)
}

type failingRouter struct {
	service.TaskRouter
}

func (failingRouter) CreateTask(ctx context.Context, app *entity.Application, assigneeID int64, assigneeName string) (*entity.Task, error) {
	return nil, errors.New("task store unavailable")
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func lifecycleService(r *repos, router service.TaskRouter) service.ApplicationService {
	return service.NewApplicationService(service.ApplicationDeps{
		Applications: r.applications,
		Details:      r.details,
		Sequences:    r.sequences,
		Directory:    r.directory,
		Validator:    service.NewApproverValidator(r.directory),
		Router:       router,
		TxManager:    r.db,
		Logger:       nopLogger{},
	})
}

func leaveRequest() service.CreateLeaveRequest {
	approver := int64(2)
	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	return service.CreateLeaveRequest{
		LeaveType:  entity.LeaveTypePersonal,
		StartTime:  start,
		EndTime:    start.Add(8 * time.Hour),
		Days:       decimal.NewFromInt(1),
		Reason:     "办理证件",
		ApproverID: &approver,
	}
}

func countRows(t *testing.T, r *repos, table string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestLifecycle_RollsBackWhenTaskCreationFails(t *testing.T) {
	r := setup(t)

	_, err := lifecycleService(r, failingRouter{}).CreateLeaveApplication(context.Background(), leaveRequest(), 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))

	assert.Zero(t, countRows(t, r, "applications"))
	assert.Zero(t, countRows(t, r, "leave_applications"))
	assert.Zero(t, countRows(t, r, "tasks"))
	assert.Zero(t, countRows(t, r, "app_sequences"))
}

func TestLifecycle_SubmitDecideWithdraw(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	router := service.NewTaskRouter(r.tasks, nil, nopLogger{})
	apps := lifecycleService(r, router)
	decisions := service.NewDecisionService(service.DecisionDeps{
		Applications: r.applications,
		Tasks:        r.tasks,
		Directory:    r.directory,
		Router:       router,
		Ledger:       service.NewHistoryLedger(r.history, nil),
		TxManager:    r.db,
		Logger:       nopLogger{},
	})

	approved, err := apps.CreateLeaveApplication(ctx, leaveRequest(), 1)
	require.NoError(t, err)
	withdrawn, err := apps.CreateLeaveApplication(ctx, leaveRequest(), 1)
	require.NoError(t, err)

	task, err := r.tasks.GetOpenByAppID(ctx, approved)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NoError(t, decisions.DecideTask(ctx, task.ID, 2, service.DecisionRequest{Action: entity.ActionApprove, Comment: "同意"}))
	require.NoError(t, apps.WithdrawApplication(ctx, withdrawn, 1))

	app, err := r.applications.GetByID(ctx, approved)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, app.Status)
	assert.NotNil(t, app.FinishTime)

	app, err = r.applications.GetByID(ctx, withdrawn)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWithdrawn, app.Status)

	assert.Equal(t, 1, countRows(t, r, "tasks"), "only the closed task remains")
	assert.Equal(t, 1, countRows(t, r, "approval_history"))
	assert.Equal(t, 2, countRows(t, r, "leave_applications"))

	_, err = apps.CreateLeaveApplication(ctx, func() service.CreateLeaveRequest {
		req := leaveRequest()
		req.ApproverID = new(int64)
		*req.ApproverID = 4
		return req
	}(), 1)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 2, countRows(t, r, "applications"))
}
