package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/entity"
	"github.com/garyjia/approval-center/internal/domain/event"
)

// fakeStore is an in-memory implementation of every repository port
type fakeStore struct {
	apps      map[int64]*entity.Application
	details   map[int64]*entity.ApplicationDetail
	tasks     map[int64]*entity.Task
	history   []*entity.HistoryEntry
	sequences map[string]int64
	nextID    int64

	failTaskCreate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		apps:      map[int64]*entity.Application{},
		details:   map[int64]*entity.ApplicationDetail{},
		tasks:     map[int64]*entity.Task{},
		sequences: map[string]int64{},
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) openTasks(appID int64) []*entity.Task {
	var open []*entity.Task
	for _, t := range s.tasks {
		if t.AppID == appID && t.IsOpen() {
			open = append(open, t)
		}
	}
	return open
}

type fakeApplicationRepo struct{ *fakeStore }

func (r fakeApplicationRepo) Create(ctx context.Context, app *entity.Application) error {
	app.ID = r.id()
	copied := *app
	r.apps[app.ID] = &copied
	return nil
}

func (r fakeApplicationRepo) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	app, ok := r.apps[id]
	if !ok {
		return nil, nil
	}
	copied := *app
	return &copied, nil
}

func (r fakeApplicationRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Application, error) {
	out := map[int64]*entity.Application{}
	for _, id := range ids {
		if app, ok := r.apps[id]; ok {
			out[id] = app
		}
	}
	return out, nil
}

func (r fakeApplicationRepo) UpdateStatus(ctx context.Context, id int64, from, to entity.Status, finishTime time.Time) (bool, error) {
	app, ok := r.apps[id]
	if !ok || app.Status != from {
		return false, nil
	}
	app.Status = to
	app.FinishTime = &finishTime
	return true, nil
}

func (r fakeApplicationRepo) List(ctx context.Context, f port.ApplicationFilter) ([]*entity.Application, int64, error) {
	var matched []*entity.Application
	for _, app := range r.apps {
		if app.ApplicantID != f.ApplicantID {
			continue
		}
		if f.AppType != "" && app.AppType != f.AppType {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, app.Status) {
			continue
		}
		if f.SubmitFrom != nil && app.SubmitTime.Before(*f.SubmitFrom) {
			continue
		}
		if f.SubmitTo != nil && app.SubmitTime.After(*f.SubmitTo) {
			continue
		}
		matched = append(matched, app)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SubmitTime.Equal(matched[j].SubmitTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].SubmitTime.After(matched[j].SubmitTime)
	})
	total := int64(len(matched))
	if f.Limit > 0 {
		matched = sliceFrom(matched, f.Offset/f.Limit+1, f.Limit)
	}
	return matched, total, nil
}

func containsStatus(statuses []entity.Status, status entity.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeDetailRepo struct{ *fakeStore }

func (r fakeDetailRepo) Create(ctx context.Context, detail *entity.ApplicationDetail) error {
	if err := detail.Validate(); err != nil {
		return err
	}
	var appID int64
	if detail.Leave != nil {
		detail.Leave.ID = r.id()
		appID = detail.Leave.AppID
	} else {
		detail.Reimburse.ID = r.id()
		appID = detail.Reimburse.AppID
	}
	r.details[appID] = detail
	return nil
}

func (r fakeDetailRepo) GetByApplication(ctx context.Context, app *entity.Application) (*entity.ApplicationDetail, error) {
	return r.details[app.ID], nil
}

func (r fakeDetailRepo) ListByApplications(ctx context.Context, apps []*entity.Application) (map[int64]*entity.ApplicationDetail, error) {
	out := map[int64]*entity.ApplicationDetail{}
	for _, app := range apps {
		if d, ok := r.details[app.ID]; ok {
			out[app.ID] = d
		}
	}
	return out, nil
}

type fakeTaskRepo struct{ *fakeStore }

func (r fakeTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	if r.failTaskCreate != nil {
		return r.failTaskCreate
	}
	if task.IsOpen() && len(r.openTasks(task.AppID)) > 0 {
		return errors.New("UNIQUE constraint failed: tasks.app_id")
	}
	task.ID = r.id()
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r fakeTaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r fakeTaskRepo) GetOpenByAppID(ctx context.Context, appID int64) (*entity.Task, error) {
	open := r.openTasks(appID)
	if len(open) == 0 {
		return nil, nil
	}
	return open[0], nil
}

func (r fakeTaskRepo) DeleteOpenByAppID(ctx context.Context, appID int64) (int64, error) {
	var removed int64
	for id, t := range r.tasks {
		if t.AppID == appID && t.IsOpen() {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed, nil
}

func (r fakeTaskRepo) Complete(ctx context.Context, id int64, action entity.Action, comment string, finishTime time.Time) (bool, error) {
	t, ok := r.tasks[id]
	if !ok || !t.IsOpen() {
		return false, nil
	}
	t.Status = entity.TaskStatusDone
	t.Action = action
	t.Comment = comment
	t.FinishTime = &finishTime
	return true, nil
}

func (r fakeTaskRepo) ListByAssignee(ctx context.Context, assigneeID int64, status int, limit, offset int) ([]*entity.Task, int64, error) {
	var matched []*entity.Task
	for _, t := range r.tasks {
		if t.AssigneeID == assigneeID && t.Status == status {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := int64(len(matched))
	if limit > 0 {
		matched = sliceFrom(matched, offset/limit+1, limit)
	}
	return matched, total, nil
}

type fakeHistoryRepo struct{ *fakeStore }

func (r fakeHistoryRepo) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	entry.ID = r.id()
	copied := *entry
	r.fakeStore.history = append(r.fakeStore.history, &copied)
	return nil
}

func (r fakeHistoryRepo) ListByAppID(ctx context.Context, appID int64) ([]*entity.HistoryEntry, error) {
	var out []*entity.HistoryEntry
	for i := len(r.fakeStore.history) - 1; i >= 0; i-- {
		if r.fakeStore.history[i].AppID == appID {
			out = append(out, r.fakeStore.history[i])
		}
	}
	return out, nil
}

func (r fakeHistoryRepo) latest(appID int64) *entity.HistoryEntry {
	var latest *entity.HistoryEntry
	for _, h := range r.fakeStore.history {
		if h.AppID == appID && (latest == nil || !h.ApproveTime.Before(latest.ApproveTime)) {
			latest = h
		}
	}
	return latest
}

func (r fakeHistoryRepo) LatestByAppIDs(ctx context.Context, appIDs []int64) (map[int64]*entity.HistoryEntry, error) {
	out := map[int64]*entity.HistoryEntry{}
	for _, id := range appIDs {
		if latest := r.latest(id); latest != nil {
			out[id] = latest
		}
	}
	return out, nil
}

type fakeSequenceRepo struct{ *fakeStore }

func (r fakeSequenceRepo) Next(ctx context.Context, day string) (int64, error) {
	r.sequences[day]++
	return r.sequences[day], nil
}

// fakeDirectory is a static directory of users, departments and posts
type fakeDirectory struct {
	users map[int64]*entity.User
	depts map[int64]*entity.Dept
	posts map[int64]*entity.Post
}

func (d *fakeDirectory) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	return d.users[id], nil
}

func (d *fakeDirectory) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*entity.User, error) {
	out := map[int64]*entity.User{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetDeptByID(ctx context.Context, id int64) (*entity.Dept, error) {
	return d.depts[id], nil
}

func (d *fakeDirectory) GetPostByID(ctx context.Context, id int64) (*entity.Post, error) {
	return d.posts[id], nil
}

func (d *fakeDirectory) GetPermissionCodesByPostID(ctx context.Context, postID int64) ([]string, error) {
	post, ok := d.posts[postID]
	if !ok {
		return nil, nil
	}
	var codes []string
	for code := range post.Permissions {
		codes = append(codes, code)
	}
	return codes, nil
}

func (d *fakeDirectory) ListActiveUsersWithPost(ctx context.Context, deptID int64) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range d.users {
		if u.IsActive() && u.InDept(deptID) && u.PostID != nil {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *recordingPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// Directory fixture: department 10 (研发部) and 20 (市场部).
const (
	applicantID   int64 = 1
	approverID    int64 = 2
	clerkID       int64 = 3
	outsiderID    int64 = 4
	disabledID    int64 = 5
	postlessID    int64 = 6
	homelessID    int64 = 7
	missingPostID int64 = 8
	rdDept        int64 = 10
	marketDept    int64 = 20
	managerPost   int64 = 100
	engineerPost  int64 = 200
	unknownPost   int64 = 999
)

func newFixtureDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[int64]*entity.User{
			applicantID:   {ID: applicantID, RealName: "张三", Email: "zhangsan@example.com", DeptID: int64Ptr(rdDept), PostID: int64Ptr(engineerPost), Status: entity.UserStatusActive},
			approverID:    {ID: approverID, RealName: "李经理", Email: "li@example.com", DeptID: int64Ptr(rdDept), PostID: int64Ptr(managerPost), Status: entity.UserStatusActive},
			clerkID:       {ID: clerkID, RealName: "王五", DeptID: int64Ptr(rdDept), PostID: int64Ptr(engineerPost), Status: entity.UserStatusActive},
			outsiderID:    {ID: outsiderID, RealName: "赵经理", DeptID: int64Ptr(marketDept), PostID: int64Ptr(managerPost), Status: entity.UserStatusActive},
			disabledID:    {ID: disabledID, RealName: "钱经理", DeptID: int64Ptr(rdDept), PostID: int64Ptr(managerPost), Status: entity.UserStatusDisabled},
			postlessID:    {ID: postlessID, RealName: "孙七", DeptID: int64Ptr(rdDept), Status: entity.UserStatusActive},
			homelessID:    {ID: homelessID, RealName: "周八", Status: entity.UserStatusActive},
			missingPostID: {ID: missingPostID, RealName: "吴九", DeptID: int64Ptr(rdDept), PostID: int64Ptr(unknownPost), Status: entity.UserStatusActive},
		},
		depts: map[int64]*entity.Dept{
			rdDept:     {ID: rdDept, Name: "研发部"},
			marketDept: {ID: marketDept, Name: "市场部"},
		},
		posts: map[int64]*entity.Post{
			managerPost:  {ID: managerPost, Code: "MGR", Name: "部门经理", Permissions: entity.NewPermissionSet("APPLY", entity.PermissionApprovalReview)},
			engineerPost: {ID: engineerPost, Code: "ENG", Name: "工程师", Permissions: entity.NewPermissionSet("APPLY")},
		},
	}
}

// harness wires every service against one fake store
type harness struct {
	store     *fakeStore
	directory *fakeDirectory
	tx        *mockTxManager
	publisher *recordingPublisher
	now       time.Time

	apps      ApplicationService
	decisions DecisionService
	queries   QueryService
	ledger    HistoryLedger
	router    TaskRouter
}

func newHarness() *harness {
	h := &harness{
		store:     newFakeStore(),
		directory: newFixtureDirectory(),
		tx:        &mockTxManager{},
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	logger := &mockLogger{}

	appRepo := fakeApplicationRepo{h.store}
	detailRepo := fakeDetailRepo{h.store}
	taskRepo := fakeTaskRepo{h.store}

	h.router = NewTaskRouter(taskRepo, clock, logger)
	h.ledger = NewHistoryLedger(fakeHistoryRepo{h.store}, clock)
	h.apps = NewApplicationService(ApplicationDeps{
		Applications: appRepo,
		Details:      detailRepo,
		Sequences:    fakeSequenceRepo{h.store},
		Directory:    h.directory,
		Validator:    NewApproverValidator(h.directory),
		Router:       h.router,
		TxManager:    h.tx,
		Publisher:    h.publisher,
		Clock:        clock,
		Logger:       logger,
	})
	h.decisions = NewDecisionService(DecisionDeps{
		Applications: appRepo,
		Tasks:        taskRepo,
		Directory:    h.directory,
		Router:       h.router,
		Ledger:       h.ledger,
		TxManager:    h.tx,
		Publisher:    h.publisher,
		Clock:        clock,
		Logger:       logger,
	})
	h.queries = NewQueryService(QueryDeps{
		Applications: appRepo,
		Details:      detailRepo,
		Tasks:        taskRepo,
		Directory:    h.directory,
		Ledger:       h.ledger,
		Clock:        clock,
	})
	return h
}
