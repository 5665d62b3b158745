package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

const (
	defaultDashboardDays   = 7
	defaultDashboardMonths = 6
)

var hundred = decimal.NewFromInt(100)

// QueryService serves the read side: lists, detail, summaries and dashboards
type QueryService interface {
	ListMyApplications(ctx context.Context, userID int64, page, size int, appType entity.AppType, status *entity.Status) (*Page[*ApplicationView], error)
	ListMyHistory(ctx context.Context, userID int64, filter HistoryFilter) (*Page[*HistoryView], error)
	// SearchMyHistory returns every record matching filter, ignoring pagination
	SearchMyHistory(ctx context.Context, userID int64, filter HistoryFilter) ([]*HistoryView, error)
	GetApplicationDetail(ctx context.Context, appID int64) (*ApplicationDetailView, error)
	GetMySummary(ctx context.Context, userID int64) (*Summary, error)
	GetDeptApprovers(ctx context.Context, userID int64, deptID *int64) ([]*ApproverOption, error)
	GetApproverDashboard(ctx context.Context, approverID int64, days, months int) (*ApproverDashboard, error)
}

type queryServiceImpl struct {
	appRepo    port.ApplicationRepository
	detailRepo port.DetailRepository
	taskRepo   port.TaskRepository
	directory  port.Directory
	ledger     HistoryLedger
	now        Clock
}

// QueryDeps groups the collaborators of QueryService
type QueryDeps struct {
	Applications port.ApplicationRepository
	Details      port.DetailRepository
	Tasks        port.TaskRepository
	Directory    port.Directory
	Ledger       HistoryLedger
	Clock        Clock
}

// NewQueryService creates a new QueryService
func NewQueryService(deps QueryDeps) QueryService {
	return &queryServiceImpl{
		appRepo:    deps.Applications,
		detailRepo: deps.Details,
		taskRepo:   deps.Tasks,
		directory:  deps.Directory,
		ledger:     deps.Ledger,
		now:        orNow(deps.Clock),
	}
}

func (s *queryServiceImpl) ListMyApplications(ctx context.Context, userID int64, page, size int, appType entity.AppType, status *entity.Status) (*Page[*ApplicationView], error) {
	page, size = normalizePage(page, size)

	filter := port.ApplicationFilter{
		ApplicantID: userID,
		AppType:     appType,
		Limit:       size,
		Offset:      (page - 1) * size,
	}
	if status != nil {
		filter.Statuses = []entity.Status{*status}
	}

	apps, total, err := s.appRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(err, "list applications")
	}
	details, err := s.detailRepo.ListByApplications(ctx, apps)
	if err != nil {
		return nil, apperr.Wrap(err, "load application details")
	}

	applicantName, deptName, err := s.applicantLabels(ctx, userID)
	if err != nil {
		return nil, err
	}
	if deptName == "" {
		deptName = entity.UnassignedDeptName
	}

	views := make([]*ApplicationView, 0, len(apps))
	for _, app := range apps {
		view := &ApplicationView{
			AppID:         app.ID,
			AppNo:         app.AppNo,
			AppType:       app.AppType,
			Title:         app.Title,
			ApplicantID:   app.ApplicantID,
			ApplicantName: applicantName,
			DeptID:        app.DeptID,
			DeptName:      deptName,
			Status:        app.Status,
			CurrentNode:   app.CurrentNode,
			SubmitTime:    app.SubmitTime,
			FinishTime:    app.FinishTime,
		}
		if detail, ok := details[app.ID]; ok {
			switch {
			case detail.Leave != nil:
				view.LeaveType = &detail.Leave.LeaveType
			case detail.Reimburse != nil:
				view.ExpenseType = &detail.Reimburse.ExpenseType
			}
		}
		views = append(views, view)
	}

	return &Page[*ApplicationView]{Records: views, Total: total, Page: page, Size: size}, nil
}

func (s *queryServiceImpl) ListMyHistory(ctx context.Context, userID int64, filter HistoryFilter) (*Page[*HistoryView], error) {
	page, size := normalizePage(filter.Page, filter.Size)

	records, err := s.SearchMyHistory(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	return &Page[*HistoryView]{
		Records: sliceFrom(records, page, size),
		Total:   int64(len(records)),
		Page:    page,
		Size:    size,
	}, nil
}

// SearchMyHistory pushes applicant, date range, status set and type to storage.
// Subtype and latest-approver filters need the detail and the latest decision of
// every candidate, so they run here on the materialized list.
func (s *queryServiceImpl) SearchMyHistory(ctx context.Context, userID int64, filter HistoryFilter) ([]*HistoryView, error) {
	apps, _, err := s.appRepo.List(ctx, port.ApplicationFilter{
		ApplicantID: userID,
		AppType:     filter.AppType,
		Statuses:    filter.statuses(),
		SubmitFrom:  filter.StartTime,
		SubmitTo:    filter.EndTime,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "search history applications")
	}
	if len(apps) == 0 {
		return []*HistoryView{}, nil
	}

	details, err := s.detailRepo.ListByApplications(ctx, apps)
	if err != nil {
		return nil, apperr.Wrap(err, "load application details")
	}
	appIDs := make([]int64, len(apps))
	for i, app := range apps {
		appIDs[i] = app.ID
	}
	latest, err := s.ledger.LatestForApplications(ctx, appIDs)
	if err != nil {
		return nil, apperr.Wrap(err, "load latest decisions")
	}

	applicantName, deptName, err := s.applicantLabels(ctx, userID)
	if err != nil {
		return nil, err
	}

	records := make([]*HistoryView, 0, len(apps))
	for _, app := range apps {
		detail := details[app.ID]
		if !matchesSubtype(app, detail, filter) {
			continue
		}
		entry := latest[app.ID]
		if filter.ApproverName != "" && (entry == nil || !strings.Contains(entry.ApproverName, filter.ApproverName)) {
			continue
		}

		view := &HistoryView{
			AppID:         app.ID,
			AppNo:         app.AppNo,
			AppType:       app.AppType,
			Title:         app.Title,
			Status:        app.Status,
			ApplicantName: applicantName,
			DeptName:      deptName,
			CurrentNode:   app.CurrentNode,
			SubmitTime:    app.SubmitTime,
			FinishTime:    app.FinishTime,
		}
		if detail != nil {
			if detail.Leave != nil {
				view.LeaveType = &detail.Leave.LeaveType
				view.LeaveDays = &detail.Leave.Days
			}
			if detail.Reimburse != nil {
				view.ExpenseType = &detail.Reimburse.ExpenseType
				view.ExpenseAmount = &detail.Reimburse.Amount
			}
		}
		if entry != nil {
			action := entry.Action
			approveTime := entry.ApproveTime
			view.ApproverName = entry.ApproverName
			view.Action = &action
			view.Comment = entry.Comment
			view.ApproveTime = &approveTime
		}
		records = append(records, view)
	}
	return records, nil
}

// matchesSubtype applies the leave type filter to leave applications and the
// expense type filter to reimbursements
func matchesSubtype(app *entity.Application, detail *entity.ApplicationDetail, filter HistoryFilter) bool {
	switch app.AppType {
	case entity.AppTypeLeave:
		if filter.LeaveType != nil {
			return detail != nil && detail.Leave != nil && detail.Leave.LeaveType == *filter.LeaveType
		}
	case entity.AppTypeReimburse:
		if filter.ExpenseType != nil {
			return detail != nil && detail.Reimburse != nil && detail.Reimburse.ExpenseType == *filter.ExpenseType
		}
	}
	return true
}

func (s *queryServiceImpl) GetApplicationDetail(ctx context.Context, appID int64) (*ApplicationDetailView, error) {
	app, err := s.appRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, apperr.Wrap(err, "load application")
	}
	if app == nil {
		return nil, apperr.NotFound("申请不存在")
	}

	detail, err := s.detailRepo.GetByApplication(ctx, app)
	if err != nil {
		return nil, apperr.Wrap(err, "load application detail")
	}
	history, err := s.ledger.ListByApplication(ctx, appID)
	if err != nil {
		return nil, apperr.Wrap(err, "load history")
	}

	return &ApplicationDetailView{Application: app, Detail: detail, History: history}, nil
}

func (s *queryServiceImpl) GetMySummary(ctx context.Context, userID int64) (*Summary, error) {
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "load user")
	}
	if user == nil {
		return nil, apperr.NotFound("用户不存在")
	}

	apps, _, err := s.appRepo.List(ctx, port.ApplicationFilter{ApplicantID: userID})
	if err != nil {
		return nil, apperr.Wrap(err, "list applications")
	}

	summary := &Summary{
		UserID:               user.ID,
		RealName:             user.RealName,
		TotalCount:           int64(len(apps)),
		TotalLeaveDays:       decimal.Zero,
		TotalReimburseAmount: decimal.Zero,
		ApprovalRate:         decimal.Zero,
	}

	var approved []*entity.Application
	for _, app := range apps {
		switch app.Status {
		case entity.StatusPending:
			summary.PendingCount++
		case entity.StatusApproved:
			summary.ApprovedCount++
			approved = append(approved, app)
		case entity.StatusRejected:
			summary.RejectedCount++
		case entity.StatusWithdrawn:
			summary.WithdrawnCount++
		}
		switch app.AppType {
		case entity.AppTypeLeave:
			summary.LeaveCount++
		case entity.AppTypeReimburse:
			summary.ReimburseCount++
		}
		if summary.LastSubmitTime == nil || app.SubmitTime.After(*summary.LastSubmitTime) {
			submitted := app.SubmitTime
			summary.LastSubmitTime = &submitted
		}
	}

	if len(approved) > 0 {
		details, err := s.detailRepo.ListByApplications(ctx, approved)
		if err != nil {
			return nil, apperr.Wrap(err, "load approved details")
		}
		for _, detail := range details {
			if detail.Leave != nil {
				summary.TotalLeaveDays = summary.TotalLeaveDays.Add(detail.Leave.Days)
			}
			if detail.Reimburse != nil {
				summary.TotalReimburseAmount = summary.TotalReimburseAmount.Add(detail.Reimburse.Amount)
			}
		}
	}

	if summary.TotalCount > 0 {
		summary.ApprovalRate = decimal.NewFromInt(summary.ApprovedCount).
			Mul(hundred).
			DivRound(decimal.NewFromInt(summary.TotalCount), 2)
	}

	summary.DeptName, summary.PostName, err = s.placement(ctx, user)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *queryServiceImpl) GetDeptApprovers(ctx context.Context, userID int64, deptID *int64) ([]*ApproverOption, error) {
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "load user")
	}
	if user == nil {
		return nil, apperr.NotFound("用户不存在")
	}

	target := deptID
	if target == nil {
		target = user.DeptID
	}
	if target == nil {
		return []*ApproverOption{}, nil
	}

	candidates, err := s.directory.ListActiveUsersWithPost(ctx, *target)
	if err != nil {
		return nil, apperr.Wrap(err, "list department users")
	}
	if len(candidates) == 0 {
		return []*ApproverOption{}, nil
	}

	dept, err := s.directory.GetDeptByID(ctx, *target)
	if err != nil {
		return nil, apperr.Wrap(err, "load department")
	}
	var deptName string
	if dept != nil {
		deptName = dept.Name
	}

	posts := make(map[int64]*entity.Post)
	options := make([]*ApproverOption, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.PostID == nil {
			continue
		}
		post, ok := posts[*candidate.PostID]
		if !ok {
			post, err = s.directory.GetPostByID(ctx, *candidate.PostID)
			if err != nil {
				return nil, apperr.Wrap(err, "load post")
			}
			posts[*candidate.PostID] = post
		}
		if !post.CanApprove() {
			continue
		}
		options = append(options, &ApproverOption{
			UserID:   candidate.ID,
			RealName: candidate.RealName,
			DeptID:   *target,
			DeptName: deptName,
			PostID:   post.ID,
			PostName: post.Name,
		})
	}
	return options, nil
}

func (s *queryServiceImpl) GetApproverDashboard(ctx context.Context, approverID int64, days, months int) (*ApproverDashboard, error) {
	if days <= 0 {
		days = defaultDashboardDays
	}
	if months <= 0 {
		months = defaultDashboardMonths
	}

	user, err := s.directory.GetUserByID(ctx, approverID)
	if err != nil {
		return nil, apperr.Wrap(err, "load approver")
	}
	if user == nil {
		return nil, apperr.NotFound("用户不存在")
	}

	done, total, err := s.taskRepo.ListByAssignee(ctx, approverID, entity.TaskStatusDone, 0, 0)
	if err != nil {
		return nil, apperr.Wrap(err, "list done tasks")
	}
	_, pending, err := s.taskRepo.ListByAssignee(ctx, approverID, entity.TaskStatusOpen, 1, 0)
	if err != nil {
		return nil, apperr.Wrap(err, "count open tasks")
	}

	appIDs := make([]int64, 0, len(done))
	for _, t := range done {
		appIDs = append(appIDs, t.AppID)
	}
	apps, err := s.appRepo.GetByIDs(ctx, appIDs)
	if err != nil {
		return nil, apperr.Wrap(err, "load decided applications")
	}

	now := s.now()
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	dailyIndex := make(map[string]int, days)
	daily := make([]DailyStat, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		daily[i] = DailyStat{Date: date}
		dailyIndex[date] = i
	}
	monthlyIndex := make(map[string]int, months)
	monthly := make([]MonthlyStat, months)
	for i := 0; i < months; i++ {
		month := thisMonth.AddDate(0, i-months+1, 0).Format("2006-01")
		monthly[i] = MonthlyStat{Month: month}
		monthlyIndex[month] = i
	}

	byType := map[entity.AppType]int64{}
	dashboard := &ApproverDashboard{
		RealName:     user.RealName,
		PendingCount: pending,
		TotalCount:   total,
	}
	for _, t := range done {
		switch t.Action {
		case entity.ActionApprove:
			dashboard.ApprovedCount++
		case entity.ActionReject:
			dashboard.RejectedCount++
		}
		if app, ok := apps[t.AppID]; ok {
			byType[app.AppType]++
		}
		if t.FinishTime == nil {
			continue
		}
		finished := t.FinishTime.In(loc)
		if i, ok := dailyIndex[finished.Format("2006-01-02")]; ok {
			daily[i].Count++
		}
		if i, ok := monthlyIndex[finished.Format("2006-01")]; ok {
			monthly[i].Count++
		}
	}

	for _, appType := range []entity.AppType{entity.AppTypeLeave, entity.AppTypeReimburse} {
		dashboard.TypeStats = append(dashboard.TypeStats, TypeStat{
			AppType:   appType,
			TypeLabel: appType.Label(),
			Count:     byType[appType],
		})
	}
	dashboard.DailyStats = daily
	dashboard.MonthlyStats = monthly

	dashboard.DeptName, dashboard.PostName, err = s.placement(ctx, user)
	if err != nil {
		return nil, err
	}
	return dashboard, nil
}

// applicantLabels returns the applicant's real name and current department name, empty when unknown
func (s *queryServiceImpl) applicantLabels(ctx context.Context, userID int64) (string, string, error) {
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", apperr.Wrap(err, "load applicant")
	}
	if user == nil {
		return "", "", nil
	}
	deptName, _, err := s.placement(ctx, user)
	if err != nil {
		return "", "", err
	}
	return user.RealName, deptName, nil
}

// placement resolves the department and post names of a user, empty when unassigned
func (s *queryServiceImpl) placement(ctx context.Context, user *entity.User) (string, string, error) {
	var deptName, postName string
	if user.DeptID != nil {
		dept, err := s.directory.GetDeptByID(ctx, *user.DeptID)
		if err != nil {
			return "", "", apperr.Wrap(err, "load department")
		}
		if dept != nil {
			deptName = dept.Name
		}
	}
	if user.PostID != nil {
		post, err := s.directory.GetPostByID(ctx, *user.PostID)
		if err != nil {
			return "", "", apperr.Wrap(err, "load post")
		}
		if post != nil {
			postName = post.Name
		}
	}
	return deptName, postName, nil
}
