package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/application/service"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// PageQuery represents pagination query parameters
type PageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// MyApplicationsQuery represents query parameters for listing the caller's applications
type MyApplicationsQuery struct {
	PageQuery
	AppType entity.AppType `form:"app_type"`
	Status  *int           `form:"status"`
}

// DashboardQuery represents query parameters of the approver dashboard
type DashboardQuery struct {
	Days   int `form:"days"`
	Months int `form:"months"`
}

// ApproversQuery represents query parameters for listing department approvers
type ApproversQuery struct {
	DeptID *int64 `form:"dept_id"`
}

// CreatedResponse carries the id of a newly created application
type CreatedResponse struct {
	AppID int64 `json:"app_id"`
}

// UploadResponse describes a stored attachment
type UploadResponse struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.deps.Health != nil {
		healthy, components := h.deps.Health()
		response.Components = components
		if !healthy {
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{Code: http.StatusServiceUnavailable, Message: "服务不可用", Data: response})
			return
		}
	}

	ok(c, response)
}

// CreateLeaveApplication handles POST /api/applications/leave
func (h *Handlers) CreateLeaveApplication(c *gin.Context) {
	var req service.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Invalid leave request", "error", err)
		badRequest(c, msgBadRequest)
		return
	}

	appID, err := h.deps.Applications.CreateLeaveApplication(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, CreatedResponse{AppID: appID})
}

// CreateReimburseApplication handles POST /api/applications/reimburse
func (h *Handlers) CreateReimburseApplication(c *gin.Context) {
	var req service.CreateReimburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Invalid reimburse request", "error", err)
		badRequest(c, msgBadRequest)
		return
	}

	appID, err := h.deps.Applications.CreateReimburseApplication(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, CreatedResponse{AppID: appID})
}

// WithdrawApplication handles POST /api/applications/:id/withdraw
func (h *Handlers) WithdrawApplication(c *gin.Context) {
	appID, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.deps.Applications.WithdrawApplication(c.Request.Context(), appID, currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}

// ListMyApplications handles GET /api/applications/mine
func (h *Handlers) ListMyApplications(c *gin.Context) {
	var q MyApplicationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	var status *entity.Status
	if q.Status != nil {
		s := entity.Status(*q.Status)
		status = &s
	}

	page, err := h.deps.Queries.ListMyApplications(c.Request.Context(), currentUserID(c), q.Page, q.Size, q.AppType, status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, page)
}

// ListMyHistory handles GET /api/applications/history
func (h *Handlers) ListMyHistory(c *gin.Context) {
	var filter service.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	page, err := h.deps.Queries.ListMyHistory(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, page)
}

// ExportMyHistory handles GET /api/applications/history/export
func (h *Handlers) ExportMyHistory(c *gin.Context) {
	var filter service.HistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	content, err := h.deps.Export.ExportMyHistory(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("approval-history-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// GetMySummary handles GET /api/applications/summary
func (h *Handlers) GetMySummary(c *gin.Context) {
	summary, err := h.deps.Queries.GetMySummary(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, summary)
}

// GetApplicationDetail handles GET /api/applications/:id
func (h *Handlers) GetApplicationDetail(c *gin.Context) {
	appID, valid := pathID(c)
	if !valid {
		return
	}

	detail, err := h.deps.Queries.GetApplicationDetail(c.Request.Context(), appID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, detail)
}

// GetDeptApprovers handles GET /api/approvers
func (h *Handlers) GetDeptApprovers(c *gin.Context) {
	var q ApproversQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	approvers, err := h.deps.Queries.GetDeptApprovers(c.Request.Context(), currentUserID(c), q.DeptID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, approvers)
}

// ListTodoTasks handles GET /api/tasks/todo
func (h *Handlers) ListTodoTasks(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	page, err := h.deps.Decisions.ListTodoTasks(c.Request.Context(), currentUserID(c), q.Page, q.Size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, page)
}

// ListDoneTasks handles GET /api/tasks/done
func (h *Handlers) ListDoneTasks(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	page, err := h.deps.Decisions.ListDoneTasks(c.Request.Context(), currentUserID(c), q.Page, q.Size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, page)
}

// DecideTask handles POST /api/tasks/:id/decision
func (h *Handlers) DecideTask(c *gin.Context) {
	taskID, valid := pathID(c)
	if !valid {
		return
	}

	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	if err := h.deps.Decisions.DecideTask(c.Request.Context(), taskID, currentUserID(c), req); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil)
}

// GetApproverDashboard handles GET /api/tasks/dashboard
func (h *Handlers) GetApproverDashboard(c *gin.Context) {
	var q DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, msgBadRequest)
		return
	}

	dashboard, err := h.deps.Queries.GetApproverDashboard(c.Request.Context(), currentUserID(c), q.Days, q.Months)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, dashboard)
}

// UploadFile handles POST /api/files (multipart field "file")
func (h *Handlers) UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "请选择要上传的文件")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	ref, err := h.deps.Storage.Save(c.Request.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, port.ErrFileRejected) {
			badRequest(c, "文件类型不支持或文件过大")
			return
		}
		h.respondError(c, err)
		return
	}

	h.logger.Info("Attachment uploaded", "ref", ref, "user_id", currentUserID(c))
	ok(c, UploadResponse{Ref: ref, Name: header.Filename, Size: header.Size})
}

// DownloadFile handles GET /api/files/*ref
func (h *Handlers) DownloadFile(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	if ref == "" || !h.deps.Storage.Exists(c.Request.Context(), ref) {
		fail(c, http.StatusNotFound, "文件不存在")
		return
	}

	rc, err := h.deps.Storage.Open(c.Request.Context(), ref)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Error("Failed to stream attachment", "error", err, "ref", ref)
	}
}

// pathID parses the :id path parameter and answers 400 when it is not a positive integer
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "无效的ID")
		return 0, false
	}
	return id, true
}
