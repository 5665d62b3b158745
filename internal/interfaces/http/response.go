package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-center/internal/domain/apperr"
)

const (
	msgSuccess      = "操作成功"
	msgUnexpected   = "系统异常，请联系管理员"
	msgUnauthorized = "未登录或登录已过期"
	msgBadRequest   = "请求参数错误"
)

// Response is the envelope of every API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: msgSuccess, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Code: status, Message: message})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

func abortUnauthorized(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	fail(c, http.StatusUnauthorized, msgUnauthorized)
}

// respondError maps an application error to its status. Unexpected errors are
// logged and replaced with a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnexpected {
		h.logger.Error("Request failed",
			"error", err,
			"path", c.FullPath(),
			"request_id", c.GetString(ctxKeyRequestID))
		fail(c, kind.Status(), msgUnexpected)
		return
	}
	fail(c, kind.Status(), apperr.MessageOf(err))
}
