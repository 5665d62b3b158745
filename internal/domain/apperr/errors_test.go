package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("申请不存在"), KindNotFound},
		{"forbidden", Forbidden("只能撤回自己的申请"), KindForbidden},
		{"validation", Validation("请选择审批人"), KindValidation},
		{"wrapped validation", fmt.Errorf("create: %w", Validation("x")), KindValidation},
		{"plain error", errors.New("disk full"), KindUnexpected},
		{"wrapped unexpected", Wrap(errors.New("boom"), "insert failed"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKind_Status(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, KindNotFound.Status())
	assert.Equal(t, http.StatusForbidden, KindForbidden.Status())
	assert.Equal(t, http.StatusBadRequest, KindValidation.Status())
	assert.Equal(t, http.StatusInternalServerError, KindUnexpected.Status())
}

func TestMessageOf_HidesUnexpectedDetail(t *testing.T) {
	assert.Equal(t, "请选择审批人", MessageOf(Validation("请选择审批人")))
	assert.Equal(t, "系统异常，请联系管理员", MessageOf(errors.New("sql: connection refused")))
	assert.Equal(t, "系统异常，请联系管理员", MessageOf(Wrap(errors.New("x"), "y")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	cause := errors.New("cause")
	err := Wrap(cause, "context")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "context: cause", err.Error())
}
