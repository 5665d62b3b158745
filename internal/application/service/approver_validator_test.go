package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approval-center/internal/domain/apperr"
)

func TestApproverValidator_Validate(t *testing.T) {
	directory := newFixtureDirectory()
	validator := NewApproverValidator(directory)
	applicant := directory.users[applicantID]

	tests := []struct {
		name       string
		approverID *int64
		wantMsg    string
	}{
		{"missing approver", nil, "请选择审批人"},
		{"self approval", int64Ptr(applicantID), "申请人不能审批自己的申请"},
		{"unknown approver", int64Ptr(404), "审批人无效或已停用"},
		{"disabled approver", int64Ptr(disabledID), "审批人无效或已停用"},
		{"approver without department", int64Ptr(homelessID), "审批人无效或已停用"},
		{"other department", int64Ptr(outsiderID), "审批人必须与申请人属于同一部门"},
		{"approver without post", int64Ptr(postlessID), "审批人尚未分配岗位，无法处理审批"},
		{"post lacks permission", int64Ptr(clerkID), "所选人员暂无审批权限"},
		{"post missing from directory", int64Ptr(missingPostID), "所选人员暂无审批权限"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approver, err := validator.Validate(context.Background(), applicant, tt.approverID)
			require.Error(t, err)
			assert.Nil(t, approver)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.wantMsg, apperr.MessageOf(err))
		})
	}

	t.Run("eligible approver", func(t *testing.T) {
		approver, err := validator.Validate(context.Background(), applicant, int64Ptr(approverID))
		require.NoError(t, err)
		assert.Equal(t, "李经理", approver.RealName)
	})
}
