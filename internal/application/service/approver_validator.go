package service

import (
	"context"

	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/apperr"
	"github.com/garyjia/approval-center/internal/domain/entity"
)

// ApproverValidator is the single eligibility gate for task assignment
type ApproverValidator interface {
	// Validate returns the approver record when approverID may decide applicant's requests
	Validate(ctx context.Context, applicant *entity.User, approverID *int64) (*entity.User, error)
}

type approverValidatorImpl struct {
	directory port.Directory
}

// NewApproverValidator creates a new ApproverValidator
func NewApproverValidator(directory port.Directory) ApproverValidator {
	return &approverValidatorImpl{directory: directory}
}

func (v *approverValidatorImpl) Validate(ctx context.Context, applicant *entity.User, approverID *int64) (*entity.User, error) {
	if approverID == nil || *approverID <= 0 {
		return nil, apperr.Validation("请选择审批人")
	}
	if *approverID == applicant.ID {
		return nil, apperr.Validation("申请人不能审批自己的申请")
	}

	approver, err := v.directory.GetUserByID(ctx, *approverID)
	if err != nil {
		return nil, apperr.Wrap(err, "load approver")
	}
	if approver == nil || !approver.IsActive() || approver.DeptID == nil {
		return nil, apperr.Validation("审批人无效或已停用")
	}
	if applicant.DeptID == nil || !approver.InDept(*applicant.DeptID) {
		return nil, apperr.Validation("审批人必须与申请人属于同一部门")
	}
	if approver.PostID == nil {
		return nil, apperr.Validation("审批人尚未分配岗位，无法处理审批")
	}

	post, err := v.directory.GetPostByID(ctx, *approver.PostID)
	if err != nil {
		return nil, apperr.Wrap(err, "load approver post")
	}
	if !post.CanApprove() {
		return nil, apperr.Validation("所选人员暂无审批权限")
	}

	return approver, nil
}
