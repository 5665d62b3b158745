package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-center/internal/application/dispatcher"
	"github.com/garyjia/approval-center/internal/application/port"
	"github.com/garyjia/approval-center/internal/domain/event"
	"github.com/garyjia/approval-center/pkg/utils"
)

// NotificationService turns lifecycle events into messages for the people involved
type NotificationService interface {
	NotifyAssignee(ctx context.Context, evt *event.Event) error
	NotifyApplicant(ctx context.Context, evt *event.Event) error
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	directory port.Directory
	notifier  port.Notifier
	logger    Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(directory port.Directory, notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		directory: directory,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register subscribes the notification handlers to the lifecycle events
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeApplicationSubmitted, "notify-assignee", s.NotifyAssignee)
	d.SubscribeNamed(event.TypeApplicationApproved, "notify-applicant", s.NotifyApplicant)
	d.SubscribeNamed(event.TypeApplicationRejected, "notify-applicant", s.NotifyApplicant)
}

// NotifyAssignee tells the approver a new application is waiting for them
func (s *notificationServiceImpl) NotifyAssignee(ctx context.Context, evt *event.Event) error {
	applicantName := ""
	if applicant, err := s.directory.GetUserByID(ctx, evt.GetPayloadInt(event.KeyApplicantID)); err == nil && applicant != nil {
		applicantName = applicant.RealName
	}

	text := fmt.Sprintf("您有一条新的待审批申请：%s（%s），申请人：%s",
		evt.GetPayloadString(event.KeyTitle), evt.AppNo, applicantName)
	return s.send(ctx, evt, evt.GetPayloadInt(event.KeyAssigneeID), text)
}

// NotifyApplicant tells the applicant how their application was decided
func (s *notificationServiceImpl) NotifyApplicant(ctx context.Context, evt *event.Event) error {
	result := "已通过"
	if evt.Type == event.TypeApplicationRejected {
		result = "已被驳回"
	}

	text := fmt.Sprintf("您的申请 %s（%s）%s，审批人：%s",
		evt.GetPayloadString(event.KeyTitle), evt.AppNo, result, evt.GetPayloadString(event.KeyApproverName))
	if comment := evt.GetPayloadString(event.KeyComment); comment != "" {
		text += "，审批意见：" + comment
	}
	return s.send(ctx, evt, evt.GetPayloadInt(event.KeyApplicantID), text)
}

func (s *notificationServiceImpl) send(ctx context.Context, evt *event.Event, userID int64, text string) error {
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load notification recipient", "error", err, "user_id", userID, "app_id", evt.AppID)
		return fmt.Errorf("load recipient: %w", err)
	}
	if user == nil || user.Email == "" {
		s.logger.Info("Skipping notification, recipient has no email", "user_id", userID, "app_id", evt.AppID)
		return nil
	}
	if err := utils.ValidateEmail(user.Email); err != nil {
		s.logger.Info("Skipping notification, recipient email is malformed", "user_id", userID, "error", err)
		return nil
	}

	if err := s.notifier.Send(ctx, port.Message{UserID: user.ID, Email: user.Email, Text: text}); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "user_id", userID, "event_type", evt.Type)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent", "user_id", userID, "app_id", evt.AppID, "event_type", evt.Type)
	return nil
}
