package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/approval-center/internal/application/port"
)

const (
	receiveIDTypeEmail = "email"
	msgTypeText        = "text"
)

// messageCreator is the part of the IM message API the messenger uses
type messageCreator interface {
	Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error)
}

// Messenger implements port.Notifier by sending Lark text messages addressed by email
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(sdkClient *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: sdkClient.GetClient().Im.Message,
		logger:   logger,
	}
}

// Send sends msg.Text to the Lark account bound to msg.Email
func (m *Messenger) Send(ctx context.Context, msg port.Message) error {
	if msg.Email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if msg.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	body, err := textMessageBody(msg.Email, msg.Text)
	if err != nil {
		return err
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeEmail).
		Body(body).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.Int64("user_id", msg.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.Int64("user_id", msg.UserID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.Int64("user_id", msg.UserID))
	return nil
}

// textMessageBody addresses a plain text message to the account bound to email
func textMessageBody(email, text string) (*larkIm.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal text content: %w", err)
	}
	return larkIm.NewCreateMessageReqBodyBuilder().
		ReceiveId(email).
		MsgType(msgTypeText).
		Content(string(content)).
		Build(), nil
}

// LogNotifier stands in for the messenger when Lark is not configured
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs messages
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and reports success
func (n *LogNotifier) Send(ctx context.Context, msg port.Message) error {
	n.logger.Info("Lark disabled, notification not delivered",
		zap.Int64("user_id", msg.UserID),
		zap.String("text", msg.Text))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*Messenger)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
)
