package port

import "context"

// Message is a plain text notification addressed to a directory user
type Message struct {
	UserID int64
	Email  string
	Text   string
}

// Notifier delivers notifications to people outside the request path
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
