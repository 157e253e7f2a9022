package mailer

import (
	"context"
)

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer defines the interface for dispatching transactional email.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
