package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ritikvr/GenieBazaar-backend/internal/mailer"
)

// Mailer is a mailer implementation that records messages and always succeeds.
// It is used in development and in tests.
type Mailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	logger *slog.Logger
}

// New creates a new mock mailer.
func New(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// Name returns the mailer name.
func (m *Mailer) Name() string {
	return "mock"
}

// Send records the message and logs it.
func (m *Mailer) Send(ctx context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, *msg)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "mock mailer: message sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}

// Sent returns a copy of all recorded messages.
func (m *Mailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
