package payment

import (
	"context"
	"errors"
)

// ErrDeclined is returned by a provider when the processor refuses the
// charge, as opposed to being unreachable.
var ErrDeclined = errors.New("payment declined by processor")

// CreateIntentInput holds the parameters for creating a payment intent.
type CreateIntentInput struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Intent holds the provider's view of a created payment intent. Only the
// client secret is ever surfaced to API callers.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Provider defines the interface for payment processor integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateIntent registers a payment intent with the processor.
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error)
}
