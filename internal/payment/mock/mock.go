package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ritikvr/GenieBazaar-backend/internal/payment"
)

// Provider is a mock payment provider that always succeeds.
// It is intended for development and testing purposes.
type Provider struct{}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateIntent simulates intent creation that always succeeds.
func (p *Provider) CreateIntent(_ context.Context, _ *payment.CreateIntentInput) (*payment.Intent, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	id := uuid.New().String()
	return &payment.Intent{
		ID:           "mock_pi_" + id,
		ClientSecret: "mock_pi_" + id + "_secret",
		Status:       "requires_payment_method",
	}, nil
}
