package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ritikvr/GenieBazaar-backend/internal/payment"
	apperrors "github.com/ritikvr/GenieBazaar-backend/pkg/errors"
)

// PaymentService creates payment intents through the configured provider.
type PaymentService struct {
	provider       payment.Provider
	currency       string
	publishableKey string
	logger         *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(provider payment.Provider, currency, publishableKey string, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		provider:       provider,
		currency:       currency,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// CreateIntent asks the provider for a payment intent over the configured
// currency and returns the client secret.
func (s *PaymentService) CreateIntent(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", apperrors.InvalidInput("amount must be positive")
	}

	intent, err := s.provider.CreateIntent(ctx, &payment.CreateIntentInput{
		Amount:   amount,
		Currency: s.currency,
		Metadata: map[string]string{
			"company": "GenieBazaar",
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			s.logger.WarnContext(ctx, "payment intent declined",
				slog.Int64("amount", amount),
				slog.String("provider", s.provider.Name()),
			)
			return "", apperrors.PaymentFailed("payment was declined by the processor")
		}
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", amount),
		slog.String("provider", s.provider.Name()),
	)

	return intent.ClientSecret, nil
}

// PublishableKey returns the non-secret client key for the payment provider.
func (s *PaymentService) PublishableKey() string {
	return s.publishableKey
}
