package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ritikvr/GenieBazaar-backend/internal/service"
	"github.com/ritikvr/GenieBazaar-backend/pkg/httputil"
	"github.com/ritikvr/GenieBazaar-backend/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateIntentRequest is the JSON request body for starting a payment.
type CreateIntentRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// CreateIntent handles POST /api/v1/payment/process
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	clientSecret, err := h.service.CreateIntent(r.Context(), req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"client_secret": clientSecret}})
}

// PublishableKey handles GET /api/v1/payment/key
func (h *PaymentHandler) PublishableKey(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"publishable_key": h.service.PublishableKey()},
	})
}
