package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/event"
	"github.com/ritikvr/GenieBazaar-backend/internal/repository"
	apperrors "github.com/ritikvr/GenieBazaar-backend/pkg/errors"
)

// OrderService implements order placement and fulfillment logic.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	users    repository.UserRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		producer: producer,
		logger:   logger,
	}
}

// CreateOrderInput holds the parameters for placing an order.
type CreateOrderInput struct {
	UserID        string
	ShippingInfo  domain.Shipping
	Items         []OrderItemInput
	PaymentID     string
	PaymentStatus string
	ItemsPrice    int64
	TaxPrice      int64
	ShippingPrice int64
	TotalPrice    int64
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// OrderView is an order with its owner resolved inline.
type OrderView struct {
	*domain.Order
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// OrdersSummary is the admin listing with the revenue total.
type OrdersSummary struct {
	Orders      []domain.Order `json:"orders"`
	TotalAmount int64          `json:"total_amount"`
}

// CreateOrder validates the request, snapshots product name and price into
// each line item and persists the order as paid.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*OrderView, error) {
	if err := validateShipping(input.ShippingInfo); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	if input.PaymentID == "" || input.PaymentStatus == "" {
		return nil, apperrors.InvalidInput("payment id and payment status are required")
	}
	if input.ItemsPrice < 0 || input.TaxPrice < 0 || input.ShippingPrice < 0 || input.TotalPrice < 0 {
		return nil, apperrors.InvalidInput("prices must not be negative")
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New().String(),
		UserID:        input.UserID,
		Status:        domain.OrderStatusProcessing,
		ShippingInfo:  input.ShippingInfo,
		PaymentID:     input.PaymentID,
		PaymentStatus: input.PaymentStatus,
		ItemsPrice:    input.ItemsPrice,
		TaxPrice:      input.TaxPrice,
		ShippingPrice: input.ShippingPrice,
		TotalPrice:    input.TotalPrice,
		PaidAt:        now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == "" {
			return nil, apperrors.InvalidInput("order item product id is required")
		}
		if item.Quantity <= 0 {
			return nil, apperrors.InvalidInput("order item quantity must be positive")
		}

		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product by id: %w", err)
		}

		imageURL := ""
		if len(product.Images) > 0 {
			imageURL = product.Images[0].URL
		}

		items = append(items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  imageURL,
		})
	}
	order.Items = items

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total_price", order.TotalPrice),
	)

	return s.withOwner(ctx, order)
}

// GetOrder retrieves an order with its owner resolved.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*OrderView, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return s.withOwner(ctx, order)
}

// MyOrders returns every order placed by the caller.
func (s *OrderService) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	return orders, nil
}

// AdminListOrders returns every order with the sum of their total prices.
func (s *OrderService) AdminListOrders(ctx context.Context) (*OrdersSummary, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}

	var total int64
	for _, o := range orders {
		total += o.TotalPrice
	}

	return &OrdersSummary{Orders: orders, TotalAmount: total}, nil
}

// AdminUpdateStatus advances an order along processing, shipped, delivered.
// The shipped transition decrements stock for each line item; the delivered
// transition stamps the delivery time.
func (s *OrderService) AdminUpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	if order.Status == domain.OrderStatusDelivered {
		return nil, apperrors.Conflict("order has already been delivered")
	}

	if !order.CanTransitionTo(status) {
		return nil, apperrors.Conflict(
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, status),
		)
	}

	var deliveredAt *time.Time

	switch status {
	case domain.OrderStatusShipped:
		// Decrements applied before a failing line item are kept; the order
		// stays in its current status.
		for _, item := range order.Items {
			if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return nil, fmt.Errorf("decrement stock: %w", err)
			}
		}
	case domain.OrderStatusDelivered:
		now := time.Now().UTC()
		deliveredAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, id, status, deliveredAt); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	oldStatus := order.Status
	order.Status = status
	order.DeliveredAt = deliveredAt

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("from", oldStatus),
		slog.String("to", status),
	)

	return order, nil
}

// AdminDeleteOrder removes an order. Stock is never restored.
func (s *OrderService) AdminDeleteOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.InfoContext(ctx, "order deleted", slog.String("order_id", id))

	return nil
}

func (s *OrderService) withOwner(ctx context.Context, order *domain.Order) (*OrderView, error) {
	view := &OrderView{Order: order}

	owner, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		// The account may have been deleted after the order was placed.
		s.logger.WarnContext(ctx, "order owner not resolved",
			slog.String("order_id", order.ID),
			slog.String("user_id", order.UserID),
		)
		return view, nil
	}

	view.UserName = owner.Name
	view.UserEmail = owner.Email

	return view, nil
}

func validateShipping(info domain.Shipping) error {
	switch {
	case info.Address == "":
		return apperrors.InvalidInput("shipping address is required")
	case info.City == "":
		return apperrors.InvalidInput("shipping city is required")
	case info.State == "":
		return apperrors.InvalidInput("shipping state is required")
	case info.Country == "":
		return apperrors.InvalidInput("shipping country is required")
	case info.PostalCode == "":
		return apperrors.InvalidInput("shipping postal code is required")
	case info.Phone == "":
		return apperrors.InvalidInput("shipping phone number is required")
	}
	return nil
}
