package repository

import (
	"context"
	"time"

	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
)

// ProductFilter defines filter criteria for listing catalog products.
type ProductFilter struct {
	Keyword   *string
	Category  *string
	MinPrice  *int64
	MaxPrice  *int64
	MinRating *float64
	Page      int
	PerPage   int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and its image rows.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product (with images) by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the given filter along with the
	// filtered total count. Images are loaded for the returned page.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListAll returns every product, unfiltered and unpaginated.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// Count returns the total number of products in the catalog.
	Count(ctx context.Context) (int, error)

	// Update replaces an existing product's mutable fields.
	Update(ctx context.Context, product *domain.Product) error

	// UpdateAggregates persists the derived rating and review count.
	UpdateAggregates(ctx context.Context, productID string, rating float64, numReviews int) error

	// ReplaceImages deletes a product's image rows and inserts the given set.
	ReplaceImages(ctx context.Context, productID string, images []domain.ProductImage) error

	// DecrementStock atomically subtracts quantity from a product's stock.
	DecrementStock(ctx context.Context, productID string, quantity int) error

	// Delete removes a product; image and review rows cascade.
	Delete(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new product review.
	Create(ctx context.Context, review *domain.Review) error

	// Update replaces the rating and comment of an existing review.
	Update(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByProductAndUser retrieves the review a user left on a product.
	GetByProductAndUser(ctx context.Context, productID, userID string) (*domain.Review, error)

	// ListByProductID returns all reviews for a product, newest first.
	ListByProductID(ctx context.Context, productID string) ([]domain.Review, error)

	// Delete removes a review by its identifier.
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user account.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByResetTokenHash retrieves a user by their stored reset token hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)

	// List returns all user accounts.
	List(ctx context.Context) ([]domain.User, error)

	// Update replaces an existing user's mutable fields.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user account.
	Delete(ctx context.Context, id string) error
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order (with items) by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUserID returns all orders placed by the given user.
	ListByUserID(ctx context.Context, userID string) ([]domain.Order, error)

	// ListAll returns every order.
	ListAll(ctx context.Context) ([]domain.Order, error)

	// UpdateStatus transitions an order to the given status, stamping
	// deliveredAt when provided.
	UpdateStatus(ctx context.Context, id, status string, deliveredAt *time.Time) error

	// Delete removes an order and its items.
	Delete(ctx context.Context, id string) error
}
