package domain

import (
	"math"
	"time"
)

// Product represents a product in the catalog. Rating and NumReviews are
// derived aggregates maintained by the review operations: Rating is the mean
// of all review ratings for the product (0 when there are none).
type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Category    string         `json:"category"`
	Stock       int            `json:"stock"`
	Rating      float64        `json:"rating"`
	NumReviews  int            `json:"num_reviews"`
	Images      []ProductImage `json:"images"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProductImage represents a stored image associated with a product.
// BlobID is the key under which the image lives in the blob store.
type ProductImage struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	BlobID    string    `json:"blob_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Review represents a product review submitted by a user. UserName is a
// snapshot of the author's name at submission time.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecomputeRating returns the mean of the given review ratings, rounded to
// two decimal places. An empty slice yields 0.
func RecomputeRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, rv := range reviews {
		sum += rv.Rating
	}
	mean := float64(sum) / float64(len(reviews))
	return math.Round(mean*100) / 100
}
