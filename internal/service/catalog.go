package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ritikvr/GenieBazaar-backend/internal/cache"
	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/event"
	"github.com/ritikvr/GenieBazaar-backend/internal/repository"
	"github.com/ritikvr/GenieBazaar-backend/internal/storage"
	apperrors "github.com/ritikvr/GenieBazaar-backend/pkg/errors"
)

// CatalogService implements the business logic for products and reviews.
type CatalogService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	store    storage.Storage
	cache    *cache.CatalogCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	store storage.Storage,
	catalogCache *cache.CatalogCache,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		reviews:  reviews,
		store:    store,
		cache:    catalogCache,
		producer: producer,
		logger:   logger,
	}
}

// CatalogPage is the result of a filtered catalog listing.
type CatalogPage struct {
	Products      []domain.Product `json:"products"`
	Total         int              `json:"total"`
	FilteredTotal int              `json:"filteredTotal"`
	Page          int              `json:"page"`
	PerPage       int              `json:"perPage"`
}

// ProductDetail is a product together with its reviews.
type ProductDetail struct {
	Product *domain.Product `json:"product"`
	Reviews []domain.Review `json:"reviews"`
}

// RawImage is a base64-encoded image payload, optionally wrapped in a data URL.
type RawImage struct {
	Data string
}

// ImageRef points at an already stored blob.
type ImageRef struct {
	BlobID string
	URL    string
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	Stock       int
	Images      []RawImage
	CreatedBy   string
}

// UpdateProductInput holds the parameters for updating a product. A non-empty
// RawImages set replaces every stored blob; ImageRefs are kept verbatim.
type UpdateProductInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	Stock       int
	RawImages   []RawImage
	ImageRefs   []ImageRef
}

// UpsertReviewInput holds the parameters for creating or overwriting a review.
type UpsertReviewInput struct {
	ProductID string
	UserID    string
	UserName  string
	AvatarURL string
	Rating    int
	Comment   string
}

// ListProducts returns one page of the catalog, read through the Redis cache.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*CatalogPage, error) {
	cacheKey := cache.Key(filter)

	var cached CatalogPage
	hit, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog cache read failed", slog.String("error", err.Error()))
	}
	if hit {
		return &cached, nil
	}

	products, filteredTotal, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	// Any empty page is absent, including page 1 of an empty or fully
	// filtered-out catalog.
	if len(products) == 0 {
		return nil, apperrors.NotFound("page", fmt.Sprintf("%d", filter.Page))
	}

	total, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	page := &CatalogPage{
		Products:      products,
		Total:         total,
		FilteredTotal: filteredTotal,
		Page:          filter.Page,
		PerPage:       filter.PerPage,
	}

	if err := s.cache.Set(ctx, cacheKey, page); err != nil {
		s.logger.WarnContext(ctx, "catalog cache write failed", slog.String("error", err.Error()))
	}

	return page, nil
}

// GetProduct retrieves a product by its ID together with its reviews.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	reviews, err := s.reviews.ListByProductID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}

	return &ProductDetail{Product: product, Reviews: reviews}, nil
}

// CreateProduct uploads the raw images and creates a product.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Rating:      0,
		NumReviews:  0,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	images, err := s.uploadImages(ctx, product.ID, input.Images, now)
	if err != nil {
		// Blobs uploaded before the failure are kept; the product is not created.
		return nil, err
	}
	product.Images = images

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidateCatalog(ctx)

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// UpdateProduct replaces a product's fields and, when raw images are given,
// its stored blobs.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.Category = input.Category
	product.Stock = input.Stock

	now := time.Now().UTC()

	switch {
	case len(input.RawImages) > 0:
		for _, img := range product.Images {
			if err := s.store.Delete(ctx, img.BlobID); err != nil {
				s.logger.WarnContext(ctx, "failed to delete product blob",
					slog.String("blob_id", img.BlobID),
					slog.String("error", err.Error()),
				)
			}
		}

		images, err := s.uploadImages(ctx, product.ID, input.RawImages, now)
		if err != nil {
			return nil, err
		}
		product.Images = images

		if err := s.products.ReplaceImages(ctx, product.ID, images); err != nil {
			return nil, fmt.Errorf("replace product images: %w", err)
		}
	case len(input.ImageRefs) > 0:
		images := make([]domain.ProductImage, 0, len(input.ImageRefs))
		for _, ref := range input.ImageRefs {
			images = append(images, domain.ProductImage{
				ID:        uuid.New().String(),
				ProductID: product.ID,
				BlobID:    ref.BlobID,
				URL:       ref.URL,
				CreatedAt: now,
			})
		}
		product.Images = images

		if err := s.products.ReplaceImages(ctx, product.ID, images); err != nil {
			return nil, fmt.Errorf("replace product images: %w", err)
		}
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCatalog(ctx)

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	return product, nil
}

// DeleteProduct removes a product after a best-effort delete of its blobs.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product by id: %w", err)
	}

	for _, img := range product.Images {
		if err := s.store.Delete(ctx, img.BlobID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete product blob",
				slog.String("blob_id", img.BlobID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidateCatalog(ctx)

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	return nil
}

// ListAllProducts returns the unfiltered catalog for the admin dashboard.
func (s *CatalogService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}

	if len(products) == 0 {
		return nil, apperrors.NotFound("products", "catalog")
	}

	return products, nil
}

// UpsertReview overwrites the caller's existing review of a product or
// appends a new one, then recomputes the product's rating aggregates.
func (s *CatalogService) UpsertReview(ctx context.Context, input *UpsertReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	now := time.Now().UTC()

	review, err := s.reviews.GetByProductAndUser(ctx, input.ProductID, input.UserID)
	switch {
	case err == nil:
		review.Rating = input.Rating
		review.Comment = input.Comment
		review.UserName = input.UserName
		review.AvatarURL = input.AvatarURL
		if err := s.reviews.Update(ctx, review); err != nil {
			return nil, fmt.Errorf("update review: %w", err)
		}
	case errors.Is(err, apperrors.ErrNotFound):
		review = &domain.Review{
			ID:        uuid.New().String(),
			ProductID: input.ProductID,
			UserID:    input.UserID,
			UserName:  input.UserName,
			AvatarURL: input.AvatarURL,
			Rating:    input.Rating,
			Comment:   input.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.reviews.Create(ctx, review); err != nil {
			return nil, fmt.Errorf("create review: %w", err)
		}
	default:
		return nil, fmt.Errorf("get review by product and user: %w", err)
	}

	if err := s.recomputeAggregates(ctx, input.ProductID); err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)

	return review, nil
}

// ListReviews returns the reviews of a product.
func (s *CatalogService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	reviews, err := s.reviews.ListByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product reviews: %w", err)
	}

	return reviews, nil
}

// DeleteReview removes a review and recomputes the product's aggregates from
// the remaining reviews.
func (s *CatalogService) DeleteReview(ctx context.Context, reviewID string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review by id: %w", err)
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.recomputeAggregates(ctx, review.ProductID); err != nil {
		return err
	}

	s.invalidateCatalog(ctx)

	return nil
}

func (s *CatalogService) recomputeAggregates(ctx context.Context, productID string) error {
	reviews, err := s.reviews.ListByProductID(ctx, productID)
	if err != nil {
		return fmt.Errorf("list product reviews: %w", err)
	}

	rating := domain.RecomputeRating(reviews)
	if err := s.products.UpdateAggregates(ctx, productID, rating, len(reviews)); err != nil {
		return fmt.Errorf("update product aggregates: %w", err)
	}

	return nil
}

func (s *CatalogService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "catalog cache invalidation failed", slog.String("error", err.Error()))
	}
}

// uploadImages decodes and stores each raw image under the products folder.
func (s *CatalogService) uploadImages(ctx context.Context, productID string, raw []RawImage, now time.Time) ([]domain.ProductImage, error) {
	images := make([]domain.ProductImage, 0, len(raw))

	for _, img := range raw {
		data, contentType, err := decodeRawImage(img.Data)
		if err != nil {
			return nil, apperrors.InvalidInput("image payload is not valid base64")
		}

		key := "products/" + uuid.New().String()
		result, err := s.store.Upload(ctx, &storage.UploadInput{
			Key:         key,
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        bytes.NewReader(data),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "image upload failed",
				slog.String("product_id", productID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("upload image: %w", err)
		}

		images = append(images, domain.ProductImage{
			ID:        uuid.New().String(),
			ProductID: productID,
			BlobID:    result.Key,
			URL:       result.URL,
			CreatedAt: now,
		})
	}

	return images, nil
}

// decodeRawImage decodes a base64 payload, accepting an optional data URL
// prefix, and sniffs the content type.
func decodeRawImage(raw string) ([]byte, string, error) {
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		idx := strings.Index(raw, ";base64,")
		if idx < 0 {
			return nil, "", fmt.Errorf("malformed data url")
		}
		payload = raw[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 image: %w", err)
	}

	return data, http.DetectContentType(data), nil
}
