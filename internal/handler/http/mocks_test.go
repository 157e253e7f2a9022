package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ritikvr/GenieBazaar-backend/internal/auth"
	"github.com/ritikvr/GenieBazaar-backend/internal/cache"
	"github.com/ritikvr/GenieBazaar-backend/internal/domain"
	"github.com/ritikvr/GenieBazaar-backend/internal/event"
	mailermock "github.com/ritikvr/GenieBazaar-backend/internal/mailer/mock"
	"github.com/ritikvr/GenieBazaar-backend/internal/repository"
	"github.com/ritikvr/GenieBazaar-backend/internal/service"
	memorystorage "github.com/ritikvr/GenieBazaar-backend/internal/storage/memory"
	"github.com/ritikvr/GenieBazaar-backend/pkg/httputil"
	pkgkafka "github.com/ritikvr/GenieBazaar-backend/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) UpdateAggregates(ctx context.Context, productID string, rating float64, numReviews int) error {
	args := m.Called(ctx, productID, rating, numReviews)
	return args.Error(0)
}

func (m *mockProductRepo) ReplaceImages(ctx context.Context, productID string, images []domain.ProductImage) error {
	args := m.Called(ctx, productID, images)
	return args.Error(0)
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	args := m.Called(ctx, productID, quantity)
	return args.Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) GetByProductAndUser(ctx context.Context, productID, userID string) (*domain.Review, error) {
	args := m.Called(ctx, productID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByProductID(ctx context.Context, productID string) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) ListByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id, status string, deliveredAt *time.Time) error {
	args := m.Called(ctx, id, status, deliveredAt)
	return args.Error(0)
}

func (m *mockOrderRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Test Helpers
// ============================================================================

const (
	testUserID    = "550e8400-e29b-41d4-a716-446655440001"
	testAdminID   = "550e8400-e29b-41d4-a716-446655440002"
	testProductID = "550e8400-e29b-41d4-a716-446655440003"
	testOrderID   = "550e8400-e29b-41d4-a716-446655440004"
	testReviewID  = "550e8400-e29b-41d4-a716-446655440005"

	testPassword = "hunter2hunter2"
)

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// handlerTestProducer points at a broker that does not exist; publishes fail
// and are logged, which mirrors fire-and-forget use.
func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func handlerTestCache(t *testing.T) *cache.CatalogCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewCatalogCache(client, time.Minute, handlerTestLogger())
}

func handlerTestTokens() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-0123456789", time.Hour)
}

func handlerTestIdentity(users *mockUserRepo, tokens *auth.TokenManager) *service.IdentityService {
	logger := handlerTestLogger()
	return service.NewIdentityService(
		users,
		memorystorage.New("https://cdn.test"),
		mailermock.New(logger),
		tokens,
		handlerTestProducer(),
		logger,
		"https://geniebazaar.test",
	)
}

func handlerTestCatalog(t *testing.T, products *mockProductRepo, reviews *mockReviewRepo) *service.CatalogService {
	t.Helper()
	logger := handlerTestLogger()
	return service.NewCatalogService(
		products,
		reviews,
		memorystorage.New("https://cdn.test"),
		handlerTestCache(t),
		handlerTestProducer(),
		logger,
	)
}

func handlerTestOrders(orders *mockOrderRepo, products *mockProductRepo, users *mockUserRepo) *service.OrderService {
	return service.NewOrderService(orders, products, users, handlerTestProducer(), handlerTestLogger())
}

func handlerSampleUser() *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	now := time.Now().UTC()
	return &domain.User{
		ID:           testUserID,
		Name:         "Ritika Verma",
		Email:        "ritika@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		AvatarURL:    "https://cdn.test/avatar/ritika.png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func handlerSampleAdmin() *domain.User {
	admin := handlerSampleUser()
	admin.ID = testAdminID
	admin.Name = "Admin User"
	admin.Email = "admin@example.com"
	admin.Role = domain.RoleAdmin
	return admin
}

func handlerSampleProduct() *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:          testProductID,
		Name:        "Wireless Headphones",
		Description: "Over-ear, noise cancelling",
		Price:       249900,
		Category:    "electronics",
		Stock:       12,
		Rating:      4.5,
		NumReviews:  2,
		Images: []domain.ProductImage{
			{ID: "img-001", ProductID: testProductID, BlobID: "products/" + testProductID + "/img-001", URL: "https://cdn.test/products/img-001"},
		},
		CreatedBy: testAdminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func handlerSampleOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:     testOrderID,
		UserID: testUserID,
		Status: domain.OrderStatusProcessing,
		Items: []domain.OrderItem{
			{ID: "item-001", OrderID: testOrderID, ProductID: testProductID, Quantity: 2, Name: "Wireless Headphones", Price: 249900},
		},
		ShippingInfo: domain.Shipping{
			Address:    "221B Baker Street",
			City:       "Mumbai",
			State:      "MH",
			Country:    "India",
			PostalCode: "400001",
			Phone:      "+911234567890",
		},
		PaymentID:     "mock_pi_abc123",
		PaymentStatus: "succeeded",
		ItemsPrice:    499800,
		TaxPrice:      89964,
		ShippingPrice: 0,
		TotalPrice:    589764,
		PaidAt:        now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// sessionCookie issues a signed token for the user and wraps it in the cookie
// the auth middleware reads.
func sessionCookie(t *testing.T, tokens *auth.TokenManager, user *domain.User) *http.Cookie {
	t.Helper()
	token, err := tokens.Issue(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return &http.Cookie{Name: authCookieName, Value: token}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
