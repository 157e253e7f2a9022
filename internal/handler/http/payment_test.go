package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	paymentmock "github.com/ritikvr/GenieBazaar-backend/internal/payment/mock"
	"github.com/ritikvr/GenieBazaar-backend/internal/service"
)

func setupPaymentRouter(t *testing.T, users *mockUserRepo) *chi.Mux {
	t.Helper()
	tokens := handlerTestTokens()
	identity := handlerTestIdentity(users, tokens)
	svc := service.NewPaymentService(paymentmock.NewProvider(), "inr", "pk_test_geniebazaar", handlerTestLogger())
	handler := NewPaymentHandler(svc, handlerTestLogger())

	r := chi.NewRouter()
	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Use(Authenticate(tokens, identity))
		r.Post("/process", handler.CreateIntent)
		r.Get("/key", handler.PublishableKey)
	})
	return r
}

func TestCreateIntent_Success(t *testing.T) {
	users := new(mockUserRepo)
	router := setupPaymentRouter(t, users)

	user := handlerSampleUser()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	body := `{"amount":589764}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", bytes.NewReader([]byte(body)))
	req.AddCookie(sessionCookie(t, handlerTestTokens(), user))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]any)
	secret, ok := data["client_secret"].(string)
	require.True(t, ok)
	assert.Contains(t, secret, "_secret")
}

func TestCreateIntent_NonPositiveAmount(t *testing.T) {
	users := new(mockUserRepo)
	router := setupPaymentRouter(t, users)

	user := handlerSampleUser()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	for _, body := range []string{`{"amount":0}`, `{"amount":-100}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", bytes.NewReader([]byte(body)))
		req.AddCookie(sessionCookie(t, handlerTestTokens(), user))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestCreateIntent_Unauthenticated(t *testing.T) {
	users := new(mockUserRepo)
	router := setupPaymentRouter(t, users)

	body := `{"amount":1000}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/process", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublishableKey_Success(t *testing.T) {
	users := new(mockUserRepo)
	router := setupPaymentRouter(t, users)

	user := handlerSampleUser()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/key", nil)
	req.AddCookie(sessionCookie(t, handlerTestTokens(), user))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pk_test_geniebazaar", data["publishable_key"])
}
