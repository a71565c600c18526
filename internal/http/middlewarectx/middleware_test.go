package middlewarectx_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type TokenParserMock struct {
	mock.Mock
}

func (m *TokenParserMock) ParseToken(tokenStr string) (*jwt.CustomClaims, error) {
	args := m.Called(tokenStr)
	claims, _ := args.Get(0).(*jwt.CustomClaims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setupMock  func(*TokenParserMock)
		wantStatus int
		wantCalled bool
	}{
		{
			name:   "валидный токен",
			header: "Bearer good",
			setupMock: func(m *TokenParserMock) {
				m.On("ParseToken", "good").Return(&jwt.CustomClaims{
					Role:             models.RoleCoach,
					RegisteredClaims: gojwt.RegisteredClaims{Subject: "coach-1"},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "нет заголовка",
			header:     "",
			setupMock:  func(_ *TokenParserMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "просроченный токен",
			header: "Bearer old",
			setupMock: func(m *TokenParserMock) {
				m.On("ParseToken", "old").Return(nil, errors.New("token is expired"))
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := new(TokenParserMock)
			tt.setupMock(parser)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				operator, ok := middlewarectx.OperatorFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "coach-1", operator.ID)
				assert.Equal(t, models.RoleCoach, operator.Role)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/packages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(parser, newNoopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			parser.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		operator   *models.Operator
		wantStatus int
	}{
		{name: "admin допущен", operator: &models.Operator{ID: "a", Role: models.RoleAdmin}, wantStatus: http.StatusOK},
		{name: "coach запрещён", operator: &models.Operator{ID: "c", Role: models.RoleCoach}, wantStatus: http.StatusForbidden},
		{name: "без оператора", operator: nil, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/p1/confirm", nil)
			if tt.operator != nil {
				req = req.WithContext(middlewarectx.WithOperator(req.Context(), *tt.operator))
			}
			w := httptest.NewRecorder()
			middlewarectx.RequireRole(newNoopLogger(), models.RoleAdmin)(next).ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), 0.001, 2)(next)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "другой адрес имеет свой лимит")
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), 0, 0)(next)
	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
