package subscriptionread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// MockService реализует интерфейс subscriptionread.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, id string) (*models.SubscriptionView, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.SubscriptionView), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestReadHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное чтение абонемента",
			id:   "sub-1",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "sub-1").Return(&models.SubscriptionView{
					Subscription: models.Subscription{
						ID: "sub-1", SessionsTotal: 8, SessionsRemaining: 2, Status: models.SubscriptionActive,
					},
					DisplayStatus: "expiring",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"display_status":"expiring"`,
		},
		{
			name: "абонемент не найден",
			id:   "sub-x",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "sub-x").Return(nil, apperr.NotFound("subscription sub-x not found"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"subscription sub-x not found","kind":"NotFound"}`,
		},
		{
			name: "ошибка хранилища",
			id:   "sub-2",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "sub-2").
					Return(nil, apperr.Infrastructure("subscription.Get", errors.New("db error")))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"kind":"InfrastructureError"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/"+tt.id, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.id)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
