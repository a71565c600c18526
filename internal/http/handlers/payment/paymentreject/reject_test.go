package paymentreject

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Reject(ctx context.Context, paymentID, reason, operatorID string) (*payment.Outcome, error) {
	args := m.Called(ctx, paymentID, reason, operatorID)
	out, _ := args.Get(0).(*payment.Outcome)
	return out, args.Error(1)
}

func TestRejectHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockService)
		wantStatus int
	}{
		{
			name: "успешное отклонение",
			body: `{"reason":"screenshot unreadable"}`,
			setupMock: func(m *MockService) {
				m.On("Reject", mock.Anything, "pay-1", "screenshot unreadable", "admin-1").Return(&payment.Outcome{
					Payment: &models.Payment{
						ID: "pay-1", Status: models.PaymentRejected, RejectionReason: "screenshot unreadable",
					},
					Subscription: &models.Subscription{ID: "sub-1", Status: models.SubscriptionCancelled},
				}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "пустая причина",
			body:       `{"reason":""}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "уже подтверждён",
			body: `{"reason":"duplicate"}`,
			setupMock: func(m *MockService) {
				m.On("Reject", mock.Anything, "pay-1", "duplicate", "admin-1").
					Return(nil, apperr.InvalidState("payment pay-1 is confirmed, expected pending"))
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/pay-1/reject", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "pay-1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithOperator(ctx, models.Operator{ID: "admin-1", Role: models.RoleAdmin})

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req.WithContext(ctx))

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
