package paymentlist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]models.Payment)
	return res, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		url        string
		filter     models.PaymentFilter
		result     []models.Payment
		err        error
		wantStatus int
	}{
		{
			name:       "фильтр и пагинация",
			url:        "/api/v1/payments?status=pending&player_id=pl-1&limit=10&offset=20",
			filter:     models.PaymentFilter{Status: models.PaymentPending, PlayerID: "pl-1", Limit: 10, Offset: 20},
			result:     []models.Payment{{ID: "pay-1"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "значения по умолчанию",
			url:        "/api/v1/payments?limit=abc",
			filter:     models.PaymentFilter{Limit: defaultLimit},
			result:     []models.Payment{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "неизвестный статус",
			url:        "/api/v1/payments?status=refunded",
			filter:     models.PaymentFilter{Status: "refunded", Limit: defaultLimit},
			err:        apperr.InvalidInput("unknown payment status %q", "refunded"),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("List", mock.Anything, tt.filter).Return(tt.result, tt.err)

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
