package expensesummary

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Summary(ctx context.Context, from, to time.Time) (*models.ExpenseSummary, error) {
	args := m.Called(ctx, from, to)
	res, _ := args.Get(0).(*models.ExpenseSummary)
	return res, args.Error(1)
}

func TestSummaryHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	from, to := clock.Date(2024, 6, 1), clock.Date(2024, 6, 30)

	tests := []struct {
		name         string
		url          string
		setupMock    func(*MockService)
		wantStatus   int
		wantContains string
	}{
		{
			name: "сводка за месяц",
			url:  "/api/v1/expenses/summary?from=2024-06-01&to=2024-06-30",
			setupMock: func(m *MockService) {
				m.On("Summary", mock.Anything, from, to).Return(&models.ExpenseSummary{
					From: from, To: to,
					ByCategory: map[models.ExpenseCategory]decimal.Decimal{
						"rent": decimal.RequireFromString("1500"),
					},
					Total: decimal.RequireFromString("1500"),
				}, nil)
			},
			wantStatus:   http.StatusOK,
			wantContains: `"total":"1500"`,
		},
		{
			name:         "нет периода",
			url:          "/api/v1/expenses/summary?from=2024-06-01",
			setupMock:    func(_ *MockService) {},
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: "from and to must be dates",
		},
		{
			name: "конец раньше начала",
			url:  "/api/v1/expenses/summary?from=2024-06-30&to=2024-06-01",
			setupMock: func(m *MockService) {
				m.On("Summary", mock.Anything, to, from).
					Return(nil, apperr.InvalidInput("period end is before its start"))
			},
			wantStatus:   http.StatusUnprocessableEntity,
			wantContains: "period end is before its start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}
