// Package expensesummary отдаёт суммы расходов по категориям.
package expensesummary

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type Service interface {
	Summary(ctx context.Context, from, to time.Time) (*models.ExpenseSummary, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводка расходов
// @Tags Expenses
// @Produce json
// @Param from query string true "Начало периода" example(2024-06-01)
// @Param to query string true "Конец периода включительно" example(2024-06-30)
// @Success 200 {object} response.Response{data=models.ExpenseSummary}
// @Failure 422 {object} response.ErrorResponse
// @Router /expenses/summary [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.expense.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	from, errFrom := clock.ParseDay(q.Get("from"))
	to, errTo := clock.ParseDay(q.Get("to"))
	if errFrom != nil || errTo != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("from and to must be dates"))
		return
	}

	res, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		log.Error("failed to summarize expenses", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
