// Package expenselist отдаёт расходы за период.
package expenselist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type Service interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
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
// @Summary Расходы за период
// @Tags Expenses
// @Produce json
// @Param from query string true "Начало периода" example(2024-06-01)
// @Param to query string true "Конец периода включительно" example(2024-06-30)
// @Param category query string false "Категория"
// @Success 200 {object} response.Response{data=[]models.Expense}
// @Failure 422 {object} response.ErrorResponse
// @Router /expenses [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.expense.list"
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

	res, err := h.service.List(r.Context(), models.ExpenseFilter{
		From:     from,
		To:       to,
		Category: models.ExpenseCategory(q.Get("category")),
	})
	if err != nil {
		log.Error("failed to list expenses", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(res),
		"expenses":   res,
	}))
}
