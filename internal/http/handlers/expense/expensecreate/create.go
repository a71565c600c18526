// Package expensecreate записывает расход клуба.
package expensecreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/expense"
)

// Request тело запроса на запись расхода.
type Request struct {
	Category    string          `json:"category" validate:"required" example:"rent"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"1500.00"`
	Description string          `json:"description,omitempty"`
	ExpenseDate string          `json:"expense_date" validate:"required" example:"2024-06-01"`
}

type Service interface {
	Record(ctx context.Context, in expense.NewExpense) (*models.Expense, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Записать расход
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body Request true "Расход"
// @Success 201 {object} response.Response{data=models.Expense}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /expenses [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.expense.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	operator, ok := middlewarectx.OperatorFrom(r.Context())
	if !ok {
		log.Error("operator not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	day, err := clock.ParseDay(req.ExpenseDate)
	if err != nil {
		log.Error("invalid expense date", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("invalid expense_date"))
		return
	}

	res, err := h.service.Record(r.Context(), expense.NewExpense{
		Category:    models.ExpenseCategory(req.Category),
		Amount:      req.Amount,
		Description: req.Description,
		ExpenseDate: day,
		CreatedBy:   operator.ID,
	})
	if err != nil {
		log.Error("failed to record expense", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("expense recorded", slog.String("expense_id", res.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(res))
}
