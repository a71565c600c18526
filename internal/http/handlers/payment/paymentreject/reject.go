// Package paymentreject отклоняет платёж с указанием причины.
package paymentreject

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
)

// Request тело запроса на отклонение.
type Request struct {
	Reason string `json:"reason" validate:"required"`
}

type Service interface {
	Reject(ctx context.Context, paymentID, reason, operatorID string) (*payment.Outcome, error)
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
// @Summary Отклонить платёж
// @Description Отклоняет ожидающий платёж и отменяет связанный абонемент
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "ID платежа"
// @Param request body Request true "Причина отклонения"
// @Success 200 {object} response.Response{data=payment.Outcome}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /payments/{id}/reject [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.reject"
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

	id := chi.URLParam(r, "id")
	out, err := h.service.Reject(r.Context(), id, req.Reason, operator.ID)
	if err != nil {
		log.Error("failed to reject payment", slog.String("payment_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("payment rejected", slog.String("payment_id", id), slog.String("operator", operator.ID))
	render.JSON(w, r, response.StatusOKWithData(out))
}
