// Package paymentconfirm подтверждает платёж и активирует абонемент.
package paymentconfirm

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
)

type Service interface {
	Confirm(ctx context.Context, paymentID, operatorID string) (*payment.Outcome, error)
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
// @Summary Подтвердить платёж
// @Description Подтверждает ожидающий платёж. Новый абонемент начинается на следующий день после окончания действующего, иначе сегодня
// @Tags Payments
// @Produce json
// @Param id path string true "ID платежа"
// @Success 200 {object} response.Response{data=payment.Outcome}
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж уже обработан"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно, можно повторить"
// @Router /payments/{id}/confirm [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"
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

	id := chi.URLParam(r, "id")
	out, err := h.service.Confirm(r.Context(), id, operator.ID)
	if err != nil {
		log.Error("failed to confirm payment", slog.String("payment_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("payment confirmed",
		slog.String("payment_id", id),
		slog.String("operator", operator.ID),
		slog.String("subscription_id", out.Subscription.ID),
	)
	render.JSON(w, r, response.StatusOKWithData(out))
}
