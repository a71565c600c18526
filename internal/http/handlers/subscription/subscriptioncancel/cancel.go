// Package subscriptioncancel отменяет абонемент.
package subscriptioncancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type Service interface {
	Cancel(ctx context.Context, id string) (*models.SubscriptionView, error)
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
// @Summary Отменить абонемент
// @Tags Subscriptions
// @Produce json
// @Param id path string true "ID абонемента"
// @Success 200 {object} response.Response{data=models.SubscriptionView}
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Абонемент уже в конечном статусе"
// @Router /subscriptions/{id}/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	res, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		log.Error("failed to cancel subscription", slog.String("subscription_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("subscription cancelled", slog.String("subscription_id", id))
	render.JSON(w, r, response.StatusOKWithData(res))
}
