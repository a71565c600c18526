// Package paymentscreenshot выдаёт временную ссылку на скриншот оплаты.
package paymentscreenshot

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
)

type Service interface {
	ScreenshotURL(ctx context.Context, paymentID string) (*payment.ScreenshotLink, error)
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
// @Summary Ссылка на скриншот оплаты
// @Description Ссылка действует ограниченное время
// @Tags Payments
// @Produce json
// @Param id path string true "ID платежа"
// @Success 200 {object} response.Response{data=payment.ScreenshotLink}
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/{id}/screenshot [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.screenshot"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	link, err := h.service.ScreenshotURL(r.Context(), id)
	if err != nil {
		log.Error("failed to sign screenshot url", slog.String("payment_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(link))
}
