// Package paymentlist отдаёт список платежей с фильтром по статусу и игроку.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

const defaultLimit = 50

type Service interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
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
// @Summary Список платежей
// @Tags Payments
// @Produce json
// @Param status query string false "pending, confirmed или rejected"
// @Param player_id query string false "Игрок"
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response{data=[]models.Payment}
// @Failure 422 {object} response.ErrorResponse
// @Router /payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	res, err := h.service.List(r.Context(), models.PaymentFilter{
		Status:   models.PaymentStatus(q.Get("status")),
		PlayerID: q.Get("player_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("list payments", "count", len(res))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(res),
		"payments":   res,
	}))
}
