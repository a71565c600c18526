// Package playersubscriptions отдаёт абонементы игрока.
package playersubscriptions

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
	ListByPlayer(ctx context.Context, playerID string) ([]models.SubscriptionView, error)
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
// @Summary Абонементы игрока
// @Tags Subscriptions
// @Produce json
// @Param id path string true "ID игрока"
// @Success 200 {object} response.Response{data=[]models.SubscriptionView}
// @Failure 404 {object} response.ErrorResponse "Игрок не найден"
// @Router /players/{id}/subscriptions [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.player"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	playerID := chi.URLParam(r, "id")
	res, err := h.service.ListByPlayer(r.Context(), playerID)
	if err != nil {
		log.Error("failed to list player subscriptions", slog.String("player_id", playerID), sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count":    len(res),
		"subscriptions": res,
	}))
}
