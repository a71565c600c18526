// Package packagelist отдаёт каталог пакетов абонементов.
package packagelist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type Service interface {
	List(ctx context.Context, activeOnly bool) ([]models.Package, error)
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
// @Summary Список пакетов
// @Description По умолчанию только активные пакеты; all=true возвращает все
// @Tags Packages
// @Produce json
// @Param all query bool false "Включить неактивные пакеты"
// @Success 200 {object} response.Response{data=[]models.Package}
// @Failure 503 {object} response.ErrorResponse
// @Router /packages [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	activeOnly := r.URL.Query().Get("all") != "true"
	res, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		log.Error("failed to list packages", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
