// Package packageread отдаёт один пакет каталога.
package packageread

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
	Get(ctx context.Context, id string) (*models.Package, error)
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
// @Summary Пакет
// @Description Возвращает пакет, в том числе снятый с продажи
// @Tags Packages
// @Produce json
// @Param id path string true "ID пакета"
// @Success 200 {object} response.Response{data=models.Package}
// @Failure 404 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /packages/{id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.read"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	pkg, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Error("failed to get package", slog.String("package_id", id), sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(pkg))
}
