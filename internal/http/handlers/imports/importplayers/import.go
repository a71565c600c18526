// Package importplayers загружает игроков из CSV.
package importplayers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/importer"
)

const maxBodyBytes = 10 << 20

type Service interface {
	ImportPlayers(ctx context.Context, rows []models.PlayerImportRow) (*models.ImportSummary, error)
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
// @Summary Импорт игроков
// @Description CSV с обязательными колонками first_name, last_name, email. Игроки с уже известным email пропускаются
// @Tags Imports
// @Accept text/csv
// @Produce json
// @Success 200 {object} response.Response{data=models.ImportSummary}
// @Failure 422 {object} response.ErrorResponse
// @Router /imports/players [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.imports.players"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	rows, err := importer.DecodePlayerRows(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to decode csv", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	summary, err := h.service.ImportPlayers(r.Context(), rows)
	if err != nil {
		log.Error("failed to import players", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("players imported",
		slog.Int("total", summary.Total),
		slog.Int("created", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
	)
	render.JSON(w, r, response.StatusOKWithData(summary))
}
