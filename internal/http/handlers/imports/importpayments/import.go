// Package importpayments загружает исторические платежи из CSV.
package importpayments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/importer"
)

// MaxBodyBytes предельный размер загружаемого файла.
const MaxBodyBytes = 10 << 20

type Service interface {
	ImportPayments(ctx context.Context, rows []models.PaymentImportRow, operatorID string) (*models.ImportSummary, error)
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
// @Summary Импорт платежей
// @Description CSV с колонками email, date, amount, package, method. Каждая строка обрабатывается отдельно, ответ содержит итог по каждой строке
// @Tags Imports
// @Accept text/csv
// @Produce json
// @Success 200 {object} response.Response{data=models.ImportSummary}
// @Failure 422 {object} response.ErrorResponse "Файл не разобран"
// @Router /imports/payments [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.imports.payments"
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

	rows, err := importer.DecodePaymentRows(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		log.Error("failed to decode csv", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	summary, err := h.service.ImportPayments(r.Context(), rows, operator.ID)
	if err != nil {
		log.Error("failed to import payments", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("payments imported",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	render.JSON(w, r, response.StatusOKWithData(summary))
}
