// Package attendancesubmit принимает отметки посещаемости по занятию.
package attendancesubmit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/http/response"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// Request пакет отметок по одному занятию.
type Request struct {
	GroupID           string                  `json:"group_id" validate:"required"`
	ScheduleSessionID string                  `json:"schedule_session_id" validate:"required"`
	SessionDate       string                  `json:"session_date" validate:"required" example:"2024-06-12"`
	Marks             []models.AttendanceMark `json:"marks" validate:"required,dive"`
}

type Service interface {
	Submit(ctx context.Context, batch models.AttendanceBatch) ([]models.BalanceResult, error)
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
// @Summary Отметить посещаемость
// @Description Записывает отметки и списывает или возвращает занятия абонементов. Повторная отправка тех же отметок ничего не меняет
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body Request true "Отметки"
// @Success 200 {object} response.Response{data=[]models.BalanceResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Игрок не найден"
// @Failure 422 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /attendance [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.attendance.submit"
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
	day, err := clock.ParseDay(req.SessionDate)
	if err != nil {
		log.Error("invalid session date", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("invalid session_date"))
		return
	}

	results, err := h.service.Submit(r.Context(), models.AttendanceBatch{
		GroupID:           req.GroupID,
		ScheduleSessionID: req.ScheduleSessionID,
		SessionDate:       day,
		MarkedBy:          operator.ID,
		Marks:             req.Marks,
	})
	if err != nil {
		log.Error("failed to submit attendance", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("attendance submitted",
		slog.String("schedule_session_id", req.ScheduleSessionID),
		slog.Int("marks", len(req.Marks)),
	)
	render.JSON(w, r, response.StatusOKWithData(results))
}
