// Package attendance принимает отметки тренера о посещаемости и списывает
// занятия с абонементов игроков. Повторная отправка тех же отметок не меняет
// балансы, исправление отметки возвращает списанное занятие.
package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

type Service struct {
	store   storage.Store
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(store storage.Store, clk clock.Clock, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{store: store, clock: clk, metrics: m, log: log}
}

// Submit сохраняет отметки одной транзакцией и возвращает баланс каждого
// игрока после применения. Переход в present списывает занятие с активного
// абонемента, покрывающего дату; уход из present возвращает его тому
// абонементу, с которого оно было списано.
func (s *Service) Submit(ctx context.Context, batch models.AttendanceBatch) ([]models.BalanceResult, error) {
	const op = "attendance.Submit"
	if err := validateBatch(batch); err != nil {
		return nil, err
	}
	day := clock.Day(batch.SessionDate)
	now := s.clock.Now().UTC()

	var (
		results []models.BalanceResult
		changes []string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		results = make([]models.BalanceResult, 0, len(batch.Marks))
		changes = changes[:0]
		for _, mark := range batch.Marks {
			res, change, err := s.apply(ctx, repo, batch, day, mark, now)
			if err != nil {
				return err
			}
			results = append(results, res)
			if change != "" {
				changes = append(changes, change)
			}
		}
		return nil
	})
	if err != nil {
		err = apperr.Infrastructure(op, err)
		if apperr.IsRetryable(err) {
			s.log.Error("failed to submit attendance", slog.String("op", op), sl.Err(err))
		}
		return nil, err
	}

	for _, c := range changes {
		s.metrics.BalanceChange(c)
	}
	s.log.Info("attendance submitted",
		slog.String("op", op),
		slog.String("schedule_session_id", batch.ScheduleSessionID),
		slog.String("session_date", day.Format(time.DateOnly)),
		slog.Int("marks", len(batch.Marks)),
	)
	return results, nil
}

// apply обрабатывает одну отметку и возвращает вид изменения баланса
// (debit, credit, overdrawn или пусто).
func (s *Service) apply(
	ctx context.Context,
	repo storage.Repository,
	batch models.AttendanceBatch,
	day time.Time,
	mark models.AttendanceMark,
	now time.Time,
) (models.BalanceResult, string, error) {
	const op = "attendance.apply"
	res := models.BalanceResult{PlayerID: mark.PlayerID, Status: mark.Status}

	// Блокировка игрока сериализует параллельные отправки одной отметки:
	// пока записи нет, FOR UPDATE по посещаемости ничего не блокирует.
	if err := repo.LockPlayer(ctx, mark.PlayerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return res, "", apperr.PlayerNotFound("player %s not found", mark.PlayerID)
		}
		return res, "", apperr.Infrastructure(op, err)
	}

	key := models.AttendanceKey{PlayerID: mark.PlayerID, ScheduleSessionID: batch.ScheduleSessionID, SessionDate: day}
	prior, err := repo.GetAttendance(ctx, key, true)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return res, "", apperr.Infrastructure(op, err)
	}

	rec := &models.AttendanceRecord{
		PlayerID:          mark.PlayerID,
		GroupID:           batch.GroupID,
		ScheduleSessionID: batch.ScheduleSessionID,
		SessionDate:       day,
		Status:            mark.Status,
		Notes:             strings.TrimSpace(mark.Notes),
		MarkedBy:          batch.MarkedBy,
		UpdatedAt:         now,
	}
	wasPresent := prior != nil && prior.Status == models.AttendancePresent
	isPresent := mark.Status == models.AttendancePresent
	if prior != nil {
		rec.ChargedSubscriptionID = prior.ChargedSubscriptionID
	}

	var (
		change    string
		overdrawn bool
	)
	switch {
	case !wasPresent && isPresent:
		sub, err := repo.CoveringSubscription(ctx, mark.PlayerID, day, true)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return res, "", apperr.Infrastructure(op, err)
		}
		if _, overdrawn, err = subscription.Decrement(ctx, repo, sub.ID, 1); err != nil {
			return res, "", err
		}
		rec.ChargedSubscriptionID = sub.ID
		change = lo.Ternary(overdrawn, "overdrawn", "debit")

	case wasPresent && !isPresent && rec.ChargedSubscriptionID != "":
		if _, err := subscription.Credit(ctx, repo, rec.ChargedSubscriptionID, 1); err != nil {
			return res, "", err
		}
		rec.ChargedSubscriptionID = ""
		change = "credit"
	}

	if err := repo.UpsertAttendance(ctx, rec); err != nil {
		return res, "", apperr.Infrastructure(op, err)
	}

	sub, err := s.balanceSource(ctx, repo, rec, day)
	if err != nil {
		return res, "", err
	}
	if sub != nil {
		remaining := sub.SessionsRemaining
		res.SubscriptionID = sub.ID
		res.SessionsRemaining = &remaining
		res.Warning = warning(remaining, overdrawn)
	}
	return res, change, nil
}

// balanceSource абонемент, баланс которого показывается тренеру: тот, с которого
// списана отметка, иначе активный абонемент на дату занятия.
func (s *Service) balanceSource(
	ctx context.Context,
	repo storage.Repository,
	rec *models.AttendanceRecord,
	day time.Time,
) (*models.Subscription, error) {
	const op = "attendance.balanceSource"
	var (
		sub *models.Subscription
		err error
	)
	if rec.ChargedSubscriptionID != "" {
		sub, err = repo.GetSubscription(ctx, rec.ChargedSubscriptionID, false)
	} else {
		sub, err = repo.CoveringSubscription(ctx, rec.PlayerID, day, false)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return sub, nil
}

func warning(remaining int, overdrawn bool) string {
	switch {
	case overdrawn:
		return models.BalanceWarningOverdrawn
	case remaining == 0:
		return models.BalanceWarningZero
	case remaining <= models.LowBalanceThreshold:
		return models.BalanceWarningLow
	default:
		return ""
	}
}

func validateBatch(b models.AttendanceBatch) error {
	if strings.TrimSpace(b.ScheduleSessionID) == "" {
		return apperr.InvalidInput("schedule_session_id is required")
	}
	if strings.TrimSpace(b.GroupID) == "" {
		return apperr.InvalidInput("group_id is required")
	}
	if b.SessionDate.IsZero() {
		return apperr.InvalidInput("session_date is required")
	}
	if strings.TrimSpace(b.MarkedBy) == "" {
		return apperr.InvalidInput("marked_by is required")
	}
	if len(b.Marks) == 0 {
		return apperr.InvalidInput("attendance batch has no marks")
	}
	for i, m := range b.Marks {
		if strings.TrimSpace(m.PlayerID) == "" {
			return apperr.InvalidInput("mark %d has no player_id", i+1)
		}
		if !m.Status.Valid() {
			return apperr.InvalidInput("mark %d has unknown status %q", i+1, m.Status)
		}
	}
	if dups := lo.FindDuplicatesBy(b.Marks, func(m models.AttendanceMark) string { return m.PlayerID }); len(dups) > 0 {
		return apperr.InvalidInput("player %s is marked more than once", dups[0].PlayerID)
	}
	return nil
}
