// Package importer переносит исторические данные клуба: платежи с уже
// прошедшими абонементами и анкеты игроков. Каждая строка обрабатывается
// в собственной транзакции, ошибка строки не прерывает импорт.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

const (
	kindPayments = "payments"
	kindPlayers  = "players"
)

type Service struct {
	store    storage.Store
	clock    clock.Clock
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      *slog.Logger
	newID    func() string
}

// NewService создает новый экземпляр Service.
func NewService(store storage.Store, clk clock.Clock, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		clock:    clk,
		metrics:  m,
		validate: validator.New(),
		log:      log,
		newID:    uuid.NewString,
	}
}

// ImportPayments создаёт по каждой строке абонемент и подтверждённый платёж.
// Абонемент, окно которого закончилось до сегодняшнего дня, записывается
// сразу как expired с нулевым остатком.
func (s *Service) ImportPayments(ctx context.Context, rows []models.PaymentImportRow, operatorID string) (*models.ImportSummary, error) {
	const op = "importer.ImportPayments"
	if strings.TrimSpace(operatorID) == "" {
		return nil, apperr.InvalidInput("importing operator is required")
	}
	log := s.log.With(slog.String("op", op), slog.String("operator", operatorID))
	today := clock.Today(s.clock)

	summary := &models.ImportSummary{Rows: make([]models.RowOutcome, 0, len(rows))}
	for i, row := range rows {
		outcome := models.RowOutcome{Row: i + 1, Status: models.RowCreated}
		subID, payID, err := s.importPayment(ctx, row, operatorID, today)
		if err != nil {
			outcome = failed(outcome.Row, err)
			if apperr.IsRetryable(err) {
				log.Error("payment row failed", slog.Int("row", outcome.Row), sl.Err(err))
			}
		} else {
			outcome.SubscriptionID, outcome.PaymentID = subID, payID
		}
		s.metrics.ImportRow(kindPayments, string(outcome.Status))
		summary.Add(outcome)
	}

	log.Info("payments imported",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) importPayment(ctx context.Context, row models.PaymentImportRow, operatorID string, today time.Time) (string, string, error) {
	const op = "importer.importPayment"
	if err := s.validate.Struct(row); err != nil {
		return "", "", apperr.InvalidInput("%s", validationDetail(err))
	}
	subID, payID := s.newID(), s.newID()
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		player, err := repo.GetPlayerByEmail(ctx, row.Email)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.PlayerNotFound("no player with email %s", row.Email)
		}
		if err != nil {
			return apperr.Infrastructure(op, err)
		}
		pkg, err := repo.GetPackageByName(ctx, row.Package)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.PackageNotFound("no package named %q", row.Package)
		}
		if err != nil {
			return apperr.Infrastructure(op, err)
		}
		start, err := clock.ParseDay(row.Date)
		if err != nil {
			return apperr.InvalidInput("invalid date %q", row.Date)
		}
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return err
		}

		end := clock.WindowEnd(start, pkg.ValidityDays)
		status, remaining := models.SubscriptionActive, pkg.SessionCount
		if end.Before(today) {
			status, remaining = models.SubscriptionExpired, 0
		}
		sub := &models.Subscription{
			ID:                subID,
			PlayerID:          player.ID,
			PackageID:         pkg.ID,
			SessionsTotal:     pkg.SessionCount,
			SessionsRemaining: remaining,
			StartDate:         &start,
			EndDate:           &end,
			Status:            status,
		}
		if err := repo.CreateSubscription(ctx, sub); err != nil {
			return apperr.Infrastructure(op, err)
		}

		confirmedAt := start
		p := &models.Payment{
			ID:             payID,
			PlayerID:       player.ID,
			SubscriptionID: sub.ID,
			Amount:         amount,
			Method:         models.NormalizeMethod(row.Method),
			Status:         models.PaymentConfirmed,
			ConfirmedBy:    operatorID,
			ConfirmedAt:    &confirmedAt,
		}
		if err := repo.CreatePayment(ctx, p); err != nil {
			return apperr.Infrastructure(op, err)
		}
		return nil
	})
	if err != nil {
		return "", "", apperr.Infrastructure(op, err)
	}
	return subID, payID, nil
}

// ImportPlayers создаёт игроков. Строка с уже известным e-mail пропускается.
func (s *Service) ImportPlayers(ctx context.Context, rows []models.PlayerImportRow) (*models.ImportSummary, error) {
	const op = "importer.ImportPlayers"
	log := s.log.With(slog.String("op", op))

	summary := &models.ImportSummary{Rows: make([]models.RowOutcome, 0, len(rows))}
	for i, row := range rows {
		outcome := s.importPlayer(ctx, i+1, row)
		if outcome.Status == models.RowFailed && outcome.ErrorKind == apperr.KindInfrastructure.String() {
			log.Error("player row failed", slog.Int("row", outcome.Row), slog.String("detail", outcome.Detail))
		}
		s.metrics.ImportRow(kindPlayers, string(outcome.Status))
		summary.Add(outcome)
	}

	log.Info("players imported",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) importPlayer(ctx context.Context, n int, row models.PlayerImportRow) models.RowOutcome {
	const op = "importer.importPlayer"
	if err := s.validate.Struct(row); err != nil {
		return failed(n, apperr.InvalidInput("%s", validationDetail(err)))
	}
	p, err := playerFromRow(row)
	if err != nil {
		return failed(n, err)
	}
	p.ID = s.newID()

	var existing *models.Player
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		found, err := repo.GetPlayerByEmail(ctx, p.Email)
		if err == nil {
			existing = found
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return apperr.Infrastructure(op, err)
		}
		return repo.CreatePlayer(ctx, p)
	})
	switch {
	case errors.Is(err, storage.ErrConflict):
		return models.RowOutcome{Row: n, Status: models.RowSkipped, Detail: "email already registered"}
	case err != nil:
		return failed(n, apperr.Infrastructure(op, err))
	case existing != nil:
		return models.RowOutcome{Row: n, Status: models.RowSkipped, Detail: "email already registered", PlayerID: existing.ID}
	}
	return models.RowOutcome{Row: n, Status: models.RowCreated, PlayerID: p.ID}
}

func playerFromRow(row models.PlayerImportRow) (*models.Player, error) {
	p := &models.Player{
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		Email:             strings.ToLower(strings.TrimSpace(row.Email)),
		Phone:             row.Phone,
		Area:              row.Area,
		PreferredHand:     row.PreferredHand,
		PreferredPosition: row.PreferredPosition,
		HealthConditions:  row.HealthConditions,
		TrainingGoals:     row.TrainingGoals,
		GuardianName:      row.GuardianName,
		GuardianPhone:     row.GuardianPhone,
	}
	if row.DateOfBirth != "" {
		dob, err := clock.ParseDay(row.DateOfBirth)
		if err != nil {
			return nil, apperr.InvalidInput("invalid date_of_birth %q", row.DateOfBirth)
		}
		p.DateOfBirth = &dob
	}
	var err error
	if p.Height, err = parseMeasure("height", row.Height); err != nil {
		return nil, err
	}
	if p.Weight, err = parseMeasure("weight", row.Weight); err != nil {
		return nil, err
	}
	return p, nil
}

func parseMeasure(field, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return nil, apperr.InvalidInput("%s must be a positive number, got %q", field, raw)
	}
	return &v, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, apperr.InvalidInput("invalid amount %q", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, apperr.InvalidInput("amount must be positive, got %q", raw)
	}
	return amount.Round(2), nil
}

func failed(n int, err error) models.RowOutcome {
	return models.RowOutcome{
		Row:       n,
		Status:    models.RowFailed,
		ErrorKind: apperr.KindOf(err).String(),
		Detail:    apperr.DetailOf(err),
	}
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" is "+fe.Tag())
	}
	return strings.Join(fields, ", ")
}
