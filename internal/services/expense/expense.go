// Package expense ведёт журнал расходов клуба по категориям.
package expense

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

type Service struct {
	repo  storage.ExpenseRepository
	log   *slog.Logger
	newID func() string
}

// NewService создает новый экземпляр Service.
func NewService(repo storage.ExpenseRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, newID: uuid.NewString}
}

// NewExpense данные нового расхода.
type NewExpense struct {
	Category    models.ExpenseCategory `json:"category"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description,omitempty"`
	ExpenseDate time.Time              `json:"expense_date"`
	CreatedBy   string                 `json:"-"`
}

// Record записывает расход.
func (s *Service) Record(ctx context.Context, in NewExpense) (*models.Expense, error) {
	const op = "expense.Record"
	if !in.Category.Valid() {
		return nil, apperr.InvalidInput("unknown expense category %q", in.Category)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.InvalidInput("amount must be positive")
	}
	if in.ExpenseDate.IsZero() {
		return nil, apperr.InvalidInput("expense_date is required")
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return nil, apperr.InvalidInput("operator is required")
	}

	e := &models.Expense{
		ID:          s.newID(),
		Category:    in.Category,
		Amount:      in.Amount.Round(2),
		Description: strings.TrimSpace(in.Description),
		ExpenseDate: clock.Day(in.ExpenseDate),
		CreatedBy:   in.CreatedBy,
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		s.log.Error("failed to record expense", slog.String("op", op), sl.Err(err))
		return nil, apperr.Infrastructure(op, err)
	}
	s.log.Info("expense recorded",
		slog.String("op", op),
		slog.String("category", string(e.Category)),
		slog.String("amount", e.Amount.StringFixed(2)),
	)
	return e, nil
}

// List расходы за период [from, to], необязательно одной категории.
func (s *Service) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	const op = "expense.List"
	if err := validatePeriod(filter.From, filter.To); err != nil {
		return nil, err
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperr.InvalidInput("unknown expense category %q", filter.Category)
	}
	list, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		s.log.Error("failed to list expenses", slog.String("op", op), sl.Err(err))
		return nil, apperr.Infrastructure(op, err)
	}
	return list, nil
}

// Summary суммы по категориям и общий итог за период.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*models.ExpenseSummary, error) {
	list, err := s.List(ctx, models.ExpenseFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	byCategory := lo.MapValues(
		lo.GroupBy(list, func(e models.Expense) models.ExpenseCategory { return e.Category }),
		func(items []models.Expense, _ models.ExpenseCategory) decimal.Decimal {
			return lo.Reduce(items, func(acc decimal.Decimal, e models.Expense, _ int) decimal.Decimal {
				return acc.Add(e.Amount)
			}, decimal.Zero)
		},
	)
	total := decimal.Zero
	for _, v := range byCategory {
		total = total.Add(v)
	}
	return &models.ExpenseSummary{
		From:       clock.Day(from),
		To:         clock.Day(to),
		ByCategory: byCategory,
		Total:      total,
	}, nil
}

func validatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperr.InvalidInput("period start and end are required")
	}
	if clock.Day(to).Before(clock.Day(from)) {
		return apperr.InvalidInput("period end is before its start")
	}
	return nil
}
