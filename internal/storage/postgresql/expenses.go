package postgresql

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// CreateExpense вставляет расход.
func (r *repo) CreateExpense(ctx context.Context, e *models.Expense) error {
	const op = "storage.postgresql.CreateExpense"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO expenses (id, category, amount, description, expense_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		e.ID, e.Category, e.Amount, e.Description, e.ExpenseDate, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// ListExpenses расходы за период [From, To] с необязательной категорией.
func (r *repo) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error) {
	const op = "storage.postgresql.ListExpenses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, category, amount, description, expense_date, created_by, created_at
		FROM expenses
		WHERE expense_date BETWEEN $1 AND $2 AND ($3::text = '' OR category = $3::text)
		ORDER BY expense_date, created_at`,
		filter.From, filter.To, string(filter.Category))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	result := make([]models.Expense, 0)
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &e.Description, &e.ExpenseDate, &e.CreatedBy,
			&e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.ExpenseDate = clock.Day(e.ExpenseDate)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return result, nil
}
