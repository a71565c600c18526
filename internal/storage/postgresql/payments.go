package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

const paymentColumns = `id, player_id, subscription_id, amount, method, status, screenshot_ref,
	confirmed_by, confirmed_at, rejection_reason, created_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	var screenshot, confirmedBy, reason sql.NullString
	var confirmedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.PlayerID, &p.SubscriptionID, &p.Amount, &p.Method, &p.Status, &screenshot,
		&confirmedBy, &confirmedAt, &reason, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ScreenshotRef = screenshot.String
	p.ConfirmedBy = confirmedBy.String
	p.ConfirmedAt = timePtr(confirmedAt)
	p.RejectionReason = reason.String
	return &p, nil
}

// CreatePayment вставляет платёж.
func (r *repo) CreatePayment(ctx context.Context, p *models.Payment) error {
	const op = "storage.postgresql.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO payments (id, player_id, subscription_id, amount, method, status, screenshot_ref,
			confirmed_by, confirmed_at, rejection_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		p.ID, p.PlayerID, p.SubscriptionID, p.Amount, p.Method, p.Status, nullString(p.ScreenshotRef),
		nullString(p.ConfirmedBy), nullTime(p.ConfirmedAt), nullString(p.RejectionReason),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// GetPayment возвращает платёж по ID.
func (r *repo) GetPayment(ctx context.Context, id string, lock bool) (*models.Payment, error) {
	const op = "storage.postgresql.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPayment(r.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`+lockClause(r, lock), id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return p, nil
}

// UpdatePayment перезаписывает статус и поля подтверждения или отклонения.
func (r *repo) UpdatePayment(ctx context.Context, p *models.Payment) error {
	const op = "storage.postgresql.UpdatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, confirmed_by = $2, confirmed_at = $3, rejection_reason = $4
		WHERE id = $5`,
		p.Status, nullString(p.ConfirmedBy), nullTime(p.ConfirmedAt), nullString(p.RejectionReason), p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// ListPayments возвращает платежи по фильтру, новые первыми.
func (r *repo) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	const op = "storage.postgresql.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var where []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PlayerID != "" {
		args = append(args, filter.PlayerID)
		where = append(where, fmt.Sprintf("player_id = $%d", len(args)))
	}
	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	result := make([]models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return result, nil
}
