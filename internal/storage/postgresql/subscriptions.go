package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

const subscriptionColumns = `id, player_id, package_id, sessions_total, sessions_remaining,
	start_date, end_date, status, created_at`

func scanSubscription(row scanner) (*models.Subscription, error) {
	var (
		s          models.Subscription
		start, end sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.PlayerID, &s.PackageID, &s.SessionsTotal, &s.SessionsRemaining,
		&start, &end, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.StartDate = datePtr(start)
	s.EndDate = datePtr(end)
	return &s, nil
}

func (r *repo) querySubscriptions(ctx context.Context, op, query string, args ...any) ([]models.Subscription, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	result := make([]models.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return result, nil
}

// CreateSubscription вставляет абонемент.
func (r *repo) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	const op = "storage.postgresql.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO subscriptions (id, player_id, package_id, sessions_total, sessions_remaining,
			start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		s.ID, s.PlayerID, s.PackageID, s.SessionsTotal, s.SessionsRemaining,
		nullTime(s.StartDate), nullTime(s.EndDate), s.Status,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// GetSubscription возвращает абонемент по ID.
func (r *repo) GetSubscription(ctx context.Context, id string, lock bool) (*models.Subscription, error) {
	const op = "storage.postgresql.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s, err := scanSubscription(r.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`+lockClause(r, lock), id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return s, nil
}

// UpdateSubscription перезаписывает изменяемые поля абонемента.
func (r *repo) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	const op = "storage.postgresql.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE subscriptions
		SET sessions_remaining = $1, start_date = $2, end_date = $3, status = $4
		WHERE id = $5`,
		s.SessionsRemaining, nullTime(s.StartDate), nullTime(s.EndDate), s.Status, s.ID)
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

// LatestActiveSubscription активный абонемент игрока с наибольшей end_date.
func (r *repo) LatestActiveSubscription(ctx context.Context, playerID, excludeID string, lock bool) (*models.Subscription, error) {
	const op = "storage.postgresql.LatestActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s, err := scanSubscription(r.q.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE player_id = $1 AND status = 'active' AND end_date IS NOT NULL AND id::text <> $2
		ORDER BY end_date DESC, created_at DESC
		LIMIT 1`+lockClause(r, lock),
		playerID, excludeID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return s, nil
}

// CoveringSubscription активный абонемент игрока, действующий в день day.
func (r *repo) CoveringSubscription(ctx context.Context, playerID string, day time.Time, lock bool) (*models.Subscription, error) {
	const op = "storage.postgresql.CoveringSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s, err := scanSubscription(r.q.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE player_id = $1 AND status = 'active' AND start_date <= $2 AND end_date >= $2
		ORDER BY end_date ASC, created_at ASC
		LIMIT 1`+lockClause(r, lock),
		playerID, day))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return s, nil
}

// ListSubscriptionsByPlayer все абонементы игрока, новые первыми.
func (r *repo) ListSubscriptionsByPlayer(ctx context.Context, playerID string) ([]models.Subscription, error) {
	const op = "storage.postgresql.ListSubscriptionsByPlayer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return r.querySubscriptions(ctx, op, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE player_id = $1
		ORDER BY created_at DESC`, playerID)
}

// ListExpiringSubscriptions активные абонементы, заканчивающиеся в [from, to].
func (r *repo) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	const op = "storage.postgresql.ListExpiringSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	return r.querySubscriptions(ctx, op, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'active' AND end_date BETWEEN $1 AND $2
		ORDER BY end_date, id`, from, to)
}
