package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

// GetAttendance возвращает запись посещаемости по ключу.
func (r *repo) GetAttendance(ctx context.Context, key models.AttendanceKey, lock bool) (*models.AttendanceRecord, error) {
	const op = "storage.postgresql.GetAttendance"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var rec models.AttendanceRecord
	var notes, charged sql.NullString
	err := r.q.QueryRowContext(ctx, `
		SELECT player_id, group_id, schedule_session_id, session_date, status, notes, marked_by,
			charged_subscription_id, updated_at
		FROM attendance
		WHERE player_id = $1 AND schedule_session_id = $2 AND session_date = $3`+lockClause(r, lock),
		key.PlayerID, key.ScheduleSessionID, key.SessionDate,
	).Scan(&rec.PlayerID, &rec.GroupID, &rec.ScheduleSessionID, &rec.SessionDate, &rec.Status, &notes,
		&rec.MarkedBy, &charged, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	rec.SessionDate = clock.Day(rec.SessionDate)
	rec.Notes = notes.String
	rec.ChargedSubscriptionID = charged.String
	return &rec, nil
}

// UpsertAttendance вставляет запись или перезаписывает существующую по ключу.
func (r *repo) UpsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	const op = "storage.postgresql.UpsertAttendance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := r.q.QueryRowContext(ctx, `
		INSERT INTO attendance (player_id, group_id, schedule_session_id, session_date, status, notes,
			marked_by, charged_subscription_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (player_id, schedule_session_id, session_date) DO UPDATE
		SET group_id = EXCLUDED.group_id,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			marked_by = EXCLUDED.marked_by,
			charged_subscription_id = EXCLUDED.charged_subscription_id,
			updated_at = NOW()
		RETURNING updated_at`,
		rec.PlayerID, rec.GroupID, rec.ScheduleSessionID, rec.SessionDate, rec.Status, nullString(rec.Notes),
		rec.MarkedBy, nullString(rec.ChargedSubscriptionID),
	).Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}
