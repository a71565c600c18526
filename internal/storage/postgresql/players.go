package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/club-ledger/internal/models"
)

const playerColumns = `id, first_name, last_name, email, phone, date_of_birth, area, height, weight,
	preferred_hand, preferred_position, health_conditions, training_goals,
	guardian_name, guardian_phone, created_at`

func scanPlayer(row scanner) (*models.Player, error) {
	var p models.Player
	var phone, area, hand, position, health, goals, gName, gPhone sql.NullString
	var dob sql.NullTime
	var height, weight sql.NullFloat64
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &phone, &dob, &area, &height, &weight,
		&hand, &position, &health, &goals, &gName, &gPhone, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Phone = phone.String
	p.DateOfBirth = datePtr(dob)
	p.Area = area.String
	p.Height = floatPtr(height)
	p.Weight = floatPtr(weight)
	p.PreferredHand = hand.String
	p.PreferredPosition = position.String
	p.HealthConditions = health.String
	p.TrainingGoals = goals.String
	p.GuardianName = gName.String
	p.GuardianPhone = gPhone.String
	return &p, nil
}

// GetPlayer возвращает игрока по ID.
func (r *repo) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	const op = "storage.postgresql.GetPlayer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPlayer(r.q.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return p, nil
}

// GetPlayerByEmail возвращает игрока по e-mail без учёта регистра.
func (r *repo) GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	const op = "storage.postgresql.GetPlayerByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPlayer(r.q.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return p, nil
}

// LockPlayer блокирует строку игрока до конца транзакции. Все операции,
// меняющие абонементы игрока, начинают с этой блокировки.
func (r *repo) LockPlayer(ctx context.Context, id string) error {
	const op = "storage.postgresql.LockPlayer"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var locked string
	err := r.q.QueryRowContext(ctx,
		`SELECT id FROM players WHERE id = $1`+lockClause(r, true), id).Scan(&locked)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// CreatePlayer сохраняет нового игрока; e-mail хранится в нижнем регистре.
func (r *repo) CreatePlayer(ctx context.Context, p *models.Player) error {
	const op = "storage.postgresql.CreatePlayer"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO players (id, first_name, last_name, email, phone, date_of_birth, area, height, weight,
			preferred_hand, preferred_position, health_conditions, training_goals, guardian_name, guardian_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`,
		p.ID, p.FirstName, p.LastName, p.Email, nullString(p.Phone), nullTime(p.DateOfBirth), nullString(p.Area),
		nullFloat(p.Height), nullFloat(p.Weight), nullString(p.PreferredHand), nullString(p.PreferredPosition),
		nullString(p.HealthConditions), nullString(p.TrainingGoals), nullString(p.GuardianName),
		nullString(p.GuardianPhone),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}
