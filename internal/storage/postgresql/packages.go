package postgresql

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/club-ledger/internal/models"
)

const packageColumns = `id, name, session_count, price, validity_days, sort_order, is_active`

func scanPackage(row scanner) (*models.Package, error) {
	var p models.Package
	if err := row.Scan(&p.ID, &p.Name, &p.SessionCount, &p.Price, &p.ValidityDays, &p.SortOrder, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPackage возвращает пакет по ID.
func (r *repo) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	const op = "storage.postgresql.GetPackage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPackage(r.q.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return p, nil
}

// GetPackageByName возвращает пакет по имени без учёта регистра.
func (r *repo) GetPackageByName(ctx context.Context, name string) (*models.Package, error) {
	const op = "storage.postgresql.GetPackageByName"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPackage(r.q.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE LOWER(name) = LOWER($1)`, name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return p, nil
}

// ListPackages возвращает пакеты в порядке sort_order.
func (r *repo) ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error) {
	const op = "storage.postgresql.ListPackages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + packageColumns + ` FROM packages`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	result := make([]models.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
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
