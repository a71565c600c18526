// Package postgresql реализует storage.Store поверх PostgreSQL через
// database/sql и драйвер pgx.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// querier общий интерфейс *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo реализует storage.Repository над соединением или транзакцией.
type repo struct {
	q querier
	// inTx блокировки FOR UPDATE имеют смысл только внутри транзакции.
	inTx bool
}

// Storage инкапсулирует пул соединений PostgreSQL.
type Storage struct {
	repo
	DB *sql.DB
}

var _ storage.Store = (*Storage)(nil)

// New открывает пул и проверяет соединение.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithDB(db), nil
}

// NewWithDB оборачивает уже открытый пул.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{repo: repo{q: db}, DB: db}
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgresql.Ping"
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Согласованность
// обеспечивается блокировками строк, которые берут сами операции.
func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context, r storage.Repository) error) error {
	const op = "storage.postgresql.WithinTx"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &repo{q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, classify(err))
	}
	return nil
}

// classify переводит ошибки PostgreSQL в ошибки контракта storage.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.ConstraintName)
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.LockNotAvailable,
			pgerrcode.QueryCanceled,
			pgerrcode.AdminShutdown,
			pgerrcode.CannotConnectNow:
			return fmt.Errorf("%w: %w", storage.ErrRetryable, err)
		}
		if pgerrcode.IsConnectionException(pgErr.Code) {
			return fmt.Errorf("%w: %w", storage.ErrRetryable, err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", storage.ErrRetryable, err)
	}
	return err
}

func lockClause(r *repo, lock bool) string {
	if lock && r.inTx {
		return " FOR UPDATE"
	}
	return ""
}

// scanner общий интерфейс *sql.Row и *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// datePtr календарный день из колонки DATE как полночь UTC.
func datePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := clock.Day(t.Time)
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
