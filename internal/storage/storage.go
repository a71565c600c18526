// Package storage описывает контракт хранилища бэк-офиса клуба. Реализации:
// storage/postgresql (рабочая) и storage/memory (тесты и локальный запуск).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/models"
)

var (
	// ErrNotFound строка не найдена.
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушена уникальность (например, e-mail игрока).
	ErrConflict = errors.New("conflict")
	// ErrRetryable сбой, после которого транзакцию можно повторить:
	// конфликт сериализации, взаимная блокировка, таймаут ожидания блокировки.
	ErrRetryable = errors.New("retryable storage failure")
)

// PackageReader чтение справочника пакетов.
type PackageReader interface {
	GetPackage(ctx context.Context, id string) (*models.Package, error)
	// GetPackageByName ищет пакет по точному имени без учёта регистра.
	GetPackageByName(ctx context.Context, name string) (*models.Package, error)
	ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error)
}

// PlayerRepository игроки.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	// GetPlayerByEmail ищет игрока по e-mail без учёта регистра.
	GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error)
	// LockPlayer берёт блокировку строки игрока до конца транзакции.
	LockPlayer(ctx context.Context, id string) error
	CreatePlayer(ctx context.Context, p *models.Player) error
}

// SubscriptionRepository абонементы. Параметр lock означает SELECT ... FOR UPDATE.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetSubscription(ctx context.Context, id string, lock bool) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, s *models.Subscription) error
	// LatestActiveSubscription активный абонемент игрока с наибольшей end_date,
	// кроме excludeID. ErrNotFound, если такого нет.
	LatestActiveSubscription(ctx context.Context, playerID, excludeID string, lock bool) (*models.Subscription, error)
	// CoveringSubscription активный абонемент игрока, окно которого содержит day.
	// При пересечении окон выбирается абонемент с самой ранней end_date.
	CoveringSubscription(ctx context.Context, playerID string, day time.Time, lock bool) (*models.Subscription, error)
	ListSubscriptionsByPlayer(ctx context.Context, playerID string) ([]models.Subscription, error)
	// ListExpiringSubscriptions активные абонементы с from <= end_date <= to.
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
}

// PaymentRepository платежи.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string, lock bool) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
}

// AttendanceRepository посещаемость.
type AttendanceRepository interface {
	GetAttendance(ctx context.Context, key models.AttendanceKey, lock bool) (*models.AttendanceRecord, error)
	UpsertAttendance(ctx context.Context, r *models.AttendanceRecord) error
}

// ExpenseRepository расходы.
type ExpenseRepository interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, error)
}

// Repository все операции хранилища. Внутри WithinTx они выполняются в одной
// транзакции.
type Repository interface {
	PackageReader
	PlayerRepository
	SubscriptionRepository
	PaymentRepository
	AttendanceRepository
	ExpenseRepository
}

// Store хранилище с поддержкой транзакций. Если fn возвращает ошибку,
// все изменения откатываются, и ошибка fn возвращается без изменений.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Ping(ctx context.Context) error
}
