// Package subscription ведёт абонементы игроков: создание, активацию, отмену
// и баланс занятий. Функции уровня пакета работают внутри транзакции
// вызывающего (оплата, посещаемость), Service оборачивает их в собственную.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// ActivePackage загружает пакет и проверяет, что он продаётся.
func ActivePackage(ctx context.Context, repo storage.Repository, packageID string) (*models.Package, error) {
	const op = "subscription.ActivePackage"
	pkg, err := repo.GetPackage(ctx, packageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.PackageNotFound("package %s not found", packageID)
	}
	if err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	if !pkg.IsActive {
		return nil, apperr.PackageNotFound("package %s is inactive", packageID)
	}
	return pkg, nil
}

// CreatePending создаёт абонемент в статусе pending без дат с полным балансом пакета.
func CreatePending(ctx context.Context, repo storage.Repository, id, playerID, packageID string) (*models.Subscription, error) {
	const op = "subscription.CreatePending"
	if _, err := repo.GetPlayer(ctx, playerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.PlayerNotFound("player %s not found", playerID)
		}
		return nil, apperr.Infrastructure(op, err)
	}
	pkg, err := ActivePackage(ctx, repo, packageID)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		ID:                id,
		PlayerID:          playerID,
		PackageID:         pkg.ID,
		SessionsTotal:     pkg.SessionCount,
		SessionsRemaining: pkg.SessionCount,
		Status:            models.SubscriptionPending,
	}
	if err := repo.CreateSubscription(ctx, sub); err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return sub, nil
}

func load(ctx context.Context, repo storage.Repository, op, id string) (*models.Subscription, error) {
	sub, err := repo.GetSubscription(ctx, id, true)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("subscription %s not found", id)
	}
	if err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return sub, nil
}

// Activate переводит pending-абонемент в active с окном [start, end].
func Activate(ctx context.Context, repo storage.Repository, id string, start, end time.Time) (*models.Subscription, error) {
	const op = "subscription.Activate"
	start, end = clock.Day(start), clock.Day(end)
	if end.Before(start) {
		return nil, apperr.InvalidInput("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	sub, err := load(ctx, repo, op, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionSubscription(sub.Status, models.SubscriptionActive) {
		return nil, apperr.InvalidState("subscription %s is %s, only pending can be activated", id, sub.Status)
	}

	sub.Status = models.SubscriptionActive
	sub.StartDate = &start
	sub.EndDate = &end
	if err := repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return sub, nil
}

// Cancel отменяет pending- или active-абонемент.
func Cancel(ctx context.Context, repo storage.Repository, id string) (*models.Subscription, error) {
	const op = "subscription.Cancel"
	sub, err := load(ctx, repo, op, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransitionSubscription(sub.Status, models.SubscriptionCancelled) {
		return nil, apperr.InvalidState("subscription %s is %s and cannot be cancelled", id, sub.Status)
	}
	sub.Status = models.SubscriptionCancelled
	if err := repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, apperr.Infrastructure(op, err)
	}
	return sub, nil
}

// Decrement списывает by занятий с активного абонемента. Баланс не опускается
// ниже нуля; overdrawn сообщает, что списание упёрлось в ноль.
func Decrement(ctx context.Context, repo storage.Repository, id string, by int) (remaining int, overdrawn bool, err error) {
	const op = "subscription.Decrement"
	if by < 1 {
		return 0, false, apperr.InvalidInput("decrement must be positive, got %d", by)
	}
	sub, err := load(ctx, repo, op, id)
	if err != nil {
		return 0, false, err
	}
	if sub.Status != models.SubscriptionActive {
		return 0, false, apperr.InvalidState("subscription %s is %s, only active can be charged", id, sub.Status)
	}

	next := sub.SessionsRemaining - by
	if next < 0 {
		overdrawn = true
		next = 0
	}
	sub.SessionsRemaining = next
	if err := repo.UpdateSubscription(ctx, sub); err != nil {
		return 0, false, apperr.Infrastructure(op, err)
	}
	return next, overdrawn, nil
}

// Credit возвращает by занятий, не превышая sessions_total. Возврат разрешён
// для любого абонемента, который уже был активирован.
func Credit(ctx context.Context, repo storage.Repository, id string, by int) (int, error) {
	const op = "subscription.Credit"
	if by < 1 {
		return 0, apperr.InvalidInput("credit must be positive, got %d", by)
	}
	sub, err := load(ctx, repo, op, id)
	if err != nil {
		return 0, err
	}
	if sub.Status == models.SubscriptionPending {
		return 0, apperr.InvalidState("subscription %s is pending and has no balance to credit", id)
	}

	sub.SessionsRemaining = min(sub.SessionsRemaining+by, sub.SessionsTotal)
	if err := repo.UpdateSubscription(ctx, sub); err != nil {
		return 0, apperr.Infrastructure(op, err)
	}
	return sub.SessionsRemaining, nil
}

// NextStart день начала нового абонемента игрока: следующий день после
// окончания последнего активного абонемента, если тот заканчивается позже
// today, иначе сам today. latest может быть nil.
func NextStart(latest *models.Subscription, today time.Time) time.Time {
	today = clock.Day(today)
	if latest == nil || latest.EndDate == nil || !latest.EndDate.After(today) {
		return today
	}
	return clock.AddDays(*latest.EndDate, 1)
}
