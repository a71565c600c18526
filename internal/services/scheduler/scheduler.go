// Package scheduler периодически ищет активные абонементы, срок которых скоро
// заканчивается, и публикует уведомления для игроков.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/cache"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

type SubscriptionRepository interface {
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	GetPackage(ctx context.Context, id string) (*models.Package, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Deduper не даёт отправить одно уведомление дважды за окно.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

type Service struct {
	repo       SubscriptionRepository
	publisher  Publisher
	dedup      Deduper
	clock      clock.Clock
	windowDays int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewService создает новый экземпляр Service. dedup может быть nil.
func NewService(
	repo SubscriptionRepository,
	publisher Publisher,
	dedup Deduper,
	clk clock.Clock,
	windowDays int,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	if windowDays < 0 {
		windowDays = 0
	}
	return &Service{
		repo:       repo,
		publisher:  publisher,
		dedup:      dedup,
		clock:      clk,
		windowDays: windowDays,
		metrics:    m,
		log:        log,
	}
}

// Run выполняет проверку сразу и затем каждые interval до отмены ctx.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.runNotifyExpiring(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runNotifyExpiring(ctx)
		}
	}
}

func (s *Service) runNotifyExpiring(ctx context.Context) {
	if _, err := s.NotifyExpiring(ctx); err != nil {
		s.log.Error("failed to notify expiring subscriptions", sl.Err(err))
	}
}

// NotifyExpiring публикует уведомления по абонементам с end_date в пределах
// [today, today+window] и возвращает число опубликованных.
func (s *Service) NotifyExpiring(ctx context.Context) (int, error) {
	const op = "scheduler.NotifyExpiring"
	log := s.log.With(slog.String("op", op))

	today := clock.Today(s.clock)
	subs, err := s.repo.ListExpiringSubscriptions(ctx, today, clock.AddDays(today, s.windowDays))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(subs) == 0 {
		log.Info("no expiring subscriptions found")
		return 0, nil
	}
	log.Info("found expiring subscriptions", slog.Int("count", len(subs)))

	published := 0
	for _, sub := range subs {
		notice, err := s.notice(ctx, sub)
		if err != nil {
			log.Error("failed to build notice", slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if !s.firstTime(ctx, sub, today) {
			continue
		}
		err = s.publisher.Publish(ctx, rabbitmq.RoutingSubscriptionExpiring, notice)
		s.metrics.Notification(rabbitmq.RoutingSubscriptionExpiring, err == nil)
		if err != nil {
			log.Error("failed to publish message", slog.String("subscription_id", sub.ID), sl.Err(err))
			s.release(ctx, sub)
			continue
		}
		published++
	}
	return published, nil
}

func (s *Service) notice(ctx context.Context, sub models.Subscription) (*models.ExpiringNotice, error) {
	if sub.EndDate == nil {
		return nil, errors.New("active subscription without end date")
	}
	player, err := s.repo.GetPlayer(ctx, sub.PlayerID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.repo.GetPackage(ctx, sub.PackageID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	n := &models.ExpiringNotice{
		SubscriptionID:    sub.ID,
		Email:             player.Email,
		PlayerName:        player.FullName(),
		EndDate:           *sub.EndDate,
		SessionsRemaining: sub.SessionsRemaining,
	}
	if pkg != nil {
		n.PackageName = pkg.Name
	}
	return n, nil
}

// firstTime сообщает, что по абонементу ещё не уведомляли. Метка живёт до
// окончания абонемента. Без дедупликатора или при сбое Redis уведомление
// отправляется.
func (s *Service) firstTime(ctx context.Context, sub models.Subscription, today time.Time) bool {
	if s.dedup == nil {
		return true
	}
	ttl := sub.EndDate.Sub(today) + 24*time.Hour
	ok, err := s.dedup.MarkOnce(ctx, cache.ExpiringNoticeKey(sub.ID), ttl)
	if err != nil {
		s.log.Warn("dedup check failed", slog.String("subscription_id", sub.ID), sl.Err(err))
		return true
	}
	return ok
}

// release снимает метку после неудачной публикации, чтобы следующий проход
// отправил уведомление повторно.
func (s *Service) release(ctx context.Context, sub models.Subscription) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.Invalidate(ctx, cache.ExpiringNoticeKey(sub.ID)); err != nil {
		s.log.Warn("failed to release dedup mark", slog.String("subscription_id", sub.ID), sl.Err(err))
	}
}
