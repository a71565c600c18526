package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// Service операции над абонементами, каждая в собственной транзакции.
type Service struct {
	store storage.Store
	clock clock.Clock
	log   *slog.Logger
	newID func() string
}

// NewService создает новый экземпляр Service.
func NewService(store storage.Store, clk clock.Clock, log *slog.Logger) *Service {
	return &Service{
		store: store,
		clock: clk,
		log:   log,
		newID: uuid.NewString,
	}
}

// CreatePending создаёт pending-абонемент игрока по пакету.
func (s *Service) CreatePending(ctx context.Context, playerID, packageID string) (*models.Subscription, error) {
	const op = "subscription.Service.CreatePending"
	var sub *models.Subscription
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		sub, err = CreatePending(ctx, repo, s.newID(), playerID, packageID)
		return err
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return sub, nil
}

// Activate активирует pending-абонемент с явно заданным окном.
func (s *Service) Activate(ctx context.Context, id string, start, end time.Time) (*models.Subscription, error) {
	const op = "subscription.Service.Activate"
	var sub *models.Subscription
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		sub, err = Activate(ctx, repo, id, start, end)
		return err
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return sub, nil
}

// Cancel административно отменяет абонемент.
func (s *Service) Cancel(ctx context.Context, id string) (*models.SubscriptionView, error) {
	const op = "subscription.Service.Cancel"
	var sub *models.Subscription
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		sub, err = Cancel(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.log.Info("subscription cancelled", slog.String("op", op), slog.String("subscription_id", id))
	v := s.view(*sub)
	return &v, nil
}

// DecrementSession списывает by занятий. overdrawn только предупреждение.
func (s *Service) DecrementSession(ctx context.Context, id string, by int) (remaining int, overdrawn bool, err error) {
	const op = "subscription.Service.DecrementSession"
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		remaining, overdrawn, err = Decrement(ctx, repo, id, by)
		return err
	})
	if err != nil {
		return 0, false, s.fail(op, err)
	}
	return remaining, overdrawn, nil
}

// CreditSession возвращает by занятий, не больше sessions_total.
func (s *Service) CreditSession(ctx context.Context, id string, by int) (int, error) {
	const op = "subscription.Service.CreditSession"
	var remaining int
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		remaining, err = Credit(ctx, repo, id, by)
		return err
	})
	if err != nil {
		return 0, s.fail(op, err)
	}
	return remaining, nil
}

// Get возвращает абонемент с производным статусом на сегодня.
func (s *Service) Get(ctx context.Context, id string) (*models.SubscriptionView, error) {
	const op = "subscription.Service.Get"
	sub, err := s.store.GetSubscription(ctx, id, false)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("subscription %s not found", id)
	}
	if err != nil {
		return nil, s.fail(op, apperr.Infrastructure(op, err))
	}
	v := s.view(*sub)
	return &v, nil
}

// ListByPlayer все абонементы игрока в порядке создания.
func (s *Service) ListByPlayer(ctx context.Context, playerID string) ([]models.SubscriptionView, error) {
	const op = "subscription.Service.ListByPlayer"
	if _, err := s.store.GetPlayer(ctx, playerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.PlayerNotFound("player %s not found", playerID)
		}
		return nil, s.fail(op, apperr.Infrastructure(op, err))
	}
	subs, err := s.store.ListSubscriptionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, s.fail(op, apperr.Infrastructure(op, err))
	}
	views := make([]models.SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, s.view(sub))
	}
	return views, nil
}

func (s *Service) view(sub models.Subscription) models.SubscriptionView {
	return models.SubscriptionView{
		Subscription:  sub,
		DisplayStatus: sub.DisplayStatus(clock.Today(s.clock)),
	}
}

// fail логирует инфраструктурные сбои; доменные ошибки возвращаются молча.
func (s *Service) fail(op string, err error) error {
	err = apperr.Infrastructure(op, err)
	if apperr.KindOf(err) == apperr.KindInfrastructure {
		s.log.Error("storage failure", slog.String("op", op), sl.Err(err))
	}
	return err
}
