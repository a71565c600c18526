// Package payment ведёт платежи за абонементы: создание пары pending-абонемент
// и pending-платёж, подтверждение с активацией абонемента и отклонение
// с его отменой. После фиксации транзакции игроку публикуется уведомление.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// Publisher публикует уведомления в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// URLSigner выдаёт временные ссылки на объекты хранилища файлов.
type URLSigner interface {
	Sign(objectKey string, now time.Time) (string, time.Time, error)
}

// NewPayment данные оператора для нового платежа. Amount nil означает цену пакета.
type NewPayment struct {
	PlayerID      string           `json:"player_id" validate:"required"`
	PackageID     string           `json:"package_id" validate:"required"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Method        string           `json:"method" validate:"required"`
	ScreenshotRef string           `json:"screenshot_ref,omitempty"`
}

// Outcome платёж и его абонемент после операции.
type Outcome struct {
	Payment      *models.Payment      `json:"payment"`
	Subscription *models.Subscription `json:"subscription"`
}

// ScreenshotLink временная ссылка на скриншот оплаты.
type ScreenshotLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	store     storage.Store
	clock     clock.Clock
	publisher Publisher
	signer    URLSigner
	metrics   *metrics.Metrics
	validate  *validator.Validate
	log       *slog.Logger
	newID     func() string
}

// NewService создает новый экземпляр Service. publisher и m могут быть nil.
func NewService(
	store storage.Store,
	clk clock.Clock,
	publisher Publisher,
	signer URLSigner,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		clock:     clk,
		publisher: publisher,
		signer:    signer,
		metrics:   m,
		validate:  validator.New(),
		log:       log,
		newID:     uuid.NewString,
	}
}

// Create создаёт pending-абонемент и pending-платёж одной транзакцией.
func (s *Service) Create(ctx context.Context, req NewPayment) (*Outcome, error) {
	const op = "payment.Create"
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.InvalidInput("%s", validationDetail(err))
	}
	method, ok := models.ParseMethod(req.Method)
	if !ok {
		return nil, apperr.InvalidInput("unknown payment method %q", req.Method)
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, apperr.InvalidInput("amount must be positive")
	}

	out := &Outcome{}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		sub, err := subscription.CreatePending(ctx, repo, s.newID(), req.PlayerID, req.PackageID)
		if err != nil {
			return err
		}
		pkg, err := subscription.ActivePackage(ctx, repo, req.PackageID)
		if err != nil {
			return err
		}
		amount := pkg.Price
		if req.Amount != nil {
			amount = *req.Amount
		}

		p := &models.Payment{
			ID:             s.newID(),
			PlayerID:       req.PlayerID,
			SubscriptionID: sub.ID,
			Amount:         amount,
			Method:         method,
			Status:         models.PaymentPending,
			ScreenshotRef:  strings.TrimSpace(req.ScreenshotRef),
		}
		if err := repo.CreatePayment(ctx, p); err != nil {
			return apperr.Infrastructure(op, err)
		}
		out.Payment, out.Subscription = p, sub
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.log.Info("payment created",
		slog.String("op", op),
		slog.String("payment_id", out.Payment.ID),
		slog.String("subscription_id", out.Subscription.ID),
	)
	return out, nil
}

// Confirm подтверждает pending-платёж и активирует его абонемент. Окно нового
// абонемента продолжает последний активный абонемент игрока, если тот ещё не
// закончился, иначе начинается сегодня. Строка игрока блокируется первой,
// поэтому параллельные подтверждения одного игрока выполняются по очереди.
func (s *Service) Confirm(ctx context.Context, paymentID, operatorID string) (*Outcome, error) {
	const op = "payment.Confirm"
	if strings.TrimSpace(operatorID) == "" {
		return nil, apperr.InvalidInput("operator is required")
	}

	now := s.clock.Now()
	today := clock.Day(now)
	out := &Outcome{}
	var notice *models.PaymentNotice

	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		p, err := s.lockPending(ctx, repo, op, paymentID)
		if err != nil {
			return err
		}
		sub, err := repo.GetSubscription(ctx, p.SubscriptionID, true)
		if err != nil {
			return notFoundOr(op, err, "subscription %s of payment %s not found", p.SubscriptionID, p.ID)
		}
		pkg, err := repo.GetPackage(ctx, sub.PackageID)
		if err != nil {
			return notFoundOr(op, err, "package %s not found", sub.PackageID)
		}

		latest, err := repo.LatestActiveSubscription(ctx, p.PlayerID, sub.ID, true)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return apperr.Infrastructure(op, err)
		}
		start := subscription.NextStart(latest, today)
		end := clock.WindowEnd(start, pkg.ValidityDays)

		confirmedAt := now.UTC()
		p.Status = models.PaymentConfirmed
		p.ConfirmedBy = operatorID
		p.ConfirmedAt = &confirmedAt
		if err := repo.UpdatePayment(ctx, p); err != nil {
			return apperr.Infrastructure(op, err)
		}
		sub, err = subscription.Activate(ctx, repo, sub.ID, start, end)
		if err != nil {
			return err
		}

		out.Payment, out.Subscription = p, sub
		notice, err = s.buildNotice(ctx, repo, p, sub, pkg)
		return err
	})
	s.metrics.PaymentTransition(string(models.PaymentConfirmed), err == nil)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.log.Info("payment confirmed",
		slog.String("op", op),
		slog.String("payment_id", paymentID),
		slog.String("subscription_id", out.Subscription.ID),
		slog.String("start_date", out.Subscription.StartDate.Format(time.DateOnly)),
		slog.String("end_date", out.Subscription.EndDate.Format(time.DateOnly)),
	)
	s.publish(ctx, rabbitmq.RoutingPaymentConfirmed, notice)
	return out, nil
}

// Reject отклоняет pending-платёж с причиной и отменяет его абонемент.
func (s *Service) Reject(ctx context.Context, paymentID, reason, operatorID string) (*Outcome, error) {
	const op = "payment.Reject"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.InvalidInput("rejection reason is required")
	}

	out := &Outcome{}
	var notice *models.PaymentNotice

	err := s.store.WithinTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		p, err := s.lockPending(ctx, repo, op, paymentID)
		if err != nil {
			return err
		}
		p.Status = models.PaymentRejected
		p.RejectionReason = reason
		p.ConfirmedBy = operatorID
		if err := repo.UpdatePayment(ctx, p); err != nil {
			return apperr.Infrastructure(op, err)
		}
		sub, err := repo.GetSubscription(ctx, p.SubscriptionID, true)
		if err != nil {
			return notFoundOr(op, err, "subscription %s of payment %s not found", p.SubscriptionID, p.ID)
		}
		// Абонемент мог быть отменён администратором раньше платежа.
		if sub.Status != models.SubscriptionCancelled {
			if sub, err = subscription.Cancel(ctx, repo, sub.ID); err != nil {
				return err
			}
		}
		pkg, err := repo.GetPackage(ctx, sub.PackageID)
		if err != nil {
			return notFoundOr(op, err, "package %s not found", sub.PackageID)
		}

		out.Payment, out.Subscription = p, sub
		notice, err = s.buildNotice(ctx, repo, p, sub, pkg)
		return err
	})
	s.metrics.PaymentTransition(string(models.PaymentRejected), err == nil)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.log.Info("payment rejected", slog.String("op", op), slog.String("payment_id", paymentID))
	s.publish(ctx, rabbitmq.RoutingPaymentRejected, notice)
	return out, nil
}

// Get возвращает платёж.
func (s *Service) Get(ctx context.Context, id string) (*models.Payment, error) {
	const op = "payment.Get"
	p, err := s.store.GetPayment(ctx, id, false)
	if err != nil {
		return nil, s.fail(op, notFoundOr(op, err, "payment %s not found", id))
	}
	return p, nil
}

// List выборка платежей по статусу и игроку.
func (s *Service) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	const op = "payment.List"
	if filter.Status != "" && filter.Status != models.PaymentPending &&
		filter.Status != models.PaymentConfirmed && filter.Status != models.PaymentRejected {
		return nil, apperr.InvalidInput("unknown payment status %q", filter.Status)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperr.InvalidInput("limit and offset must not be negative")
	}
	list, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return list, nil
}

// ScreenshotURL временная ссылка на скриншот оплаты.
func (s *Service) ScreenshotURL(ctx context.Context, paymentID string) (*ScreenshotLink, error) {
	const op = "payment.ScreenshotURL"
	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.ScreenshotRef == "" {
		return nil, apperr.NotFound("payment %s has no screenshot", paymentID)
	}
	link, expires, err := s.signer.Sign(p.ScreenshotRef, s.clock.Now())
	if err != nil {
		return nil, s.fail(op, err)
	}
	return &ScreenshotLink{URL: link, ExpiresAt: expires}, nil
}

// lockPending блокирует игрока платежа, затем перечитывает платёж под блокировкой
// и проверяет, что он всё ещё pending.
func (s *Service) lockPending(ctx context.Context, repo storage.Repository, op, paymentID string) (*models.Payment, error) {
	p, err := repo.GetPayment(ctx, paymentID, false)
	if err != nil {
		return nil, notFoundOr(op, err, "payment %s not found", paymentID)
	}
	if err := repo.LockPlayer(ctx, p.PlayerID); err != nil {
		return nil, notFoundOr(op, err, "player %s not found", p.PlayerID)
	}
	p, err = repo.GetPayment(ctx, paymentID, true)
	if err != nil {
		return nil, notFoundOr(op, err, "payment %s not found", paymentID)
	}
	if !models.CanTransitionPayment(p.Status, models.PaymentConfirmed) {
		return nil, apperr.InvalidState("payment %s is already %s", paymentID, p.Status)
	}
	return p, nil
}

func (s *Service) buildNotice(
	ctx context.Context,
	repo storage.Repository,
	p *models.Payment,
	sub *models.Subscription,
	pkg *models.Package,
) (*models.PaymentNotice, error) {
	const op = "payment.buildNotice"
	player, err := repo.GetPlayer(ctx, p.PlayerID)
	if err != nil {
		return nil, notFoundOr(op, err, "player %s not found", p.PlayerID)
	}
	return &models.PaymentNotice{
		PaymentID:       p.ID,
		SubscriptionID:  sub.ID,
		Status:          p.Status,
		Email:           player.Email,
		PlayerName:      player.FullName(),
		PackageName:     pkg.Name,
		StartDate:       sub.StartDate,
		EndDate:         sub.EndDate,
		RejectionReason: p.RejectionReason,
	}, nil
}

// publish отправляет уведомление после фиксации. Сбой брокера не отменяет
// уже выполненную операцию и только логируется.
func (s *Service) publish(ctx context.Context, routingKey string, notice *models.PaymentNotice) {
	const op = "payment.publish"
	if s.publisher == nil || notice == nil {
		return
	}
	err := s.publisher.Publish(ctx, routingKey, notice)
	s.metrics.Notification(routingKey, err == nil)
	if err != nil {
		s.log.Error("failed to publish notification",
			slog.String("op", op),
			slog.String("routing_key", routingKey),
			slog.String("payment_id", notice.PaymentID),
			sl.Err(err),
		)
	}
}

func (s *Service) fail(op string, err error) error {
	err = apperr.Infrastructure(op, err)
	if apperr.KindOf(err) == apperr.KindInfrastructure {
		s.log.Error("payment operation failed", slog.String("op", op), sl.Err(err))
	}
	return err
}

func notFoundOr(op string, err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Infrastructure(op, err)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" is "+fe.Tag())
	}
	return strings.Join(fields, ", ")
}
