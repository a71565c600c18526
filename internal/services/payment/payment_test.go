package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/signedurl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/club-ledger/internal/storage/memory"
)

const (
	playerID    = "player-1"
	eightPackID = "6f1c2a6e-0d1e-4c55-9a11-000000000008"
	operatorID  = "admin-1"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	args := m.Called(ctx, routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

type fixture struct {
	svc   *Service
	store *memory.Store
	pub   *PublisherMock
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	store := memory.New()
	store.SeedPackages(memory.DefaultPackages()...)
	require.NoError(t, store.CreatePlayer(context.Background(), &models.Player{
		ID: playerID, FirstName: "Mona", LastName: "Said", Email: "mona@example.com",
	}))

	pub := new(PublisherMock)
	signer := signedurl.New("https://files.example.com", "secret", 5*time.Minute)
	svc := NewService(store, clock.Fixed{T: today.Add(9 * time.Hour)}, pub, signer, nil, newNoopLogger())
	var seq atomic.Int64
	svc.newID = func() string {
		return fmt.Sprintf("id-%d", seq.Add(1))
	}
	return &fixture{svc: svc, store: store, pub: pub}
}

func (f *fixture) seedActive(t *testing.T, id string, start, end time.Time) {
	t.Helper()
	require.NoError(t, f.store.CreateSubscription(context.Background(), &models.Subscription{
		ID: id, PlayerID: playerID, PackageID: eightPackID, SessionsTotal: 8, SessionsRemaining: 3,
		StartDate: &start, EndDate: &end, Status: models.SubscriptionActive,
	}))
}

func (f *fixture) create(t *testing.T) *Outcome {
	t.Helper()
	out, err := f.svc.Create(context.Background(), NewPayment{
		PlayerID: playerID, PackageID: eightPackID, Method: "Cash", ScreenshotRef: "receipts/1.png",
	})
	require.NoError(t, err)
	return out
}

func TestService_Create(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	ctx := context.Background()

	out := f.create(t)
	assert.Equal(t, models.PaymentPending, out.Payment.Status)
	assert.Equal(t, models.MethodCash, out.Payment.Method)
	assert.True(t, decimal.NewFromInt(1600).Equal(out.Payment.Amount), "amount defaults to package price")
	assert.Equal(t, models.SubscriptionPending, out.Subscription.Status)
	assert.Equal(t, out.Subscription.ID, out.Payment.SubscriptionID)

	custom := decimal.RequireFromString("1450.50")
	out, err := f.svc.Create(ctx, NewPayment{PlayerID: playerID, PackageID: eightPackID, Method: "instapay", Amount: &custom})
	require.NoError(t, err)
	assert.True(t, custom.Equal(out.Payment.Amount))

	tests := []struct {
		name string
		req  NewPayment
		kind apperr.Kind
	}{
		{name: "missing fields", req: NewPayment{PlayerID: playerID}, kind: apperr.KindInvalidInput},
		{name: "unknown method", req: NewPayment{PlayerID: playerID, PackageID: eightPackID, Method: "crypto"}, kind: apperr.KindInvalidInput},
		{name: "zero amount", req: NewPayment{PlayerID: playerID, PackageID: eightPackID, Method: "cash", Amount: &decimal.Zero}, kind: apperr.KindInvalidInput},
		{name: "unknown player", req: NewPayment{PlayerID: "ghost", PackageID: eightPackID, Method: "cash"}, kind: apperr.KindPlayerNotFound},
		{name: "unknown package", req: NewPayment{PlayerID: playerID, PackageID: "nope", Method: "cash"}, kind: apperr.KindPackageNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	list, err := f.svc.List(ctx, models.PaymentFilter{PlayerID: playerID})
	require.NoError(t, err)
	assert.Len(t, list, 2, "failed creates leave nothing behind")
}

func TestService_ConfirmRollsOver(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	f.seedActive(t, "prior", clock.Date(2024, time.May, 12), clock.Date(2024, time.June, 10))
	out := f.create(t)

	f.pub.On("Publish", mock.Anything, rabbitmq.RoutingPaymentConfirmed, mock.MatchedBy(func(n *models.PaymentNotice) bool {
		return n.Email == "mona@example.com" && n.PackageName == "8 Sessions" && n.Status == models.PaymentConfirmed
	})).Return(nil).Once()

	got, err := f.svc.Confirm(context.Background(), out.Payment.ID, operatorID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentConfirmed, got.Payment.Status)
	assert.Equal(t, operatorID, got.Payment.ConfirmedBy)
	require.NotNil(t, got.Payment.ConfirmedAt)
	assert.Equal(t, models.SubscriptionActive, got.Subscription.Status)
	assert.Equal(t, clock.Date(2024, time.June, 11), *got.Subscription.StartDate)
	assert.Equal(t, clock.Date(2024, time.July, 10), *got.Subscription.EndDate)
	assert.Equal(t, 8, got.Subscription.SessionsRemaining)
	f.pub.AssertExpectations(t)
}

func TestService_ConfirmAfterLapseStartsToday(t *testing.T) {
	today := clock.Date(2024, time.June, 15)
	f := newFixture(t, today)
	f.seedActive(t, "lapsed", clock.Date(2024, time.May, 1), clock.Date(2024, time.May, 30))
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	out := f.create(t)

	got, err := f.svc.Confirm(context.Background(), out.Payment.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, today, *got.Subscription.StartDate)
	assert.Equal(t, clock.Date(2024, time.July, 14), *got.Subscription.EndDate)
}

func TestService_ConfirmWhenPriorEndsToday(t *testing.T) {
	today := clock.Date(2024, time.June, 10)
	f := newFixture(t, today)
	f.seedActive(t, "prior", clock.Date(2024, time.May, 12), today)
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	out := f.create(t)

	got, err := f.svc.Confirm(context.Background(), out.Payment.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, today, *got.Subscription.StartDate)
}

func TestService_RejectThenConfirm(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	ctx := context.Background()
	out := f.create(t)

	_, err := f.svc.Reject(ctx, out.Payment.ID, "   ", operatorID)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	f.pub.On("Publish", mock.Anything, rabbitmq.RoutingPaymentRejected, mock.Anything).Return(nil).Once()
	got, err := f.svc.Reject(ctx, out.Payment.ID, "blurry screenshot", operatorID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, got.Payment.Status)
	assert.Equal(t, "blurry screenshot", got.Payment.RejectionReason)
	assert.Nil(t, got.Payment.ConfirmedAt)
	assert.Equal(t, models.SubscriptionCancelled, got.Subscription.Status)

	_, err = f.svc.Confirm(ctx, out.Payment.ID, operatorID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	p, err := f.svc.Get(ctx, out.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, p.Status)
	sub, err := f.store.GetSubscription(ctx, out.Subscription.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	assert.Nil(t, sub.StartDate)
	f.pub.AssertExpectations(t)
}

func TestService_ConfirmNotFound(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	_, err := f.svc.Confirm(context.Background(), "missing", operatorID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Confirm(context.Background(), "missing", "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestService_ConfirmIsAtomic(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	ctx := context.Background()
	out := f.create(t)

	f.store.FailOn("UpdateSubscription", errors.New("serialization failure"))
	_, err := f.svc.Confirm(ctx, out.Payment.ID, operatorID)
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))

	p, err := f.svc.Get(ctx, out.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Nil(t, p.ConfirmedAt)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)

	f.store.FailOn("UpdateSubscription", nil)
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	_, err = f.svc.Confirm(ctx, out.Payment.ID, operatorID)
	require.NoError(t, err)
}

func TestService_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	out := f.create(t)
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	got, err := f.svc.Confirm(context.Background(), out.Payment.ID, operatorID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentConfirmed, got.Payment.Status)
}

func TestService_ConcurrentDoubleConfirm(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	out := f.create(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		invalid   atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Confirm(context.Background(), out.Payment.ID, operatorID)
			switch apperr.KindOf(err) {
			case apperr.KindUnknown:
				succeeded.Add(1)
			case apperr.KindInvalidState:
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), invalid.Load())
}

func TestService_ConcurrentConfirmsChainWindows(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	first, second := f.create(t), f.create(t)

	var wg sync.WaitGroup
	for _, id := range []string{first.Payment.ID, second.Payment.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Confirm(context.Background(), id, operatorID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	subs, err := f.store.ListSubscriptionsByPlayer(context.Background(), playerID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	starts := []time.Time{*subs[0].StartDate, *subs[1].StartDate}
	assert.Contains(t, starts, clock.Date(2024, time.June, 1))
	assert.Contains(t, starts, clock.Date(2024, time.July, 1), "the second confirm sees the first activation")
}

func TestService_ScreenshotURL(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	ctx := context.Background()
	out := f.create(t)

	link, err := f.svc.ScreenshotURL(ctx, out.Payment.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://files.example.com/receipts%2F1.png?"))
	assert.Equal(t, clock.Date(2024, time.June, 1).Add(9*time.Hour+5*time.Minute), link.ExpiresAt)

	bare, err := f.svc.Create(ctx, NewPayment{PlayerID: playerID, PackageID: eightPackID, Method: "cash"})
	require.NoError(t, err)
	_, err = f.svc.ScreenshotURL(ctx, bare.Payment.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_ListValidatesFilter(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	_, err := f.svc.List(context.Background(), models.PaymentFilter{Status: "refunded"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestService_RejectAfterAdminCancel(t *testing.T) {
	f := newFixture(t, clock.Date(2024, time.June, 1))
	ctx := context.Background()
	out := f.create(t)

	subs := subscription.NewService(f.store, clock.Fixed{T: clock.Date(2024, time.June, 1)}, newNoopLogger())
	_, err := subs.Cancel(ctx, out.Subscription.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, out.Payment.ID, operatorID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "a cancelled subscription cannot be activated")

	f.pub.On("Publish", mock.Anything, rabbitmq.RoutingPaymentRejected, mock.Anything).Return(nil).Once()
	got, err := f.svc.Reject(ctx, out.Payment.ID, "subscription cancelled by admin", operatorID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, got.Payment.Status)
	assert.Equal(t, models.SubscriptionCancelled, got.Subscription.Status)

	p, err := f.svc.Get(ctx, out.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, p.Status)
	f.pub.AssertExpectations(t)
}
