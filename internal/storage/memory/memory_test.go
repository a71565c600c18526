package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

const pkg8 = "6f1c2a6e-0d1e-4c55-9a11-000000000008"

func newSeeded(t *testing.T) (*Store, *models.Player) {
	t.Helper()
	s := New()
	s.SeedPackages(DefaultPackages()...)
	p := &models.Player{ID: "player-1", FirstName: "Omar", LastName: "Hassan", Email: "Omar@Club.EG"}
	require.NoError(t, s.CreatePlayer(context.Background(), p))
	return s, p
}

func newActive(t *testing.T, s *Store, id, playerID string, startDay, endDay int) *models.Subscription {
	t.Helper()
	start, end := clock.Date(2024, 6, startDay), clock.Date(2024, 6, endDay)
	sub := &models.Subscription{
		ID: id, PlayerID: playerID, PackageID: pkg8, SessionsTotal: 8, SessionsRemaining: 8,
		StartDate: &start, EndDate: &end, Status: models.SubscriptionActive,
	}
	require.NoError(t, s.CreateSubscription(context.Background(), sub))
	return sub
}

func TestStore_Packages(t *testing.T) {
	s, _ := newSeeded(t)
	ctx := context.Background()

	p, err := s.GetPackageByName(ctx, " 12 sessions ")
	require.NoError(t, err)
	assert.Equal(t, 12, p.SessionCount)

	list, err := s.ListPackages(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "Single Session", list[0].Name)

	_, err = s.GetPackage(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_PlayerEmailUnique(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()

	got, err := s.GetPlayerByEmail(ctx, "OMAR@club.eg")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	err = s.CreatePlayer(ctx, &models.Player{ID: "player-2", FirstName: "A", LastName: "B", Email: "omar@club.eg "})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_SubscriptionQueries(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()

	first := newActive(t, s, "sub-1", p.ID, 1, 20)
	second := newActive(t, s, "sub-2", p.ID, 10, 30)

	latest, err := s.LatestActiveSubscription(ctx, p.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	latest, err = s.LatestActiveSubscription(ctx, p.ID, second.ID, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	covering, err := s.CoveringSubscription(ctx, p.ID, clock.Date(2024, 6, 15), true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, covering.ID)

	covering, err = s.CoveringSubscription(ctx, p.ID, clock.Date(2024, 6, 25), true)
	require.NoError(t, err)
	assert.Equal(t, second.ID, covering.ID)

	_, err = s.CoveringSubscription(ctx, p.ID, clock.Date(2024, 7, 1), true)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	expiring, err := s.ListExpiringSubscriptions(ctx, clock.Date(2024, 6, 18), clock.Date(2024, 6, 25))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, first.ID, expiring[0].ID)

	list, err := s.ListSubscriptionsByPlayer(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	newActive(t, s, "sub-1", p.ID, 1, 20)

	got, err := s.GetSubscription(ctx, "sub-1", false)
	require.NoError(t, err)
	got.SessionsRemaining = 0
	*got.EndDate = clock.Date(2030, 1, 1)

	again, err := s.GetSubscription(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.Equal(t, 8, again.SessionsRemaining)
	assert.Equal(t, clock.Date(2024, 6, 20), *again.EndDate)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	newActive(t, s, "sub-1", p.ID, 1, 20)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r storage.Repository) error {
		sub, err := r.GetSubscription(ctx, "sub-1", true)
		require.NoError(t, err)
		sub.SessionsRemaining = 1
		require.NoError(t, r.UpdateSubscription(ctx, sub))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sub, err := s.GetSubscription(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.Equal(t, 8, sub.SessionsRemaining)
}

func TestStore_FailOn(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	newActive(t, s, "sub-1", p.ID, 1, 20)

	injected := errors.New("connection reset")
	s.FailOn("UpdatePayment", injected)

	err := s.WithinTx(ctx, func(ctx context.Context, r storage.Repository) error {
		sub, err := r.GetSubscription(ctx, "sub-1", true)
		if err != nil {
			return err
		}
		sub.Status = models.SubscriptionCancelled
		if err := r.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		return r.UpdatePayment(ctx, &models.Payment{ID: "any"})
	})
	assert.ErrorIs(t, err, injected)

	sub, err := s.GetSubscription(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)

	s.FailOn("UpdatePayment", nil)
	err = s.UpdatePayment(ctx, &models.Payment{ID: "any"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ValidatesInvariants(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	sub := newActive(t, s, "sub-1", p.ID, 1, 20)

	sub.SessionsRemaining = -1
	assert.Error(t, s.UpdateSubscription(ctx, sub))

	err := s.CreatePayment(ctx, &models.Payment{
		ID: "pay-1", PlayerID: p.ID, SubscriptionID: sub.ID, Amount: decimal.NewFromInt(100),
		Method: models.MethodCash, Status: models.PaymentConfirmed,
	})
	assert.Error(t, err, "confirmed payment without confirmed_at")
}

func TestStore_PaymentsFilterAndPaging(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	sub := newActive(t, s, "sub-1", p.ID, 1, 20)

	for _, id := range []string{"pay-1", "pay-2", "pay-3"} {
		require.NoError(t, s.CreatePayment(ctx, &models.Payment{
			ID: id, PlayerID: p.ID, SubscriptionID: sub.ID, Amount: decimal.NewFromInt(100),
			Method: models.MethodCash, Status: models.PaymentPending,
		}))
	}

	list, err := s.ListPayments(ctx, models.PaymentFilter{Status: models.PaymentPending, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pay-3", list[0].ID)

	list, err = s.ListPayments(ctx, models.PaymentFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pay-1", list[0].ID)

	list, err = s.ListPayments(ctx, models.PaymentFilter{Status: models.PaymentRejected})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_ConcurrentTransactionsSerialize(t *testing.T) {
	s, p := newSeeded(t)
	ctx := context.Background()
	newActive(t, s, "sub-1", p.ID, 1, 20)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(ctx context.Context, r storage.Repository) error {
				sub, err := r.GetSubscription(ctx, "sub-1", true)
				if err != nil {
					return err
				}
				sub.SessionsRemaining--
				return r.UpdateSubscription(ctx, sub)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sub, err := s.GetSubscription(ctx, "sub-1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.SessionsRemaining)
}

func TestStore_CancelledContext(t *testing.T) {
	s, _ := newSeeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListPackages(ctx, true)
	assert.ErrorIs(t, err, context.Canceled)
}
