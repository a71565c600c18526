package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *MockRepository) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

func (m *MockRepository) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Package), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	args := m.Called(ctx, routingKey, message)
	return args.Error(0)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) Invalidate(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var today = clock.Date(2024, time.June, 20)

func expiringSub(id string, end time.Time) models.Subscription {
	start := clock.Date(2024, time.June, 1)
	return models.Subscription{
		ID: id, PlayerID: "p1", PackageID: "pkg-8", SessionsTotal: 8, SessionsRemaining: 2,
		StartDate: &start, EndDate: &end, Status: models.SubscriptionActive,
	}
}

func TestService_NotifyExpiring(t *testing.T) {
	player := &models.Player{ID: "p1", FirstName: "Hana", LastName: "Magdy", Email: "hana@example.com"}
	pkg := &models.Package{ID: "pkg-8", Name: "8 Sessions"}
	from, to := today, clock.Date(2024, time.June, 27)

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockPublisher, *MockDeduper)
		want       int
		wantErr    bool
	}{
		{
			name: "publishes notice for each expiring subscription",
			setupMocks: func(r *MockRepository, p *MockPublisher, d *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", clock.Date(2024, time.June, 22))}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(player, nil).Once()
				r.On("GetPackage", mock.Anything, "pkg-8").Return(pkg, nil).Once()
				d.On("MarkOnce", mock.Anything, "notified:expiring:s1", 3*24*time.Hour).Return(true, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingSubscriptionExpiring, mock.MatchedBy(func(n *models.ExpiringNotice) bool {
					return n.Email == "hana@example.com" && n.PackageName == "8 Sessions" && n.SessionsRemaining == 2
				})).Return(nil).Once()
			},
			want: 1,
		},
		{
			name: "already notified",
			setupMocks: func(r *MockRepository, _ *MockPublisher, d *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", today)}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(player, nil).Once()
				r.On("GetPackage", mock.Anything, "pkg-8").Return(pkg, nil).Once()
				d.On("MarkOnce", mock.Anything, "notified:expiring:s1", 24*time.Hour).Return(false, nil).Once()
			},
			want: 0,
		},
		{
			name: "dedup failure still publishes",
			setupMocks: func(r *MockRepository, p *MockPublisher, d *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", today)}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(player, nil).Once()
				r.On("GetPackage", mock.Anything, "pkg-8").Return(pkg, nil).Once()
				d.On("MarkOnce", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingSubscriptionExpiring, mock.Anything).Return(nil).Once()
			},
			want: 1,
		},
		{
			name: "no expiring subscriptions",
			setupMocks: func(r *MockRepository, _ *MockPublisher, _ *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).Return([]models.Subscription{}, nil).Once()
			},
			want: 0,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockRepository, _ *MockPublisher, _ *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "publish error is counted as not published",
			setupMocks: func(r *MockRepository, p *MockPublisher, d *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", today)}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(player, nil).Once()
				r.On("GetPackage", mock.Anything, "pkg-8").Return(pkg, nil).Once()
				d.On("MarkOnce", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
				p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
				d.On("Invalidate", mock.Anything, []string{"notified:expiring:s1"}).Return(nil).Once()
			},
			want: 0,
		},
		{
			name: "failed release after publish error is only logged",
			setupMocks: func(r *MockRepository, p *MockPublisher, d *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", today)}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(player, nil).Once()
				r.On("GetPackage", mock.Anything, "pkg-8").Return(pkg, nil).Once()
				d.On("MarkOnce", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
				p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
				d.On("Invalidate", mock.Anything, []string{"notified:expiring:s1"}).Return(errors.New("redis down")).Once()
			},
			want: 0,
		},
		{
			name: "player lookup error skips subscription",
			setupMocks: func(r *MockRepository, _ *MockPublisher, _ *MockDeduper) {
				r.On("ListExpiringSubscriptions", mock.Anything, from, to).
					Return([]models.Subscription{expiringSub("s1", today)}, nil).Once()
				r.On("GetPlayer", mock.Anything, "p1").Return(nil, errors.New("db error")).Once()
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			dedup := new(MockDeduper)
			service := NewService(repo, pub, dedup, clock.Fixed{T: today.Add(6 * time.Hour)}, 7, nil, newNoopLogger())

			tt.setupMocks(repo, pub, dedup)

			got, err := service.NotifyExpiring(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
			dedup.AssertExpectations(t)
		})
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListExpiringSubscriptions", mock.Anything, mock.Anything, mock.Anything).Return([]models.Subscription{}, nil)
	service := NewService(repo, new(MockPublisher), nil, clock.Fixed{T: today}, 7, nil, newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, len(repo.Calls), 2)
}
