package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/club-ledger/internal/cache"
	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/storage/memory"
)

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newStore() *memory.Store {
	store := memory.New()
	store.SeedPackages(memory.DefaultPackages()...)
	return store
}

func TestService_ListUsesRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	store := newStore()
	svc := NewService(store, c, time.Hour, newNoopLogger())
	ctx := context.Background()

	pkgs, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, pkgs, 4)
	assert.True(t, mr.Exists(cache.KeyActivePackages))

	// Изменение в хранилище не видно, пока кэш не сброшен.
	retired := memory.DefaultPackages()[3]
	retired.IsActive = false
	store.SeedPackages(retired)

	pkgs, err = svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, pkgs, 4)

	svc.Invalidate(ctx, retired.ID)
	pkgs, err = svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, pkgs, 3)
	assert.Equal(t, "Single Session", pkgs[0].Name)
}

func TestService_CacheFailureFallsThrough(t *testing.T) {
	cacheMock := new(CacheMock)
	cacheMock.On("Get", mock.Anything, cache.PackageKey("6f1c2a6e-0d1e-4c55-9a11-000000000008"), mock.Anything).
		Return(false, errors.New("redis down")).Once()
	cacheMock.On("Set", mock.Anything, cache.PackageKey("6f1c2a6e-0d1e-4c55-9a11-000000000008"), mock.Anything, time.Minute).
		Return(errors.New("redis down")).Once()

	svc := NewService(newStore(), cacheMock, time.Minute, newNoopLogger())
	pkg, err := svc.Get(context.Background(), "6f1c2a6e-0d1e-4c55-9a11-000000000008")
	require.NoError(t, err)
	assert.Equal(t, 8, pkg.SessionCount)
	cacheMock.AssertExpectations(t)
}

func TestService_GetMissing(t *testing.T) {
	svc := NewService(newStore(), nil, time.Minute, newNoopLogger())
	_, err := svc.Get(context.Background(), "nope")
	assert.Equal(t, apperr.KindPackageNotFound, apperr.KindOf(err))
}

func TestService_StorageFailure(t *testing.T) {
	store := newStore()
	store.FailOn("ListPackages", errors.New("timeout"))
	svc := NewService(store, nil, time.Minute, newNoopLogger())

	_, err := svc.List(context.Background(), false)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
}
