// Package catalog отдаёт справочник пакетов занятий. Чтения кэшируются в Redis;
// недоступность кэша не мешает работе, запрос уходит в хранилище.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/cache"
	"github.com/magabrotheeeer/club-ledger/internal/lib/apperr"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// Cache кэш JSON-значений.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type Service struct {
	repo  storage.PackageReader
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService создает новый экземпляр Service. cache может быть nil.
func NewService(repo storage.PackageReader, c Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log}
}

// List возвращает пакеты в порядке sort_order; activeOnly отбрасывает снятые с продажи.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Package, error) {
	const op = "catalog.List"
	key := cache.KeyAllPackages
	if activeOnly {
		key = cache.KeyActivePackages
	}

	var pkgs []models.Package
	if s.fromCache(ctx, op, key, &pkgs) {
		return pkgs, nil
	}

	pkgs, err := s.repo.ListPackages(ctx, activeOnly)
	if err != nil {
		s.log.Error("failed to list packages", sl.Op(op), sl.Err(err))
		return nil, apperr.Infrastructure(op, err)
	}
	s.toCache(ctx, op, key, pkgs)
	return pkgs, nil
}

// Get возвращает пакет по идентификатору, в том числе неактивный.
func (s *Service) Get(ctx context.Context, id string) (*models.Package, error) {
	const op = "catalog.Get"
	key := cache.PackageKey(id)

	var pkg models.Package
	if s.fromCache(ctx, op, key, &pkg) {
		return &pkg, nil
	}

	p, err := s.repo.GetPackage(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.PackageNotFound("package %s not found", id)
	}
	if err != nil {
		s.log.Error("failed to get package", sl.Op(op), sl.Err(err))
		return nil, apperr.Infrastructure(op, err)
	}
	s.toCache(ctx, op, key, p)
	return p, nil
}

// Invalidate сбрасывает кэш справочника после ручной правки пакетов.
func (s *Service) Invalidate(ctx context.Context, ids ...string) {
	const op = "catalog.Invalidate"
	if s.cache == nil {
		return
	}
	keys := []string{cache.KeyActivePackages, cache.KeyAllPackages}
	for _, id := range ids {
		keys = append(keys, cache.PackageKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Op(op), sl.Err(err))
	}
}

func (s *Service) fromCache(ctx context.Context, op, key string, result any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, result)
	if err != nil {
		s.log.Warn("cache read failed", sl.Op(op), slog.String("key", key), sl.Err(err))
		return false
	}
	return found
}

func (s *Service) toCache(ctx context.Context, op, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn("cache write failed", sl.Op(op), slog.String("key", key), sl.Err(err))
	}
}
