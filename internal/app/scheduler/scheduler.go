// Package scheduler собирает процесс, который рассылает напоминания об
// истекающих абонементах.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/club-ledger/internal/cache"
	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	schedulerservice "github.com/magabrotheeeer/club-ledger/internal/services/scheduler"
	"github.com/magabrotheeeer/club-ledger/internal/storage/postgresql"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	interval         time.Duration
	db               *postgresql.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	metricsServer    *metrics.Server
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *postgresql.Storage) error {
	for range 10 {
		if err := db.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	clk, err := clock.NewReal(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	a := &App{conn: conn, logger: logger, interval: cfg.SchedulerInterval}

	a.ch, err = rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	a.db, err = postgresql.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, a.db); err != nil {
		a.closeResources()
		return nil, err
	}

	var dedup schedulerservice.Deduper
	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		dedup = a.cache
	} else {
		logger.Warn("redis is not configured, expiring notices may repeat")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a.metricsServer = metrics.NewServer(cfg.AddressHTTP, reg)

	a.schedulerService = schedulerservice.NewService(
		a.db,
		rabbitmq.NewPublisher(a.ch),
		dedup,
		clk,
		cfg.ExpiringWindowDays,
		m,
		logger,
	)
	return a, nil
}

func (a *App) closeResources() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", slog.Any("err", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", slog.Any("err", err))
		}
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go a.metricsServer.Run(ctx, a.logger)

	a.logger.Info("scheduler started", slog.Duration("interval", a.interval))
	a.schedulerService.Run(ctx, a.interval)

	a.logger.Info("shutting down scheduler service")
	a.closeResources()
	return nil
}
