// Package clubledger собирает HTTP API учёта клуба: хранилище, кэш каталога,
// брокер уведомлений и маршруты.
package clubledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/club-ledger/internal/cache"
	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/lib/clock"
	"github.com/magabrotheeeer/club-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/signedurl"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/migrations"
	"github.com/magabrotheeeer/club-ledger/internal/services/attendance"
	"github.com/magabrotheeeer/club-ledger/internal/services/catalog"
	"github.com/magabrotheeeer/club-ledger/internal/services/expense"
	"github.com/magabrotheeeer/club-ledger/internal/services/importer"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
	"github.com/magabrotheeeer/club-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
	"github.com/magabrotheeeer/club-ledger/internal/storage/memory"
	"github.com/magabrotheeeer/club-ledger/internal/storage/postgresql"
)

type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []io.Closer
}

// New поднимает зависимости. Без строки подключения к базе данные живут в
// памяти процесса; без Redis и RabbitMQ каталог не кэшируется, а
// уведомления не отправляются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "clubledger.New"
	a := &App{logger: logger}

	clk, err := clock.NewReal(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var pkgCache catalog.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, c)
		pkgCache = c
	} else {
		logger.Warn("redis is not configured, package catalog is not cached")
	}

	var publisher payment.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
		if err != nil {
			_ = conn.Close()
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, amqpCloser{ch: ch, conn: conn})
		publisher = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("rabbitmq is not configured, notifications are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	signer := signedurl.New(cfg.Screenshots.BaseURL, cfg.Screenshots.SigningKey, cfg.Screenshots.URLTTL)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	svc := Services{
		Catalog:      catalog.NewService(store, pkgCache, cfg.CacheTTL, logger),
		Payments:     payment.NewService(store, clk, publisher, signer, m, logger),
		Subscription: subscription.NewService(store, clk, logger),
		Attendance:   attendance.NewService(store, clk, m, logger),
		Importer:     importer.NewService(store, clk, m, logger),
		Expenses:     expense.NewService(store, logger),
	}

	// Миграции могли изменить справочник, пока в Redis лежала старая копия.
	svc.Catalog.Invalidate(ctx)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, store, tokens, svc, m, reg)

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageConnectionString == "" {
		a.logger.Warn("storage connection string is empty, using in-memory store")
		store := memory.New()
		store.SeedPackages(memory.DefaultPackages()...)
		return store, nil
	}
	db, err := postgresql.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	return db, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close освобождает ресурсы в обратном порядке открытия.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}

type amqpCloser struct {
	ch   *amqp.Channel
	conn *amqp.Connection
}

func (c amqpCloser) Close() error {
	return errors.Join(c.ch.Close(), c.conn.Close())
}
