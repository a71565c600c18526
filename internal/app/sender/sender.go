// Package sender собирает процесс, который читает очереди уведомлений и
// отправляет письма.
package sender

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/smtp"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	senderservice "github.com/magabrotheeeer/club-ledger/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	metricsServer *metrics.Server
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewService(transport, m, logger),
		metricsServer: metrics.NewServer(cfg.AddressHTTP, reg),
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.metricsServer.Run(ctx, a.logger)

	for _, q := range rabbitmq.NotificationQueues() {
		handler, err := a.senderService.Handler(q.RoutingKey)
		if err != nil {
			return err
		}
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), slog.Any("err", err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
