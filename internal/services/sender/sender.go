// Package sender читает уведомления из очередей и отправляет игрокам письма.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/club-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/club-ledger/internal/lib/smtp"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
)

type Transport interface {
	Connect() (smtp.Client, error)
	From() string
}

type Service struct {
	transport Transport
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(transport Transport, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{transport: transport, metrics: m, log: log}
}

// Handler возвращает обработчик для очереди с ключом routingKey.
func (s *Service) Handler(routingKey string) (func([]byte) error, error) {
	switch routingKey {
	case rabbitmq.RoutingPaymentConfirmed:
		return s.SendPaymentConfirmed, nil
	case rabbitmq.RoutingPaymentRejected:
		return s.SendPaymentRejected, nil
	case rabbitmq.RoutingSubscriptionExpiring:
		return s.SendSubscriptionExpiring, nil
	}
	return nil, fmt.Errorf("sender.Handler: unknown routing key %q", routingKey)
}

func (s *Service) SendPaymentConfirmed(body []byte) error {
	var n models.PaymentNotice
	if err := s.decode(body, &n); err != nil {
		return err
	}
	text := fmt.Sprintf("Здравствуйте, %s!\n\nОплата пакета «%s» подтверждена.", n.PlayerName, n.PackageName)
	if n.StartDate != nil && n.EndDate != nil {
		text += fmt.Sprintf("\nАбонемент действует с %s по %s включительно.",
			n.StartDate.Format(time.DateOnly), n.EndDate.Format(time.DateOnly))
	}
	text += "\n\nДо встречи на тренировке!"
	return s.send(rabbitmq.RoutingPaymentConfirmed, n.Email, "Оплата подтверждена", text)
}

func (s *Service) SendPaymentRejected(body []byte) error {
	var n models.PaymentNotice
	if err := s.decode(body, &n); err != nil {
		return err
	}
	text := fmt.Sprintf("Здравствуйте, %s!\n\nОплата пакета «%s» отклонена.\nПричина: %s\n\n"+
		"Свяжитесь с администратором клуба, чтобы оформить оплату заново.",
		n.PlayerName, n.PackageName, n.RejectionReason)
	return s.send(rabbitmq.RoutingPaymentRejected, n.Email, "Оплата отклонена", text)
}

func (s *Service) SendSubscriptionExpiring(body []byte) error {
	var n models.ExpiringNotice
	if err := s.decode(body, &n); err != nil {
		return err
	}
	text := fmt.Sprintf("Здравствуйте, %s!\n\nВаш абонемент «%s» заканчивается %s, осталось занятий: %d.\n\n"+
		"Пожалуйста, продлите его заранее.",
		n.PlayerName, n.PackageName, n.EndDate.Format(time.DateOnly), n.SessionsRemaining)
	return s.send(rabbitmq.RoutingSubscriptionExpiring, n.Email, "Абонемент скоро закончится", text)
}

func (s *Service) decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w: %w", rabbitmq.ErrPermanent, err)
	}
	return nil
}

func (s *Service) send(routingKey, to, subject, bodyText string) error {
	if strings.TrimSpace(to) == "" {
		s.log.Error("notification without recipient", slog.String("routing_key", routingKey))
		return fmt.Errorf("empty recipient: %w", rabbitmq.ErrPermanent)
	}
	err := s.sendEmail([]string{to}, subject, bodyText)
	s.metrics.Notification(routingKey, err == nil)
	return err
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
