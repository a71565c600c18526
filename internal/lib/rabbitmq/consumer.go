package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/club-ledger/internal/lib/sl"
)

// ErrPermanent помечает ошибку обработчика, после которой повтор бесполезен
// (например, тело сообщения не разбирается). Такое сообщение отбрасывается.
var ErrPermanent = errors.New("permanent message failure")

// ConsumerMessage запускает чтение очереди queueName. Обработчики выполняются
// параллельно, не более десяти одновременно; при ошибке сообщение
// возвращается в очередь, если ошибка не ErrPermanent.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						requeue := !errors.Is(err, ErrPermanent)
						log.Error("handler failed", slog.Bool("requeue", requeue), sl.Err(err))
						if nackErr := d.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
