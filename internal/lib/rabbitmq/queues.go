package rabbitmq

// Ключи маршрутизации уведомлений.
const (
	RoutingPaymentConfirmed     = "payment_confirmed"
	RoutingPaymentRejected      = "payment_rejected"
	RoutingSubscriptionExpiring = "subscription_expiring"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues очереди, которые читает отправщик писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "payment_confirmed_queue", RoutingKey: RoutingPaymentConfirmed},
		{QueueName: "payment_rejected_queue", RoutingKey: RoutingPaymentRejected},
		{QueueName: "subscription_expiring_queue", RoutingKey: RoutingSubscriptionExpiring},
	}
}
