// Package metrics содержит счётчики Prometheus для переходов статусов,
// импорта, списаний по посещаемости и HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор коллекторов сервиса. Методы безопасно вызывать у nil.
type Metrics struct {
	paymentTransitions *prometheus.CounterVec
	importRows         *prometheus.CounterVec
	balanceChanges     *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_payment_transitions_total",
			Help: "Payment status transitions by resulting status and outcome",
		}, []string{"status", "outcome"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_import_rows_total",
			Help: "Imported rows by import kind and row status",
		}, []string{"kind", "status"}),
		balanceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_balance_changes_total",
			Help: "Subscription balance changes caused by attendance",
		}, []string{"change"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_notifications_total",
			Help: "Notifications published or sent by routing key and outcome",
		}, []string{"routing_key", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(
		m.paymentTransitions,
		m.importRows,
		m.balanceChanges,
		m.notifications,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// PaymentTransition учитывает попытку перевести платёж в status.
func (m *Metrics) PaymentTransition(status string, ok bool) {
	if m == nil {
		return
	}
	m.paymentTransitions.WithLabelValues(status, outcome(ok)).Inc()
}

// ImportRow учитывает строку импорта.
func (m *Metrics) ImportRow(kind, status string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(kind, status).Inc()
}

// BalanceChange учитывает изменение баланса: debit, credit или overdrawn.
func (m *Metrics) BalanceChange(change string) {
	if m == nil {
		return
	}
	m.balanceChanges.WithLabelValues(change).Inc()
}

// Notification учитывает публикацию или отправку уведомления.
func (m *Metrics) Notification(routingKey string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(routingKey, outcome(ok)).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, а не по пути,
// чтобы идентификаторы не раздували число серий.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
