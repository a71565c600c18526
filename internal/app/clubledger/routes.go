package clubledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/club-ledger/docs"
	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/attendance/attendancesubmit"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/catalog/packagelist"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/catalog/packageread"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/expense/expensecreate"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/expense/expenselist"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/expense/expensesummary"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/imports/importpayments"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/imports/importplayers"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentconfirm"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentread"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentreject"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/payment/paymentscreenshot"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/subscription/playersubscriptions"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/subscription/subscriptioncancel"
	"github.com/magabrotheeeer/club-ledger/internal/http/handlers/subscription/subscriptionread"
	"github.com/magabrotheeeer/club-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/club-ledger/internal/metrics"
	"github.com/magabrotheeeer/club-ledger/internal/models"
	"github.com/magabrotheeeer/club-ledger/internal/services/attendance"
	"github.com/magabrotheeeer/club-ledger/internal/services/catalog"
	"github.com/magabrotheeeer/club-ledger/internal/services/expense"
	"github.com/magabrotheeeer/club-ledger/internal/services/importer"
	"github.com/magabrotheeeer/club-ledger/internal/services/payment"
	"github.com/magabrotheeeer/club-ledger/internal/services/subscription"
	"github.com/magabrotheeeer/club-ledger/internal/storage"
)

// Services сервисы, которые обслуживает HTTP API.
type Services struct {
	Catalog      *catalog.Service
	Payments     *payment.Service
	Subscription *subscription.Service
	Attendance   *attendance.Service
	Importer     *importer.Service
	Expenses     *expense.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg config.HTTPServer,
	store storage.Store,
	tokens middlewarectx.TokenParser,
	svc Services,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
	)

	r.Get("/health", health.New(logger, store).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)

	adminOnly := middlewarectx.RequireRole(logger, models.RoleAdmin)
	staff := middlewarectx.RequireRole(logger, models.RoleAdmin, models.RoleCoach)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))
		r.Use(middlewarectx.JWTMiddleware(tokens, logger))

		// Доступно любому оператору
		r.Group(func(r chi.Router) {
			r.Use(staff)
			r.Get("/packages", packagelist.New(logger, svc.Catalog).ServeHTTP)
			r.Get("/packages/{id}", packageread.New(logger, svc.Catalog).ServeHTTP)
			r.Get("/subscriptions/{id}", subscriptionread.New(logger, svc.Subscription).ServeHTTP)
			r.Get("/players/{id}/subscriptions", playersubscriptions.New(logger, svc.Subscription).ServeHTTP)
			r.Post("/attendance", attendancesubmit.New(logger, svc.Attendance).ServeHTTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/payments", paymentcreate.New(logger, svc.Payments).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, svc.Payments).ServeHTTP)
			r.Get("/payments/{id}", paymentread.New(logger, svc.Payments).ServeHTTP)
			r.Post("/payments/{id}/confirm", paymentconfirm.New(logger, svc.Payments).ServeHTTP)
			r.Post("/payments/{id}/reject", paymentreject.New(logger, svc.Payments).ServeHTTP)
			r.Get("/payments/{id}/screenshot", paymentscreenshot.New(logger, svc.Payments).ServeHTTP)

			r.Post("/subscriptions/{id}/cancel", subscriptioncancel.New(logger, svc.Subscription).ServeHTTP)

			r.Post("/imports/payments", importpayments.New(logger, svc.Importer).ServeHTTP)
			r.Post("/imports/players", importplayers.New(logger, svc.Importer).ServeHTTP)

			r.Post("/expenses", expensecreate.New(logger, svc.Expenses).ServeHTTP)
			r.Get("/expenses", expenselist.New(logger, svc.Expenses).ServeHTTP)
			r.Get("/expenses/summary", expensesummary.New(logger, svc.Expenses).ServeHTTP)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
}
