package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/migratemate/retention-backend/api/controllers"
	"github.com/migratemate/retention-backend/api/middleware"
	"github.com/migratemate/retention-backend/internal/analytics"
	cancelsvc "github.com/migratemate/retention-backend/internal/cancellations"
	subsvc "github.com/migratemate/retention-backend/internal/subscriptions"
	"github.com/migratemate/retention-backend/pkg/config"
	"github.com/migratemate/retention-backend/pkg/db"
	"github.com/migratemate/retention-backend/pkg/logger"
	"github.com/migratemate/retention-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	metricsRegistry *prometheus.Registry,
	cancellationService cancelsvc.Service,
	subscriptionService subsvc.Service,
	analyticsService analytics.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cancellations", func(r chi.Router) {
			r.Post("/start", controllers.CancellationStart(cancellationService, logg))
			r.Get("/state", controllers.CancellationState(cancellationService, logg))
			r.Post("/step", controllers.CancellationStep(cancellationService, logg))
			r.Post("/reset", controllers.CancellationReset(cancellationService, logg))
			r.Post("/found-job/complete", controllers.CancellationFoundJobComplete(cancellationService, logg))
			r.Patch("/{cancellationId}", controllers.CancellationUpdate(cancellationService, logg))
			r.Post("/{cancellationId}/downsell", controllers.CancellationDownsell(cancellationService, logg))
			r.Post("/{cancellationId}/complete", controllers.CancellationComplete(cancellationService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/status", controllers.SubscriptionStatus(subscriptionService, logg))
			r.Post("/renew", controllers.SubscriptionRenew(subscriptionService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, logg))
			r.Get("/analytics", controllers.AnalyticsSnapshot(analyticsService, logg))
		})
	})

	return r
}
