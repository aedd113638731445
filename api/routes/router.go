package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/surplusx-backend/api/controllers"
	"github.com/angelmondragon/surplusx-backend/api/middleware"
	"github.com/angelmondragon/surplusx-backend/internal/materials"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/internal/transfers"
	"github.com/angelmondragon/surplusx-backend/pkg/config"
	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	redis.IdempotencyStore
	redis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	metricsHandler http.Handler,
	materialsService materials.Service,
	surplusIndex controllers.SurplusLister,
	transfersService transfers.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{"db": dbP, "redis": redisClient}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/materials", func(r chi.Router) {
			r.Post("/", controllers.CreateMaterial(materialsService, logg))
			r.Get("/", controllers.ListMaterials(materialsService, logg))
			r.Get("/{materialId}", controllers.GetMaterial(materialsService, logg))
			r.Patch("/{materialId}", controllers.UpdateMaterial(materialsService, logg))
			r.Delete("/{materialId}", controllers.DeleteMaterial(materialsService, logg))
			r.Post("/{materialId}/surplus", controllers.MarkMaterialSurplus(materialsService, logg))
			r.Delete("/{materialId}/surplus", controllers.UnmarkMaterialSurplus(materialsService, logg))
			r.Get("/{materialId}/allocations", controllers.MaterialAllocations(materialsService, logg))
		})

		r.Get("/surplus", controllers.ListSurplus(surplusIndex, logg))

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", controllers.CreateTransfer(transfersService, logg))
			r.Get("/", controllers.ListTransfers(transfersService, logg))
			r.Get("/{transferId}", controllers.GetTransfer(transfersService, logg))
			r.Post("/{transferId}/approve", controllers.ApproveTransfer(transfersService, logg))
			r.Post("/{transferId}/reject", controllers.RejectTransfer(transfersService, logg))
			r.Post("/{transferId}/cancel", controllers.CancelTransfer(transfersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
