package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyoansoft/gyoan-backend/api/controllers"
	"github.com/gyoansoft/gyoan-backend/api/middleware"
	"github.com/gyoansoft/gyoan-backend/internal/content"
	"github.com/gyoansoft/gyoan-backend/pkg/config"
	"github.com/gyoansoft/gyoan-backend/pkg/db"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/redis"
	"github.com/gyoansoft/gyoan-backend/pkg/storage/local"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	blobStore *local.Store,
	contentService content.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	authed := middleware.Auth(cfg.JWT, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(authed).Get("/ping", controllers.PrivatePing())

		r.Route("/contents", func(r chi.Router) {
			r.Get("/", controllers.ContentListPublic(contentService, logg))
			r.Get("/popular", controllers.ContentPopular(contentService, logg))
			r.Get("/search", controllers.ContentSearch(contentService, logg))
			r.Get("/type/{contentType}", controllers.ContentListByType(contentService, logg))

			r.With(authed).Post("/", controllers.ContentCreate(contentService, logg))
			r.With(authed).Get("/mine", controllers.ContentListMine(contentService, logg))

			r.Route("/{contentID}", func(r chi.Router) {
				r.Get("/", controllers.ContentGet(contentService, logg))
				r.Get("/support-materials", controllers.ContentSupportMaterials(contentService, logg))
				r.Post("/like", controllers.ContentLike(contentService, logg))
				r.Post("/download", controllers.ContentDownload(contentService, logg))

				r.With(authed).Put("/", controllers.ContentUpdate(contentService, logg))
				r.With(authed).Delete("/", controllers.ContentDelete(contentService, logg))
			})
		})

		r.Get("/channels/{channelID}/contents", controllers.ContentListByChannel(contentService, logg))

		r.Route("/files", func(r chi.Router) {
			r.Get("/download", controllers.FileDownload(blobStore, logg))
			r.Get("/preview", controllers.FilePreview(blobStore, logg))
		})
	})

	return r
}
