package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"lokasi-umkm-backend/internal/config"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/handler"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	tokens TokenParser,
	health handler.HealthHandler,
	docs handler.DocsHandler,
	auth handler.AuthHandler,
	plots handler.PlotHandler,
	submissions handler.SubmissionHandler,
	reports handler.ReportHandler,
	profile handler.ProfileHandler,
	notifications handler.NotificationHandler,
	exports handler.ExportHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))

	health.RegisterRoutes(r)
	docs.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())
	r.Handle("/uploads/*", uploadsHandler(cfg.UploadDir))

	auth.RegisterRoutes(r)
	plots.RegisterRoutes(r)
	reports.RegisterRoutes(r)

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(tokens, cfg.CookieName))
		auth.RegisterProtectedRoutes(pr)
		profile.RegisterRoutes(pr)
		notifications.RegisterRoutes(pr)
		submissions.RegisterRoutes(pr)

		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleAdmin))
			plots.RegisterAdminRoutes(ar)
			reports.RegisterAdminRoutes(ar)
			submissions.RegisterAdminRoutes(ar)
			profile.RegisterAdminRoutes(ar)
			exports.RegisterAdminRoutes(ar)
		})
	})

	return r
}

// uploadsHandler serves stored files without directory listings.
func uploadsHandler(dir string) http.Handler {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}
