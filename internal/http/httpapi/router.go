package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"donation-server/internal/http/handlers"
	"donation-server/internal/middleware"
)

// Options carries the cross-cutting settings the router needs.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimit       int
	RateLimitWindow time.Duration
	DefaultLocale   string
}

// NewRouter builds the chi routing tree with the shared middleware stack.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(opts.CORSOrigins))
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, opts.RateLimitWindow))
	}
	r.Use(middleware.Locale(opts.DefaultLocale))

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/auth/login", app.AuthLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Get("/v1/me", app.Me)

		r.Route("/v1/donations", func(r chi.Router) {
			r.Post("/", app.DonationsCreate)
			r.Get("/my", app.DonationsMy)
			r.Get("/{id}", app.DonationsGet)
			r.Post("/{id}/receipt", app.DonationsSendReceipt)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", app.DonationsList)
				r.Patch("/{id}", app.DonationsPatch)
				r.Delete("/{id}", app.DonationsDelete)
				r.Post("/{id}/restore", app.DonationsRestore)
			})
		})

		r.Route("/v1/categories", func(r chi.Router) {
			r.Get("/", app.CategoriesList)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", app.CategoriesCreate)
				r.Patch("/{id}", app.CategoriesPatch)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/v1/users", app.UsersList)
			r.Post("/v1/users", app.UsersCreate)
			r.Patch("/v1/users/{id}", app.UsersPatch)
			r.Get("/v1/audit", app.AuditList)
			r.Get("/v1/stats/summary", app.StatsSummary)
		})
	})

	return r
}
