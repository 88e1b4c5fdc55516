package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/tg-identity/pkg/auth"
	pkgconfig "github.com/tendant/tg-identity/pkg/config"
	apperrors "github.com/tendant/tg-identity/pkg/errors"
	iamapi "github.com/tendant/tg-identity/pkg/iam/api"
	"github.com/tendant/tg-identity/pkg/metrics"
	roleapi "github.com/tendant/tg-identity/pkg/role/api"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the handlers and dependencies needed to set up routes
type Config struct {
	PrefixConfig pkgconfig.PrefixConfig

	UserHandle *iamapi.Handle
	RoleHandle *roleapi.Handle
	// AuthHandle serves the development token route. Nil leaves it unmounted.
	AuthHandle *auth.Handle

	// Optional
	Metrics *metrics.Metrics
	Store   Pinger
}

// SetupRoutes mounts the identity service routes on the provided router
func SetupRoutes(router chi.Router, cfg Config) {
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	router.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if cfg.Store != nil {
		router.Get("/readyz", readyHandler(cfg.Store))
	}

	router.Mount(cfg.PrefixConfig.Users, iamapi.Handler(cfg.UserHandle))
	router.Mount(cfg.PrefixConfig.Roles, roleapi.Handler(cfg.RoleHandle))

	if cfg.AuthHandle != nil {
		router.Mount(cfg.PrefixConfig.Auth, auth.Handler(cfg.AuthHandle))
		slog.Warn("Development token route mounted", "prefix", cfg.PrefixConfig.Auth)
	}
}

func readyHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			apperrors.Render(w, r, apperrors.FromDomain(err, "store not ready"))
			return
		}
		render.JSON(w, r, map[string]string{"status": "ready"})
	}
}
