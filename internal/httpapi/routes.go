package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flipside-gg/arena-backend/internal/broadcast"
	"github.com/flipside-gg/arena-backend/internal/config"
	"github.com/flipside-gg/arena-backend/internal/registry"
	"github.com/flipside-gg/arena-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, hub *broadcast.Hub, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/matches", CreateMatch(reg, cfg, log))
	r.Get("/healthz", Healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws", ws.Handler(reg, hub, log))
	return r
}
