package httpserver

import (
	"net/http"

	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/internal/server/httpserver/handler"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Sessions *service.SessionService
	Cookies  *CookieCodec
	Ready    handler.ReadyFunc
	Logger   logger.Logger
	Metrics  *metric.Registry

	// RateLimitRPS and RateLimitBurst configure the per-IP limiter. A zero
	// RateLimitRPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies TrustedProxies
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	h := handler.New(cfg.Sessions, cfg.Ready, log)
	mux := http.NewServeMux()

	// Probes skip rate limiting and access logs.
	probe := Chain(h, RequestID(), Recover(log))
	mux.Handle("GET /health", probe)
	mux.Handle("GET /ready", probe)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(log)))
	}

	api := []Middleware{RequestID(), Recover(log), ResolveClientIP(cfg.TrustedProxies)}
	if cfg.RateLimitRPS > 0 {
		api = append(api, RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	api = append(api,
		AccessLog(log, cfg.Metrics),
		Attributes(AttributesConfig{
			Sessions: cfg.Sessions,
			Cookies:  cfg.Cookies,
			Logger:   log,
			Metrics:  cfg.Metrics,
		}),
	)
	mux.Handle("/v1/", Chain(h, api...))

	return mux
}
