package api

import (
	"net/http"

	"controller-go/internal/config"
	"controller-go/internal/logger"
	"controller-go/pkg/enrich"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	API      config.APIConfig
	Security config.SecurityConfig
	Geo      *enrich.Service
	Log      *logger.Logger
}

// NewRouter builds the engine. Public pages and control routes both run
// through the same error translating chain.
func NewRouter(cfg RouterConfig, h *Handlers) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(TraceMiddleware(h.Traces, cfg.Geo))
	router.Use(MetricsMiddleware(h.Metrics))
	if cfg.API.Compression.Brotli || cfg.API.Compression.Gzip {
		router.Use(CompressMiddleware(cfg.API.Compression))
	}

	chain := NewChain(
		RequestLogger(cfg.Log),
		ErrorResponder("error", cfg.Log),
	)

	public := NewRouteTable()
	if err := public.Add(http.MethodGet, "/", h.Root); err != nil {
		return nil, err
	}
	if err := public.Add(http.MethodGet, "/bar", h.Bar); err != nil {
		return nil, err
	}
	public.Register(router, chain, cfg.Log)

	control := router.Group("/api")
	control.Use(AuthMiddleware(cfg.Security, cfg.Log), AuditMiddleware(cfg.Log))
	reads := NewRouteTable()
	if err := reads.Add(http.MethodGet, "/status", h.Status); err != nil {
		return nil, err
	}
	if err := reads.Add(http.MethodGet, "/traces", h.GetTraces); err != nil {
		return nil, err
	}
	if err := reads.Add(http.MethodGet, "/alerts", h.GetAlerts); err != nil {
		return nil, err
	}
	reads.Register(control.Group("", RequireRole(roleRead)), chain, cfg.Log)

	admin := NewRouteTable()
	if err := admin.Add(http.MethodPost, "/shutdown", h.Shutdown); err != nil {
		return nil, err
	}
	admin.Register(control.Group("", RequireRole(roleAdmin)), chain, cfg.Log)

	if cfg.API.Pprof {
		RegisterPprof(router, cfg.API.PprofPath)
	}
	return router, nil
}
