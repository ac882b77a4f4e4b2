package httpapi

import (
	"resource-ledger/pkg/config"
	"resource-ledger/pkg/health"
	"resource-ledger/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewEngine,
		NewAPI,
	),
	fx.Invoke(registerOperationalRoutes),
)

// API is the authenticated /api/v1 route group services mount on.
type API struct {
	*gin.RouterGroup
}

func NewEngine(cfg *config.Config, tp trace.TracerProvider) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Otel.Addr != "" {
		r.Use(otelgin.Middleware(cfg.AppName, otelgin.WithTracerProvider(tp)))
	}
	return r
}

func NewAPI(r *gin.Engine) API {
	return API{r.Group("/api/v1", middleware.Error(), middleware.Identity())}
}

func registerOperationalRoutes(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
