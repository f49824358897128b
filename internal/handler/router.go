package handler

import (
	"net/http"

	"github.com/GoPolymarket/ginauditor/internal/config"
	"github.com/GoPolymarket/ginauditor/internal/middleware"
	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Auditor  *auditor.Auditor
	Users    *UserHandler
	Audit    *AuditHandler
	Stream   *StreamHandler // nil disables the live tail
	Gatherer prometheus.Gatherer
	// Health reports dependency problems; nil means healthy.
	Health func() error
}

func NewRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok", "service": "ginauditor", "audit_queue": deps.Auditor.Pending()}
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				body["status"] = "degraded"
				body["error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	})

	if cfg.Metrics.Enabled {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	a := deps.Auditor
	v1 := r.Group("/api/v1", middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	{
		v1.GET("/users", a.Log("LIST_USERS", "Fetch a list of users"), deps.Users.List)
		v1.POST("/users", a.Log("CREATE_USER", "Create a new user"), deps.Users.Create)
		v1.GET("/users/:id", a.Log("GET_USER", "Fetch a single user by ID"), deps.Users.Get)
	}

	admin := r.Group("")
	if cfg.Auth.AdminKey != "" {
		admin.Use(middleware.AdminKey(cfg.Auth.AdminKey))
	}
	admin.GET("/audit/logs", deps.Audit.List)
	if cfg.Stream.Enabled && deps.Stream != nil {
		admin.GET(cfg.Stream.Path, deps.Stream.Serve)
	}

	return r
}
