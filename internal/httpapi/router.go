package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/flowmesh/flowmesh/internal/client"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// NewRouter builds the full Gin engine for one client.Client instance.
// Grounded on this codebase's NewRouter(cfg RouterConfig) shape
// elsewhere, collapsed to a single handler since every route here
// delegates to the one Client surface rather than a per-domain handler
// struct per route group.
func NewRouter(c client.Client, log *logger.Logger) *gin.Engine {
	h := NewHandler(c, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AttachRequestContext())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Idempotency-Key"},
		AllowCredentials: false,
	}))

	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1")
	{
		v1.POST("/deploy", h.PostDeploy)
		v1.POST("/apps/:app/activate", h.PostActivate)

		v1.POST("/pub", h.PostPub)
		v1.POST("/pubsub", h.PostPubSub)

		v1.GET("/sub/:channel", h.GetSub)
		v1.GET("/psub/:pattern", h.GetPSub)

		v1.POST("/signals/:topic", h.PostSignal)

		v1.GET("/jobs/:id", h.GetJobState)
		v1.GET("/jobs/:id/status", h.GetJobStatus)
		v1.GET("/jobs/:id/raw", h.GetJobRaw)
		v1.GET("/jobs/:id/query", h.GetJobQueryState)
		v1.GET("/jobs/:id/export", h.GetJobExport)
		v1.POST("/jobs/:id/interrupt", h.PostJobInterrupt)
		v1.DELETE("/jobs/:id", h.DeleteJob)

		v1.POST("/rollcall", h.PostRollCall)
		v1.POST("/throttle/:key", h.PostThrottle)
	}

	return r
}
