package router

import (
	"github.com/gin-gonic/gin"

	"glanceboard.app/embedgate/internal/http/handler"
	"glanceboard.app/embedgate/internal/service"
)

type RouterConfig struct {
	TraceHeader string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		eventHandler := handler.NewRecordEventHandler(services.EventIngest(), cfg.TraceHeader)
		schemaHandler := handler.NewSchemaHandler()
		RecordEventRouter(v1.Group("/events"), eventHandler, schemaHandler)
	}
}
