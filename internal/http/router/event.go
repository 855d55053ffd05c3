package router

import (
	"github.com/gin-gonic/gin"

	"glanceboard.app/embedgate/internal/http/handler"
)

func RecordEventRouter(router *gin.RouterGroup, events *handler.RecordEventHandler, schemas *handler.SchemaHandler) {
	router.POST("/record-load", events.Ingest)
	router.GET("/record-load/schema", schemas.RecordEvent)
	router.GET("/records/:recordId", events.History)
}
