package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"glanceboard.app/embedgate/internal/http/dto"
)

// SchemaHandler publishes the JSON schema of the ingest payload so host
// system integrators can validate their webhook configuration against it.
type SchemaHandler struct {
	schema *jsonschema.Schema
}

func NewSchemaHandler() *SchemaHandler {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return &SchemaHandler{
		schema: reflector.Reflect(&dto.IngestRecordEventRequest{}),
	}
}

func (h *SchemaHandler) RecordEvent(c *gin.Context) {
	c.JSON(http.StatusOK, h.schema)
}
