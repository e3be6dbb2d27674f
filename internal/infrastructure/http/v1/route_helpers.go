// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// RecordRouteHandler defines the interface for record handlers.
// All record handlers must implement these methods.
type RecordRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	GetByCode(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterRecordRoutes registers standard CRUD routes for a record type.
//
// Usage:
//
//	handler := handlers.NewPatientHandler(baseHandler, services.Patients)
//	RegisterRecordRoutes(api.Group("/patients"), handler)
func RegisterRecordRoutes(group *gin.RouterGroup, handler RecordRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/by-code/:code", handler.GetByCode)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
}

// RegisterActions registers POST /:id/<action> routes.
func RegisterActions(group *gin.RouterGroup, actions map[string]gin.HandlerFunc) {
	for name, fn := range actions {
		group.POST("/:id/"+name, fn)
	}
}
