package routes

import (
	"github.com/gin-gonic/gin"

	"lynck-space/internal/storage"
)

func Health(r *gin.RouterGroup, store storage.Provider) {

	r.GET("/health", func(c *gin.Context) {
		version, err := store.GetSchemaVersion(c.Request.Context())
		if err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": "storage unavailable"})
			return
		}

		c.JSON(200, gin.H{
			"status":         "ok",
			"schema_version": version,
		})
	})
}
