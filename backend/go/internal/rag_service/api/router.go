package api

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the HTTP surface on router. A nil auth leaves the
// document management routes open.
func RegisterRoutes(router gin.IRouter, h *Handler, auth gin.HandlerFunc) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	{
		docs := v1.Group("/documents")
		docs.GET("", h.ListDocuments)
		docs.GET("/:id", h.GetDocument)

		admin := docs.Group("")
		if auth != nil {
			admin.Use(auth)
		}
		admin.POST("", h.UploadDocument)
		admin.DELETE("/:id", h.DeleteDocument)
		admin.POST("/:id/reindex", h.ReindexDocument)

		v1.POST("/search", h.Search)
		v1.POST("/context", h.Context)
		v1.GET("/jobs/:id", h.GetJob)
		v1.GET("/stats", h.Stats)
	}
}
