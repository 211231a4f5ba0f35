package main

import (
	"invoice-console/internal/httpapi"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/session/check", h.Check)

	// everything below needs a live session
	protected := r.Group("/")
	protected.Use(httpapi.RequireSession(h.Gateway))
	{
		protected.GET("/session/identity", h.Identity)
		protected.GET("/session/permissions", h.Permissions)

		gen := protected.Group("/invoice-generator")
		{
			gen.GET("/options", h.TemplateOptions)
			gen.POST("/template", h.DownloadTemplate)
			gen.POST("/upload", h.UploadWorkbook)
		}

		protected.GET("/reports/receivables", h.Receivables)

		protected.Any("/api/*path", httpapi.Proxy(h.Gateway))
	}
}
