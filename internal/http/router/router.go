package router

import (
	"github.com/gin-gonic/gin"

	"redline.app/engine/internal/http/handler"
	"redline.app/engine/internal/http/middleware"
)

type RouterConfig struct {
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, analyze *handler.AnalyzeHandler, stats *handler.StatsHandler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", analyze.Analyze)

		admin := v1.Group("/stats", middleware.RequireAPIKey(cfg.AdminAPIKey))
		admin.GET("/refinements", stats.Refinements)
	}
}
