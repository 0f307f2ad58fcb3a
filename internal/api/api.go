// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/gapwatch/internal/api/handlers"
	"github.com/andresuchdata/gapwatch/internal/api/middleware"
	"github.com/andresuchdata/gapwatch/internal/metrics"
	"github.com/andresuchdata/gapwatch/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	GapService *service.GapService
	Metrics    *metrics.Collector
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if services != nil && services.Metrics != nil {
		router.Use(services.Metrics.GinMiddleware())
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.GapService != nil {
			gapHandler := handlers.NewGapHandler(services.GapService)
			gapGroup := apiGroup.Group("/gap")
			{
				gapGroup.GET("/snapshots", gapHandler.ListSnapshots)
				gapGroup.GET("/snapshots/latest", gapHandler.GetLatestSnapshot)
				gapGroup.GET("/snapshots/:date", gapHandler.GetSnapshot)
				gapGroup.GET("/kpis", gapHandler.GetKPIs)
				gapGroup.GET("/changes", gapHandler.GetChanges)
				gapGroup.GET("/plan", gapHandler.GetPlan)
			}
		}

		if services.Metrics != nil {
			router.GET("/metrics", gin.WrapH(services.Metrics.Handler()))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
