package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// livenessHandler reports that the process is serving requests
func livenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the migrated database and Redis are reachable
func readinessHandler(db *persistence.Database, b *backends) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.FromGin(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok"}
		if err := db.Ping(ctx); err != nil {
			reqLog.Warn("Readiness check failed", zap.String("dependency", "database"), zap.Error(err))
			checks["database"] = "error"
			status = http.StatusServiceUnavailable
		} else if ok, err := db.SchemaReady(ctx); err != nil || !ok {
			reqLog.Warn("Readiness check failed", zap.String("dependency", "schema"), zap.Error(err))
			checks["database"] = "not_migrated"
			status = http.StatusServiceUnavailable
		}
		if b.redis != nil {
			checks["redis"] = "ok"
			if err := b.Ping(ctx); err != nil {
				reqLog.Warn("Readiness check failed", zap.String("dependency", "redis"), zap.Error(err))
				checks["redis"] = "error"
				status = http.StatusServiceUnavailable
			}
		}

		state := "ready"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{
			"status": state,
			"time":   time.Now().Format(time.RFC3339),
			"checks": checks,
		})
	}
}
