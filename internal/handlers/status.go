package handlers

import (
	"net/http"

	"github.com/Rudra0075-rudi/470pro/internal/monitoring"
	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Trip Planner API",
		"version": "0.1.0",
		"status":  "operational",
	})
}

// MonitoringSnapshot returns runtime, database and uploads metrics.
func MonitoringSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, monitoring.TakeSnapshot())
}
