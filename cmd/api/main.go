package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/Rudra0075-rudi/470pro/internal/database"
	"github.com/Rudra0075-rudi/470pro/internal/handlers"
	"github.com/Rudra0075-rudi/470pro/internal/middleware"
	"github.com/Rudra0075-rudi/470pro/internal/monitoring"
	"github.com/Rudra0075-rudi/470pro/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	if err := utils.EnsureJWTReady(); err != nil {
		log.Fatal("JWT configuration error: ", err)
	}

	database.InitDB()
	defer database.CloseDB()
	database.CreateTables()

	monitoring.SetUploadsDir(handlers.UploadsRoot())

	router := gin.Default()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(monitoring.RequestMetricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     resolveAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/api/status", handlers.Status)
	router.GET("/api/status/snapshot", handlers.MonitoringSnapshot)

	router.POST("/signup", handlers.Signup)
	router.POST("/login", handlers.Login)

	// Stored photo files are served straight from the uploads tree; the
	// /uploads/{tripId}/{filename} convention is how photo URLs resolve.
	router.Static("/uploads", handlers.UploadsRoot())

	api := router.Group("/api", middleware.AuthMiddleware())
	{
		api.POST("/trips", handlers.CreateTrip)
		api.GET("/trips", handlers.ListTrips)
		api.GET("/trips/:id", handlers.GetTrip)
		api.PUT("/trips/:id", handlers.UpdateTrip)
		api.DELETE("/trips/:id", handlers.DeleteTrip)

		api.GET("/photos/:tripId/count", handlers.GetPhotoCount)
		api.GET("/photos/:tripId/photos", handlers.ListTripPhotos)
		api.POST("/photos/:tripId/upload", handlers.UploadPhotos)
		api.DELETE("/photos/:photoId", handlers.DeletePhoto)
		api.GET("/photos/download/:photoId", handlers.DownloadPhoto)
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	log.Println("Trip Planner API starting on :" + port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

func resolveAllowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("TRIPPLAN_ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:5500", "http://127.0.0.1:5500"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
