// api/router.go
package api

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/api/handlers"
	"github.com/pharmap/pharmap-backend/api/middleware"
	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/places"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(db *sql.DB, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	ratelimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	router.Use(middleware.RateLimitMiddleware(ratelimiter))

	// Every request slides the caller's active-IP window forward.
	router.Use(middleware.ActiveIPTracker(db, cfg.ActiveIPTTL))
	router.Use(middleware.ErrorHandler())

	// Initialize Handlers
	placesClient := places.NewClient(cfg.PlacesAPIKey, cfg.PlacesBaseURL)
	authHandler := handlers.NewAuthHandler(db, cfg)
	searchHandler := handlers.NewSearchHandler(db, cfg, placesClient)
	adminHandler := handlers.NewAdminHandler(db, cfg)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	router.GET("/metrics", middleware.MetricsHandler())
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		apiRoutes.GET("/me", authHandler.Me)
		apiRoutes.GET("/usage", searchHandler.Usage)

		apiRoutes.POST("/searches", searchHandler.CreateSearch)
		apiRoutes.GET("/searches", searchHandler.ListSearches)
		apiRoutes.GET("/searches/:id", searchHandler.GetSearch)
		apiRoutes.GET("/searches/:id/map", searchHandler.GetSearchMap)
		apiRoutes.GET("/searches/:id/coverage-gaps", searchHandler.GetCoverageGaps)
		apiRoutes.GET("/searches/:id/export", searchHandler.ExportSearchCSV)

		adminRoutes := apiRoutes.Group("/admin")
		adminRoutes.Use(middleware.AdminMiddleware())
		{
			adminRoutes.GET("/users", adminHandler.ListUsers)
			adminRoutes.DELETE("/users/:username", adminHandler.DeleteUser)
			adminRoutes.PATCH("/users/:username/credits", adminHandler.AdjustCredits)
			adminRoutes.GET("/active-ips", adminHandler.ListActiveIPs)
		}
	}

	return router
}
