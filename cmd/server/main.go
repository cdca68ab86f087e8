package main

import (
	"os"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/api/handlers"
	"github.com/barre-app/barre/internal/server/api/middleware"
	"github.com/barre-app/barre/internal/server/config"
	"github.com/barre-app/barre/internal/server/crypto"
	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/server/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}

	// Set Gin mode
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open database
	logger.Infof("Opening database: %s", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	queries := database.New(db.DB)

	// Initialize JWT manager
	logger.Infof("Initializing JWT manager...")
	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret, cfg.AccessTokenTTL)
	if err != nil {
		logger.Errorf("Failed to create JWT manager: %v", err)
		os.Exit(1)
	}

	// Initialize Socket.IO server
	logger.Infof("Initializing Socket.IO server...")
	socketIOServer := websocket.NewSocketIOServer(db.DB, jwtManager)
	defer socketIOServer.Close()

	// Create Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Logging middleware
	router.Use(middleware.LoggingMiddleware())

	// Root endpoint - returns plain text for client validation
	router.GET("/", func(c *gin.Context) {
		c.String(200, "Welcome to Barre Server!")
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(queries, jwtManager)
	announcementHandler := handlers.NewAnnouncementHandler(queries, socketIOServer)
	monitor := websocket.NewMonitor(socketIOServer.Registry())

	// Public routes (no auth required)
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", authHandler.PostLogin)
		v1.POST("/auth/refresh", authHandler.PostRefresh)
	}

	// Protected routes (auth required)
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		protected.POST("/classes/:id/announcements", announcementHandler.PostClassAnnouncement)
		protected.POST("/academies/:id/announcements", announcementHandler.PostAcademyAnnouncement)
		protected.GET("/realtime/stats", monitor.HandleStats)
	}

	// Mount Socket.IO endpoint (accessible without HTTP auth; the token is
	// checked at the socket handshake)
	router.Any(websocket.SocketPath, socketIOServer.HandleSocketIO())
	router.Any(websocket.SocketPath+"/*any", socketIOServer.HandleSocketIO())

	// Start HTTP server
	logger.Infof("Barre Server starting on http://localhost%s", cfg.Addr)
	logger.Infof("Database: %s", cfg.DatabasePath)
	logger.Infof("JWT signing enabled (token TTL %s)", cfg.AccessTokenTTL)

	if err := router.Run(cfg.Addr); err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
