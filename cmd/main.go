package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	adaptermemory "github.com/voxballot/server/adapters/memory"
	adaptermongo "github.com/voxballot/server/adapters/mongo"
	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/api"
	"github.com/voxballot/server/internal/websocket"
	"github.com/voxballot/server/usecase"
)

func main() {
	// Load environment variables from .env if present; deployed environments
	// configure through real env vars.
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Storage: MongoDB when configured, in-memory otherwise
	var (
		voters      repositories.VoterRepository
		sessions    repositories.SessionRepository
		votes       repositories.VoteRepository
		descriptors repositories.DescriptorRepository
		mongoClient *adaptermongo.Client
	)
	if os.Getenv("MONGODB_URI") != "" {
		client, err := adaptermongo.NewClient(logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = client
		voters = adaptermongo.NewVoterRepository(client.Database)
		sessions = adaptermongo.NewSessionRepository(client.Database)
		votes = adaptermongo.NewVoteRepository(client.Database)
		descriptors = adaptermongo.NewDescriptorRepository(client.Database)
	} else {
		logger.Info("MONGODB_URI not set, using in-memory storage")
		voters = adaptermemory.NewVoterRepository()
		sessions = adaptermemory.NewSessionRepository()
		votes = adaptermemory.NewVoteRepository()
		descriptors = adaptermemory.NewDescriptorRepository()
	}

	// Initialize usecase services
	account := usecase.NewAccountService(voters, sessions, votes, descriptors, logger)

	// Initialize WebSocket hub; each connection gets its own engine session
	hub := websocket.NewHub(account, logger)
	go hub.Run()

	// Background session expiry
	cleanup := websocket.NewSessionCleanupService(sessions, logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Initialize API routes
	api.InitRoutes(e, hub, account, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if mongoClient != nil {
		if err := mongoClient.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
