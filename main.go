package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-backend/config"
	"loyalty-backend/database"
	"loyalty-backend/docstore"
	"loyalty-backend/firebase"
	"loyalty-backend/linking"
	"loyalty-backend/logger"
	"loyalty-backend/middleware"
	"loyalty-backend/routes"
	"loyalty-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// openStore connects the configured document store. The returned closer
// releases its connection.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		client, err := firebase.NewFirestore(ctx, cfg.FirebaseProjectID, cfg.Credentials)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.NewFirestoreStore(client)
		return store, store.Close, nil

	case config.BackendPostgres:
		db, err := database.Connect()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store, err := database.NewStore(db)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return store, sqlDB.Close, nil

	case config.BackendMemory:
		return docstore.NewMemoryStore(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown DOCSTORE_BACKEND %q", cfg.Backend)
}

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		logrus.Fatal("Error loading .env file: ", err)
	}
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFile)

	// Validate critical environment variables
	if err := config.ValidateEnv(); err != nil {
		log.Fatal("Environment validation failed: ", err)
	}

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		log.WithError(err).WithField("backend", cfg.Backend).Fatal("Failed to open document store")
	}
	log.WithField("backend", cfg.Backend).Info("Document store ready")

	resolver := linking.NewResolver(store, linking.WithLogger(log))

	if err := utils.RegisterBindingValidators(); err != nil {
		log.Fatal("Failed to register validators: ", err)
	}

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// CORS configuration - filter out empty strings from AllowOrigins
	var origins []string
	for _, o := range []string{cfg.FrontendURL, cfg.DashboardURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
		log.Warn("No CORS origins configured, defaulting to http://localhost:3000")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Setup routes
	routes.SetupRoutes(r, resolver)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Run server in a goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	if err := closeStore(); err != nil {
		log.WithError(err).Error("Error closing document store")
	} else {
		log.Info("Document store closed")
	}

	log.Info("Server exited gracefully")
}
