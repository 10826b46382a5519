package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/offtimeapp/offtime/internal/database"
	"github.com/offtimeapp/offtime/internal/logging"
	"github.com/offtimeapp/offtime/internal/server"
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("OFFTIME_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("OFFTIME_DB_PATH")
	if dbPath == "" {
		dbPath = "offtime.db"
	}

	jwtSecret := os.Getenv("OFFTIME_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("OFFTIME_JWT_SECRET is required")
	}

	uploadDir := os.Getenv("OFFTIME_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		JWTSecret:     jwtSecret,
		TokenDuration: 24 * time.Hour,
		GeminiAPIKey:  os.Getenv("OFFTIME_GEMINI_API_KEY"),
		UploadDir:     uploadDir,
	}, logger)

	// Drop stale rate limiter buckets in the background.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Offtime running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
