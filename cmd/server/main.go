package main

import (
	"log"
	"net/http"
	"os"

	"github.com/amgad21/BlipVerse/internal/config"
	"github.com/amgad21/BlipVerse/internal/db"
	"github.com/amgad21/BlipVerse/internal/handlers"
	"github.com/amgad21/BlipVerse/internal/hub"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger := log.New(os.Stdout, "blipverse: ", log.LstdFlags|log.Lshortfile)

	// Initialize repository
	repo, err := db.NewRepository(cfg)
	if err != nil {
		logger.Fatalf("Database initialization error: %v", err)
	}
	defer repo.Close()

	// Run migrations
	if err := repo.RunMigrations(); err != nil {
		logger.Fatalf("Migration error: %v", err)
	}

	// Committed writes flow to the hub in commit order.
	feedHub := hub.New()
	repo.SetPublisher(feedHub)

	router := handlers.NewRouter(cfg, repo, feedHub, logger)

	// Start server
	logger.Printf("Server started at http://localhost:%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		logger.Fatalf("Server start error: %v", err)
	}
}
