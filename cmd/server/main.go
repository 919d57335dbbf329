// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tahcohcat/learnquest/config"
	"github.com/tahcohcat/learnquest/internal/api"
	"github.com/tahcohcat/learnquest/internal/database"
	"github.com/tahcohcat/learnquest/internal/logger"
	"github.com/tahcohcat/learnquest/internal/services"
	"github.com/tahcohcat/learnquest/internal/websocket"
)

func main() {
	// Load config from files and environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error reading config: %s", err)
	}
	logger.GlobalLogLevel = logger.LogLevel(cfg.Log.Level)

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The websocket hub doubles as the user-data-changed notifier
	hub := websocket.NewHub()

	// Initialize services
	questionService := services.NewQuestionService(db)
	lessonService := services.NewLessonService(db)
	badgeService := services.NewBadgeService(db, hub)
	userService := services.NewUserService(db, hub)
	catalogService := services.NewCatalogService(db)

	if err := badgeService.SeedDefaultBadges(); err != nil {
		log.Fatalf("Failed to seed badges: %v", err)
	}
	if cfg.Seed.Catalog {
		if err := catalogService.SeedDefaultCatalog(); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
	}

	r := mux.NewRouter()

	// API routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	api.RegisterRoutes(apiRouter, questionService, lessonService, badgeService, userService, catalogService)

	// WebSocket routes
	websocket.RegisterRoutes(r, hub)

	// CORS setup for development
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	log.Printf("🎓 LearnQuest engine starting on port %s", port)
	log.Printf("🗄️ Database: %s", cfg.Database.Path)

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
