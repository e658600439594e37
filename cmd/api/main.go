package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"groupcast/internal/config"
	"groupcast/internal/handler"
	"groupcast/internal/middleware"
	"groupcast/internal/queue"
	"groupcast/internal/repository"
	"groupcast/internal/service"
	"groupcast/internal/validation"
)

const version = "1.0.0"

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Verify database connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	// Connect to Redis. Rate limiting fails open when Redis is down, so an
	// unreachable Redis degrades the API instead of stopping it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable: %v (rate limiting disabled until it recovers)", err)
	} else {
		log.Println("✅ Connected to Redis")
	}
	cancel()

	// Connect to RabbitMQ
	conn, err := queue.NewConnection(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	// Create publisher
	publisher, err := queue.NewPublisher(conn, cfg.Queue.Name)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer publisher.Close()

	// Initialize repositories
	groupRepo := repository.NewGroupRepository(db)
	contactRepo := repository.NewContactRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Initialize services
	validator := validation.NewValidator(validation.DefaultPolicy())
	groupService := service.NewGroupService(groupRepo)
	contactService := service.NewContactService(contactRepo)
	memberService := service.NewMemberService(memberRepo, contactRepo, groupRepo, db)
	messageService := service.NewMessageService(messageRepo, memberRepo, groupRepo, snapshotRepo, validator, publisher, db)
	exportService := service.NewExportService()
	healthService := service.NewHealthService(db, cfg.GetRabbitMQURL(), redisClient, version)
	log.Println("✅ Services initialized")

	// Initialize handlers
	groupHandler := handler.NewGroupHandler(groupService)
	contactHandler := handler.NewContactHandler(contactService)
	memberHandler := handler.NewMemberHandler(memberService, exportService)
	messageHandler := handler.NewMessageHandler(messageService)
	healthHandler := handler.NewHealthHandler(healthService)

	// Create router
	router := mux.NewRouter()
	router.Use(middleware.Recovery)

	// Health endpoint stays outside authentication
	router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")

	// Authenticated API routes
	api := router.NewRoute().Subrouter()
	api.Use(middleware.Requester)
	api.Use(middleware.RateLimit(redisClient, cfg.Server.RateLimitPerMinute))

	// Group routes
	api.HandleFunc("/groups", groupHandler.Create).Methods("POST")
	api.HandleFunc("/groups", groupHandler.List).Methods("GET")
	api.HandleFunc("/groups/{id}", groupHandler.GetByID).Methods("GET")
	api.HandleFunc("/groups/{id}", groupHandler.Update).Methods("PUT")
	api.HandleFunc("/groups/{id}", groupHandler.Archive).Methods("DELETE")
	api.HandleFunc("/groups/{id}/channels/{channel}", groupHandler.ConnectChannel).Methods("POST")
	api.HandleFunc("/groups/{id}/channels/{channel}", groupHandler.DisconnectChannel).Methods("DELETE")

	// Contact routes
	api.HandleFunc("/contacts", contactHandler.Create).Methods("POST")
	api.HandleFunc("/contacts", contactHandler.List).Methods("GET")
	api.HandleFunc("/contacts/{id}", contactHandler.GetByID).Methods("GET")
	api.HandleFunc("/contacts/{id}", contactHandler.Update).Methods("PUT")
	api.HandleFunc("/contacts/{id}", contactHandler.Delete).Methods("DELETE")

	// Member routes. Export registers before the contactID route so the
	// literal "export" segment is not swallowed by the path variable.
	api.HandleFunc("/groups/{id}/members/export", memberHandler.Export).Methods("GET")
	api.HandleFunc("/groups/{id}/members", memberHandler.List).Methods("GET")
	api.HandleFunc("/groups/{id}/members", memberHandler.AddBatch).Methods("POST")
	api.HandleFunc("/groups/{id}/members/{contactID}", memberHandler.Upsert).Methods("PUT")
	api.HandleFunc("/groups/{id}/members/{contactID}", memberHandler.Delete).Methods("DELETE")

	// Message routes
	api.HandleFunc("/groups/{id}/messages", messageHandler.Create).Methods("POST")
	api.HandleFunc("/groups/{id}/messages", messageHandler.List).Methods("GET")
	api.HandleFunc("/messages/{id}", messageHandler.GetByID).Methods("GET")
	api.HandleFunc("/messages/{id}", messageHandler.Update).Methods("PUT")
	api.HandleFunc("/messages/{id}", messageHandler.Delete).Methods("DELETE")
	api.HandleFunc("/messages/{id}/dispatch", messageHandler.Dispatch).Methods("POST")
	api.HandleFunc("/messages/{id}/recipients", messageHandler.Recipients).Methods("GET")

	// Start server
	port := ":" + cfg.Server.Port
	log.Printf("🚀 API Server starting on port %s", port)
	log.Printf("📍 Health check: http://localhost%s/health", port)
	log.Printf("🌍 Environment: %s", cfg.Env)

	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
