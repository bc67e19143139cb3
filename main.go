package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dailyCheckAPI/bot"
	"dailyCheckAPI/handlers"
	"dailyCheckAPI/internal/achievement"
	"dailyCheckAPI/internal/store"
	"dailyCheckAPI/middleware"
	"dailyCheckAPI/services"

	_ "net/http/pprof"
)

var (
	userStore    *store.Store
	gameService  *services.GamificationService
	statsService *services.StatsService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := store.Config{
		DataDir:         envOr("DATA_DIR", "./data"),
		BackupDir:       envOr("BACKUP_DIR", "./backups"),
		CacheCapacity:   envIntOr("MAX_USERS_CACHE", 100),
		FlushInterval:   time.Duration(envIntOr("FLUSH_INTERVAL_MINUTES", 5)) * time.Minute,
		MaxBackups:      envIntOr("MAX_BACKUPS", 10),
		CompressBackups: os.Getenv("COMPRESS_BACKUPS") == "true",
	}

	var err error
	userStore, err = store.Open(cfg)
	if err != nil {
		log.Fatal("Failed to open the user store:", err)
	}
	if userStore.Degraded() {
		log.Println("WARNING: store is degraded, serving reads only")
	}

	engine := achievement.NewEngine(achievement.DefaultRegistry())
	gameService = services.NewGamificationService(userStore, engine)
	statsService = services.NewStatsService(gameService)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing the user store...")
		if err := userStore.Close(); err != nil {
			log.Printf("Store close error: %v", err)
		}
	}()

	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		tgBot, err := bot.New(token, gameService, statsService)
		if err != nil {
			log.Fatal("Failed to start the telegram bot:", err)
		}
		go tgBot.Run(botCtx)
	} else {
		log.Println("BOT_TOKEN not set, telegram bot disabled")
	}

	userHandler := handlers.NewUserHandler(gameService, statsService)
	adminHandler := handlers.NewAdminHandler(userStore)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", adminHandler.Health).Methods("GET")

	// -------------------------------------------------------------------------
	// API SUBROUTER (REQUIRES THE DASHBOARD TOKEN)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.TokenAuthMiddleware)

	api.HandleFunc("/users/{id}", userHandler.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}/stats", userHandler.GetStats).Methods("GET")
	api.HandleFunc("/users/{id}/achievements", userHandler.GetAchievements).Methods("GET")
	api.HandleFunc("/users/{id}/calendar", userHandler.GetCalendar).Methods("GET")
	api.HandleFunc("/users/{id}/weekly", userHandler.GetWeekly).Methods("GET")
	api.HandleFunc("/users/{id}/settings", userHandler.UpdateSettings).Methods("PUT")
	api.HandleFunc("/users/{id}/notes", userHandler.UpdateNotes).Methods("PUT")
	api.HandleFunc("/users/{id}/goals/weekly", userHandler.SetWeeklyGoal).Methods("PUT")
	api.HandleFunc("/users/{id}/export", userHandler.ExportUser).Methods("GET")

	api.HandleFunc("/users/{id}/tasks", userHandler.ListTasks).Methods("GET")
	api.HandleFunc("/users/{id}/tasks", userHandler.CreateTask).Methods("POST")
	api.HandleFunc("/users/{id}/tasks/{taskID}", userHandler.DeleteTask).Methods("DELETE")
	api.HandleFunc("/users/{id}/tasks/{taskID}/complete", userHandler.CompleteTask).Methods("POST")
	api.HandleFunc("/users/{id}/tasks/{taskID}/uncomplete", userHandler.UncompleteTask).Methods("POST")
	api.HandleFunc("/users/{id}/tasks/{taskID}/{action:pause|resume|archive}", userHandler.TransitionTask).Methods("POST")

	api.HandleFunc("/admin/store", adminHandler.StoreStats).Methods("GET")
	api.HandleFunc("/admin/backups", adminHandler.ListBackups).Methods("GET")
	api.HandleFunc("/admin/backup", adminHandler.CreateBackup).Methods("POST")
	api.HandleFunc("/admin/restore", adminHandler.RestoreBackup).Methods("POST")
	api.HandleFunc("/admin/flush", adminHandler.Flush).Methods("POST")
	api.HandleFunc("/admin/users", adminHandler.SearchUsers).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	botCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, v)
	}
	return n
}
