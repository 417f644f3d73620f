package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonanFr/FindTheBug/internal/config"
	"github.com/LeonanFr/FindTheBug/internal/database"
	"github.com/LeonanFr/FindTheBug/internal/game"
	"github.com/LeonanFr/FindTheBug/internal/handlers"
	"github.com/LeonanFr/FindTheBug/internal/middleware"
	"github.com/LeonanFr/FindTheBug/internal/services"
	"github.com/LeonanFr/FindTheBug/internal/storage"
	"github.com/LeonanFr/FindTheBug/internal/taskqueue"
	"github.com/LeonanFr/FindTheBug/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	store := storage.NewStore(db)
	hub := ws.NewHub()
	queue := taskqueue.New(cfg.TaskWorkers)

	engine := game.NewEngine(store)
	authService := services.NewAuthService(db, cfg.JWTSecret)
	lobbyService := services.NewLobbyService(store)

	authHandler := handlers.NewAuthHandler(authService)
	caseHandler := handlers.NewCaseHandler(store)
	sessionHandler := handlers.NewSessionHandler(engine, store)
	gameHandler := handlers.NewGameHandler(engine, store, lobbyService, hub, queue, cfg.DefaultCaseID)

	go func() {
		ttl := time.Duration(cfg.LobbyTTLMinutes) * time.Minute
		for range time.Tick(time.Minute) {
			gameHandler.CleanupExpiredLobbies(ttl)
		}
	}()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws", gameHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/cases", caseHandler.ListCases)
		api.GET("/cases/:id", caseHandler.GetCase)
		api.POST("/cases", middleware.JWTAuth(authService), caseHandler.CreateCase)

		sessions := api.Group("/sessions")
		{
			sessions.POST("/:id/action", sessionHandler.SubmitAction)
			sessions.GET("/:id/state", sessionHandler.GetState)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("server starting on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// Queued game work still drains before exit.
	queue.Stop()
}
