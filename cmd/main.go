package main

import (
	"anonchat/backend/internal/api/handler"
	"anonchat/backend/internal/auth"
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	err = db.AutoMigrate(
		&models.User{},
		&models.ChatMessage{},
		&models.SavedChat{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting AnonChat Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg)
	s := storage.NewService(db, rdb)

	// 2. Ініціалізація сервісів
	authSvc := auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL)
	registry := chathub.NewSessionRegistry(s)
	broker := chathub.NewMatchBroker(registry, s)

	// 3. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(authSvc, broker, registry, s)

	r.POST("/signup", h.SignUp)
	r.POST("/login", h.LogIn)
	r.GET("/users/:username", h.GetPublicUserInfo)
	r.GET("/ws/:chat_id", h.JoinChat) // токен передається першим фреймом

	authed := r.Group("/", h.RequireAuth())
	authed.POST("/search", h.StartSearch)
	authed.POST("/search/abort", h.AbortSearch)
	authed.POST("/chats/:chat_id/leave", h.LeaveChat)
	authed.POST("/chats/:chat_id/save", h.SaveChat)
	authed.GET("/saved_chats", h.ListSavedChats)
	authed.GET("/me", h.GetAllUserInfo)
	authed.PUT("/me", h.ModifyUserInfo)

	// 4. Запуск HTTP-сервера
	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
