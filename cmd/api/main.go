package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collab-llm/internal/config"
	"collab-llm/internal/db"
	apihttp "collab-llm/internal/http"
	"collab-llm/internal/llm"
	"collab-llm/internal/repository"
	"collab-llm/internal/service"
	"collab-llm/internal/ws"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	projectRepo := repository.NewPgProjectRepository(pool)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)

	var (
		tokenStore  service.RefreshTokenStore
		aiLimiter   service.AIRateLimiter
		redisClient *redis.Client
	)
	aiWindow := time.Duration(cfg.AIRateWindowSeconds) * time.Second
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			aiLimiter = service.NewRedisAIRateLimiter(redisClient, aiWindow, cfg.AIRateMaxRequests)
		}
		cancel()
	}
	if aiLimiter == nil {
		aiLimiter = service.NewAIRateLimiter(aiWindow, cfg.AIRateMaxRequests)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	userSvc := service.NewUserService(logger, userRepo)
	projectSvc := service.NewProjectService(projectRepo)

	aiTimeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	hub := ws.NewHub(logger)
	trigger := ws.NewCommandTrigger(llmClient, aiLimiter, aiTimeout, logger)
	gateway := ws.NewGateway(logger, jwtSvc, projectSvc, hub, trigger)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	projectHandler := apihttp.NewProjectHandler(logger, projectSvc)
	aiHandler := apihttp.NewAIHandler(logger, llmClient, aiTimeout)
	router := apihttp.NewRouter(logger, jwtSvc, userHandler, projectHandler, aiHandler, gateway)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
