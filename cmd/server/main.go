package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/prodhub/productivity-hub/internal/config"
	"github.com/prodhub/productivity-hub/internal/database"
	"github.com/prodhub/productivity-hub/internal/email"
	"github.com/prodhub/productivity-hub/internal/handler"
	"github.com/prodhub/productivity-hub/internal/middleware"
	"github.com/prodhub/productivity-hub/internal/queue"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/router"
	queue_publisher "github.com/prodhub/productivity-hub/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	prefs := repository.NewPreferenceRepo(db)
	plugins := repository.NewPluginRepo(db)

	// Redis is optional: a nil client disables rate limiting and caching.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and preference cache disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewPreferenceCache(config.LoadCacheConfig(), rdb)

	// Verification mail flows through RabbitMQ; the consumer owns delivery.
	sender := email.NewSender(cfg)
	go func() {
		if err := queue.StartVerificationConsumer(sender); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	authHandler := handler.NewAuthHandler(cfg, users, prefs, queue_publisher.PublishVerificationEmail)
	prefHandler := handler.NewPreferenceHandler(prefs, plugins, cache)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, limiter)
	router.RegisterUser(e, authHandler, prefHandler, middleware.JWTAuth(cfg.JWTSecret, users), cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
