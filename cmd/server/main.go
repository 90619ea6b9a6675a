package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evnet/event-network-api/internal/config"
	"github.com/evnet/event-network-api/internal/database"
	"github.com/evnet/event-network-api/internal/handler"
	mw "github.com/evnet/event-network-api/internal/middleware"
	"github.com/evnet/event-network-api/internal/queue"
	"github.com/evnet/event-network-api/internal/repository"
	"github.com/evnet/event-network-api/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	blacklist := repository.NewBlacklistRepo(db)

	// Expired blacklist rows are already invisible to reads; the sweeper
	// only reclaims storage.
	blacklist.StartSweeper(context.Background(), time.Hour)

	// Audit trail consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartAuthConsumer(); err != nil {
			log.Printf("auth-consumer stopped: %v", err)
		}
	}()

	var scripter redis.Scripter
	if rdb := config.NewRedisClient(); rdb != nil {
		scripter = rdb
	} else {
		log.Printf("redis unavailable: login rate limiting disabled")
	}
	limiter := mw.NewLoginRateLimiter(config.LoadLoginRateLimitConfig(), scripter)
	guard := mw.SessionGuard(cfg.JWTSecret, cfg.SessionTimeout, users, blacklist)

	auth := handler.NewAuthHandler(cfg, users, tokens, blacklist)
	admin := handler.NewAdminHandler(users)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, limiter, guard)
	router.RegisterAdmin(e, admin, guard)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
