package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"                      // optional .env loading
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // access log and panic recovery
	"github.com/labstack/gommon/log"                // echo's logger

	"github.com/iliyamo/classroom-seating/internal/config"
	"github.com/iliyamo/classroom-seating/internal/database"
	"github.com/iliyamo/classroom-seating/internal/handler"
	"github.com/iliyamo/classroom-seating/internal/middleware"
	"github.com/iliyamo/classroom-seating/internal/queue"
	"github.com/iliyamo/classroom-seating/internal/repository"
	"github.com/iliyamo/classroom-seating/internal/router"
	"github.com/iliyamo/classroom-seating/internal/service"
	"github.com/iliyamo/classroom-seating/internal/store"
	"github.com/iliyamo/classroom-seating/internal/ws"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetPrefix("seating")
	if cfg.Env == "prod" {
		e.Logger.SetLevel(log.INFO)
	} else {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Validator = handler.NewValidator()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		e.Logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		e.Logger.Fatalf("migrate: %v", err)
	}
	cancel()

	// Working sessions live in Redis when it is reachable and in process
	// otherwise. The rate limiter needs Redis and is skipped without it.
	rdb := config.NewRedisClient()
	var backend store.Backend
	if rdb != nil {
		defer rdb.Close()
		backend = store.NewRedisBackend(rdb)
	} else {
		e.Logger.Warn("redis unavailable; sessions are kept in memory and arrange is not rate limited")
		backend = store.NewMemoryBackend()
	}
	sessions := store.NewManager(backend, cfg.Session)

	hub := ws.NewHub()
	go hub.Run(ctx)

	go queue.StartArrangementConsumer(cfg.AMQPURL, cfg.LogDir)
	publisher := service.NewAMQPPublisher(cfg.AMQPURL)

	tokens := repository.NewTokenRepo(db)
	go purgeRefreshTokens(ctx, e.Logger, tokens)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), tokens), cfg.JWTSecret)
	router.RegisterSessions(e, handler.NewSessionHandler(sessions, publisher, hub), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterClassrooms(e, handler.NewClassroomHandler(repository.NewClassroomRepo(db), sessions), cfg.JWTSecret)

	addr := ":" + cfg.Port
	e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}

// purgeRefreshTokens deletes expired refresh tokens once an hour.
func purgeRefreshTokens(ctx context.Context, logger echo.Logger, tokens *repository.TokenRepo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				logger.Warnf("purge refresh tokens: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("purged %d expired refresh tokens", n)
			}
		}
	}
}
