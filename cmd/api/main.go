package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"giveaway-engine-backend/internal/common/config"
	"giveaway-engine-backend/internal/common/logger"
	giveawayhttp "giveaway-engine-backend/internal/features/giveaway/delivery/http"
	"giveaway-engine-backend/internal/features/giveaway/notifier"
	"giveaway-engine-backend/internal/features/giveaway/repository"
	memoryrepo "giveaway-engine-backend/internal/features/giveaway/repository/memory"
	redisrepo "giveaway-engine-backend/internal/features/giveaway/repository/redis"
	giveawayservice "giveaway-engine-backend/internal/features/giveaway/service"
	apphttp "giveaway-engine-backend/internal/http"
	redisplatform "giveaway-engine-backend/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("giveaway-engine-backend", cfg.Debug)

	log.Info().Bool("debug", cfg.Debug).Msg("Starting giveaway engine")

	var (
		repo        repository.GiveawayRepository
		redisClient *redisplatform.Client
	)

	rdb, err := redisplatform.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	switch {
	case err == nil:
		redisClient = rdb
		defer rdb.Close()
		repo = redisrepo.NewGiveawayRepository(rdb.Client)
		log.Info().Str("host", cfg.Redis.Host).Int("port", cfg.Redis.Port).Msg("Redis connection established")
	case cfg.Debug:
		// Debug runs fall back to the in-memory store so the engine can be
		// exercised without infrastructure. State does not survive restarts.
		repo = memoryrepo.NewGiveawayRepository()
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory store")
	default:
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	notif := notifier.NewLogNotifier(log.Logger)
	service := giveawayservice.NewGiveawayService(repo, notif, cfg, log.Logger)

	sweeper := giveawayservice.NewSweeper(service, repo, cfg, log.Logger)
	sweeper.Start()
	defer sweeper.Stop()

	handler := giveawayhttp.NewGiveawayHandler(service, log.Logger)
	router := apphttp.NewRouter(cfg, log.Logger, handler, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
