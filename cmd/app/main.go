package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/common/config"
	"github.com/nevar-bot/nevar-v6-sub000/internal/common/logger"
	banRepo "github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/repository/postgres"
	banService "github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/service"
	giveawayDiscord "github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/delivery/discord"
	giveawayRepo "github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/repository/postgres"
	giveawayService "github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/service"
	levelRepository "github.com/nevar-bot/nevar-v6-sub000/internal/features/level/repository"
	levelRepo "github.com/nevar-bot/nevar-v6-sub000/internal/features/level/repository/postgres"
	levelCache "github.com/nevar-bot/nevar-v6-sub000/internal/features/level/repository/redis"
	reminderRepo "github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/repository/postgres"
	reminderService "github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/service"
	apihttp "github.com/nevar-bot/nevar-v6-sub000/internal/http"
	"github.com/nevar-bot/nevar-v6-sub000/internal/platform/discord"
	"github.com/nevar-bot/nevar-v6-sub000/internal/platform/postgres"
	"github.com/nevar-bot/nevar-v6-sub000/internal/platform/redis"
	"github.com/nevar-bot/nevar-v6-sub000/internal/workers"
)

const schedulerLockKey = "nevar:scheduler:tick"

func main() {
	if err := run(); err != nil {
		logger.Fatal().Err(err).Msg("Service stopped with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.ServiceName, cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		return err
	}
	defer postgresClient.Close()
	db := postgresClient.GetDB()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	session, err := discord.NewSession(cfg.Discord.BotToken)
	if err != nil {
		return err
	}
	discordClient := discord.NewClient(session, logger.Component("discord"))

	var levels levelRepository.LevelRepository = levelRepo.NewPostgresRepository(db)
	if redisClient != nil {
		levels = levelCache.NewCachingRepository(redisClient, levels, logger.Component("level-cache"))
	}

	bans := banService.NewBanService(banRepo.NewPostgresRepository(db), banService.NewCache(), discordClient, logger.Component("bans"))
	reminders := reminderService.NewReminderService(reminderRepo.NewPostgresRepository(db), reminderService.NewCache(), discordClient, logger.Component("reminders"))
	giveaways := giveawayService.NewManager(giveawayRepo.NewPostgresRepository(db), discordClient, discordClient, levels, logger.Component("giveaways"))

	// Caches must be complete before the first tick looks at them.
	n, err := bans.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm ban cache: %w", err)
	}
	logger.Info().Int("bans", n).Msg("Ban cache warmed")
	n, err = reminders.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm reminder cache: %w", err)
	}
	logger.Info().Int("owners", n).Msg("Reminder cache warmed")

	removeHandler := giveawayDiscord.NewHandler(giveaways, logger.Component("interactions")).Register(session)
	defer removeHandler()
	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer session.Close()
	logger.Info().Msg("Discord gateway connected")

	scheduler := workers.NewScheduler(cfg.Scheduler.Interval, logger.Component("scheduler"),
		banService.NewLifter(bans),
		giveawayService.NewFinisher(giveaways),
		reminderService.NewDispatcher(reminders),
	)
	if redisClient != nil {
		scheduler.WithLocker(redis.NewLock(redisClient, schedulerLockKey, cfg.Scheduler.LockTTL))
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	checks := []apihttp.ReadinessCheck{{Name: "postgres", Check: postgresClient.HealthCheck}}
	if redisClient != nil {
		checks = append(checks, apihttp.ReadinessCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	router := apihttp.NewRouter(cfg, logger.Component("http"), apihttp.Services{
		Giveaways: giveaways,
		Bans:      bans,
		Reminders: reminders,
	}, checks...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	return nil
}
