package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"foodshare/config"
	"foodshare/pkg/api"
	"foodshare/pkg/bot"
	"foodshare/pkg/geocode"
	"foodshare/pkg/logger"
	"foodshare/service"
	"foodshare/storage"
	"foodshare/storage/cache"
	"foodshare/storage/memory"
	"foodshare/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stg storage.IStorage
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warning("using in-memory storage, data is lost on restart")
		stg = memory.New()
	default:
		pgStore, err := postgres.New(ctx, cfg, log)
		if err != nil {
			log.Error("failed to connect to postgres", logger.Error(err))
			os.Exit(1)
		}
		stg = pgStore
	}
	defer stg.Close()

	opts := service.OptionsFromConfig(cfg)
	opts.Geocoder = geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderRPS)

	if cfg.RedisHost != "" {
		rdb, err := cache.Connect(ctx, net.JoinHostPort(cfg.RedisHost, cfg.RedisPort), cfg.RedisPassword)
		if err != nil {
			log.Warning("redis unavailable, leaderboard cache disabled", logger.Error(err))
		} else {
			defer rdb.Close()
			opts.LeaderboardCache = cache.NewLeaderboardCache(rdb, cfg.ServiceName+":leaderboard", cfg.LeaderboardCacheTTL)
		}
	}

	var tg *bot.Bot
	if cfg.TelegramBotToken != "" {
		b, err := bot.New(cfg.TelegramBotToken, log.With(logger.String("component", "telegram")))
		if err != nil {
			log.Error("failed to initialize telegram bot", logger.Error(err))
		} else {
			tg = b
			opts.Pusher = tg
		}
	}

	svc := service.New(stg, log, opts)

	if cfg.ReconcileOnStart {
		if _, err := svc.Points().Reconcile(ctx); err != nil {
			log.Error("points reconciliation failed", logger.Error(err))
		}
	}

	if tg != nil {
		tg.Attach(svc)
		go tg.Start()
		defer tg.Stop()
	}

	err := api.RunServer(ctx, cfg.HTTPPort, svc, log, api.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		log.Error("http server stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("shut down")
}
