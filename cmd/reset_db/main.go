package main

import (
	"context"

	"foodshare/config"
	"foodshare/pkg/logger"
	"foodshare/storage/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)
	ctx := context.Background()

	pg, err := postgres.New(ctx, cfg, log)
	if err != nil {
		panic(err)
	}
	defer pg.Close()

	if err := pg.Reset(ctx); err != nil {
		log.Error("failed to truncate tables", logger.Error(err))
		return
	}
	log.Info("truncated users, donations, notifications and point_awards")
}
