// Package main applies the database schema.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"bnpl-financing-engine/internal/config"
	"bnpl-financing-engine/internal/services/database"
	"bnpl-financing-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer utils.Sync()
	logger := utils.GetLogger()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.ApplySchema(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Schema applied", zap.String("database", cfg.DBName))
}
