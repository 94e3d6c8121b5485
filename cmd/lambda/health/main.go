// Health Check Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/config"
	"bnpl-financing-engine/internal/handlers"
	"bnpl-financing-engine/internal/services/database"
	"bnpl-financing-engine/internal/utils"
)

func main() {
	// Initialize logger
	_ = utils.InitLogger("info")
	defer utils.Sync()

	// The health check still answers when the database is unreachable.
	var pinger handlers.Pinger
	if cfg, err := config.Load(); err == nil {
		if db, err := database.New(cfg); err == nil {
			defer db.Close()
			pinger = db
		} else {
			utils.GetLogger().Warn("Database unavailable", zap.Error(err))
		}
	}

	lambda.Start(handlers.NewHealthHandler(pinger).Handle)
}
