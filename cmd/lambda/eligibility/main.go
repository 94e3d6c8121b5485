// Eligibility check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/app"
	"bnpl-financing-engine/internal/config"
	"bnpl-financing-engine/internal/handlers"
	"bnpl-financing-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		utils.GetLogger().Fatal("Failed to start application", zap.Error(err))
	}
	defer application.Close(ctx)

	handler := handlers.NewFinancingHandler(application.Financing)
	lambda.Start(handler.HandleEligibility)
}
