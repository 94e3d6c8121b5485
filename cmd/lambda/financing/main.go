// Financing Lambda entry point. Serves the loan, application, audit trail and
// statement routes behind API Gateway, dispatching on the resource path.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
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
	lambda.Start(func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		switch request.Resource {
		case "/api/loans/{id}":
			return handler.HandleLoan(ctx, request)
		case "/api/applications":
			return handler.HandleCreateApplication(ctx, request)
		case "/api/orders/{id}/audit-logs":
			return handler.HandleAuditTrail(ctx, request)
		case "/api/borrowers/{id}/transactions":
			return handler.HandleTransactions(ctx, request)
		default:
			return handler.HandleCreateLoan(ctx, request)
		}
	})
}
