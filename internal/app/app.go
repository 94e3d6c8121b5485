// Package app wires configuration into the services used by every entry point.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bnpl-financing-engine/internal/config"
	"bnpl-financing-engine/internal/metrics"
	"bnpl-financing-engine/internal/services/aggregator"
	"bnpl-financing-engine/internal/services/audit"
	"bnpl-financing-engine/internal/services/borrowers"
	"bnpl-financing-engine/internal/services/database"
	"bnpl-financing-engine/internal/services/disbursement"
	"bnpl-financing-engine/internal/services/eligibility"
	"bnpl-financing-engine/internal/services/financing"
	"bnpl-financing-engine/internal/services/lock"
	s3service "bnpl-financing-engine/internal/services/s3"
	"bnpl-financing-engine/internal/services/scoring"
	"bnpl-financing-engine/internal/services/ses"
	"bnpl-financing-engine/internal/utils"
)

const auditBuffer = 256

// App holds the constructed services and the resources to release on shutdown.
type App struct {
	DB        *database.DB
	Store     *database.Store
	Metrics   *metrics.Metrics
	Financing *financing.Service
	Borrowers *borrowers.Directory

	audit *audit.Async
	kafka *audit.KafkaSink
	redis *redis.Client
}

// New connects to the database and builds the financing service. Optional
// integrations (S3, Kafka, Redis, SES) are enabled only when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := utils.GetLogger()

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{
		DB:      db,
		Store:   database.NewStore(db),
		Metrics: metrics.New(),
	}

	sinks := audit.Multi{audit.NewDBSink(a.Store)}

	if cfg.AuditS3Bucket != "" {
		s3, err := s3service.NewService(ctx, cfg.AWSRegion, cfg.AuditS3Bucket)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		sinks = append(sinks, audit.NewS3Sink(s3, "audit"))
		logger.Info("Audit archive enabled", zap.String("bucket", cfg.AuditS3Bucket))
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.kafka = audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditKafkaTopic)
		sinks = append(sinks, a.kafka)
		logger.Info("Audit stream enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.AuditKafkaTopic),
		)
	}

	a.audit = audit.NewAsync(sinks, auditBuffer, a.Metrics)

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = rdb
		locker = lock.NewRedisLocker(rdb, cfg.DisbursementLockTTL)
		logger.Info("Disbursement lock enabled", zap.String("redis", cfg.RedisAddr))
	}

	opts := []financing.Option{
		financing.WithAudit(a.audit),
		financing.WithLocker(locker),
		financing.WithStatements(a.Store),
		financing.WithApplications(a.Store),
		financing.WithRecords(a.Store),
	}

	if cfg.SESSenderEmail != "" && cfg.DisbursementNotifyEmail != "" {
		notifier, err := ses.NewService(ctx, cfg.AWSRegion, cfg.SESSenderEmail, cfg.DisbursementNotifyEmail)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to create SES client: %w", err)
		}
		opts = append(opts, financing.WithNotifier(notifier))
	}

	profiles := aggregator.NewAggregator(a.Store)
	scorer := scoring.NewEngine(a.Store, profiles)
	checker := eligibility.NewEngine(a.Store, profiles, scorer, a.Metrics)
	transactor := disbursement.NewTransactor(a.Store.Disbursements, nil, a.Metrics, cfg.DisbursementMaxRetries)

	a.Financing = financing.NewService(a.Store, checker, transactor, opts...)
	a.Borrowers = borrowers.NewDirectory(a.Store)
	return a, nil
}

// Close drains pending audit events and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.audit != nil {
		errs = append(errs, a.audit.Close(ctx))
	}
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		a.DB.Close()
	}
	return errors.Join(errs...)
}
