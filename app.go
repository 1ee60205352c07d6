package main

import (
	"fmt"

	"github.com/Eursukkul/booking-microservice/payment-service/config"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/processor"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/database"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the wiring shared by serve and execute.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	registry  *prometheus.Registry
	publisher *rabbitmq.Publisher
	svc       service.PaymentService
}

// newApp connects to Postgres and, when requirePublisher is set, to
// RabbitMQ. Otherwise a broker outage only disables outcome events.
func newApp(requirePublisher bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var events service.EventPublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, logger)
	switch {
	case err == nil:
		a.publisher = pub
		events = pub
	case requirePublisher:
		a.Close()
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	default:
		logger.Warn("payment_events_disabled", zap.Error(err))
	}

	resolver := service.NewBookingResolver(
		repository.NewUpcomingBookingStore(db),
		repository.NewCompletedBookingStore(db),
	)
	stripe := processor.NewStripeProcessor(processor.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		APIURL:            cfg.StripeAPIURL,
		Currency:          cfg.Currency,
		MaxNetworkRetries: 2,
		Logger:            logger.Named("stripe").Sugar(),
	})

	a.svc = service.NewPaymentService(resolver, repository.NewPaymentMethodRepository(db), stripe, events, service.Options{
		ProcessorTimeout: cfg.ProcessorTimeout,
		LockTTL:          cfg.PaymentLockTTL,
		Metrics:          metrics.NewPayment().MustRegister(a.registry),
	})
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
