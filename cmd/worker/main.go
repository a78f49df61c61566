package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pharmatrust/pharmacy-api/internal/config"
	"github.com/pharmatrust/pharmacy-api/internal/email"
	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository/postgres"
	alertService "github.com/pharmatrust/pharmacy-api/internal/service/alert"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/messaging"
	"github.com/pharmatrust/pharmacy-api/pkg/messaging/redis"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/worker"
)

// expiryScanInterval is how often the worker sweeps inventory for drugs
// approaching their expiry date.
const expiryScanInterval = 6 * time.Hour

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
	}, log, m)

	drugRepo := postgres.NewDrugRepository(db)
	alerts := alertService.NewService(drugRepo, time.Duration(cfg.Alerts.ExpiryHorizonDays)*24*time.Hour)
	mailer := email.NewSMTPService(cfg.SMTP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go notifyLowStock(ctx, broker, mailer, log)
	go scanExpiring(ctx, alerts, mailer, log)

	log.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worker...")
	cancel()
}

// notifyLowStock emails the pharmacy contact for every low stock event the
// outbox publishes.
func notifyLowStock(ctx context.Context, broker messaging.Broker, mailer email.Service, log *logger.Logger) {
	messages, err := broker.Subscribe(ctx, model.EventLowStockAlert)
	if err != nil {
		log.Error(err, "failed to subscribe to low stock alerts")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}

			var msg messaging.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Error(err, "failed to decode broker message")
				continue
			}

			var drug model.Drug
			if err := json.Unmarshal(msg.Payload, &drug); err != nil {
				log.Error(err, "failed to decode low stock payload")
				continue
			}

			if err := mailer.SendLowStockAlert(ctx, &drug); err != nil {
				log.Error(err, "failed to send low stock email", "drug_id", drug.ID)
				continue
			}
			log.Info("sent low stock alert", "drug_id", drug.ID, "stock", drug.StockQuantity)
		}
	}
}

// scanExpiring periodically emails about batches that expire within the
// configured horizon.
func scanExpiring(ctx context.Context, alerts *alertService.Service, mailer email.Service, log *logger.Logger) {
	ticker := time.NewTicker(expiryScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alerts.Flush()
			drugs, err := alerts.ExpiringSoon(ctx)
			if err != nil {
				log.Error(err, "failed to scan for expiring drugs")
				continue
			}
			for _, drug := range drugs {
				if err := mailer.SendExpiryAlert(ctx, drug); err != nil {
					log.Error(err, "failed to send expiry email", "drug_id", drug.ID)
				}
			}
		}
	}
}
