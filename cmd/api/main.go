package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pharmatrust/pharmacy-api/internal/config"
	alertHandler "github.com/pharmatrust/pharmacy-api/internal/handler/alert"
	authHandler "github.com/pharmatrust/pharmacy-api/internal/handler/auth"
	drugHandler "github.com/pharmatrust/pharmacy-api/internal/handler/drug"
	healthHandler "github.com/pharmatrust/pharmacy-api/internal/handler/health"
	ledgerHandler "github.com/pharmatrust/pharmacy-api/internal/handler/ledger"
	prescriptionHandler "github.com/pharmatrust/pharmacy-api/internal/handler/prescription"
	rbacHandler "github.com/pharmatrust/pharmacy-api/internal/handler/rbac"
	"github.com/pharmatrust/pharmacy-api/internal/middleware"
	"github.com/pharmatrust/pharmacy-api/internal/repository/postgres"
	"github.com/pharmatrust/pharmacy-api/internal/router"
	alertService "github.com/pharmatrust/pharmacy-api/internal/service/alert"
	auditService "github.com/pharmatrust/pharmacy-api/internal/service/audit"
	authService "github.com/pharmatrust/pharmacy-api/internal/service/auth"
	eventService "github.com/pharmatrust/pharmacy-api/internal/service/event"
	inventoryService "github.com/pharmatrust/pharmacy-api/internal/service/inventory"
	ledgerService "github.com/pharmatrust/pharmacy-api/internal/service/ledger"
	prescriptionService "github.com/pharmatrust/pharmacy-api/internal/service/prescription"
	rbacService "github.com/pharmatrust/pharmacy-api/internal/service/rbac"
	"github.com/pharmatrust/pharmacy-api/pkg/auth"
	"github.com/pharmatrust/pharmacy-api/pkg/logger"
	"github.com/pharmatrust/pharmacy-api/pkg/metrics"
	"github.com/pharmatrust/pharmacy-api/pkg/security"
	"github.com/pharmatrust/pharmacy-api/pkg/validator"
)

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

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err, "failed to initialize audit logger")
	}
	defer zapLogger.Sync()
	auditor := auditService.NewService(zapLogger)

	// Repositories
	drugRepo := postgres.NewDrugRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	rbacRepo := postgres.NewRBACRepository(db)
	actorRepo := postgres.NewActorRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	v := validator.New()
	eventSvc := eventService.NewService(outboxRepo, log)

	ctx := context.Background()
	ledgerSvc, err := ledgerService.NewService(ctx, ledgerRepo, log, m)
	if err != nil {
		log.Fatal(err, "failed to load ledger chain head")
	}

	rbacSvc := rbacService.NewService(rbacRepo, auditor)
	if cfg.BootstrapAdminID != "" {
		adminID, err := uuid.Parse(cfg.BootstrapAdminID)
		if err != nil {
			log.Fatal(err, "invalid bootstrap admin id")
		}
		if err := rbacSvc.Bootstrap(ctx, adminID); err != nil {
			log.Fatal(err, "failed to bootstrap administrator")
		}
	}

	inventorySvc := inventoryService.NewService(drugRepo, ledgerSvc, rbacSvc, auditor, eventSvc, v, log, m)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, inventorySvc, rbacSvc, auditor, eventSvc, v, log, m)
	alertSvc := alertService.NewService(drugRepo, time.Duration(cfg.Alerts.ExpiryHorizonDays)*24*time.Hour)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(security.DefaultCost)
	authSvc := authService.NewService(actorRepo, rbacSvc, jwtSvc, hasher, v, auditor)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	r := router.NewRouter(
		authMiddleware,
		healthHandler.NewHandler(db),
		authHandler.NewHandler(authSvc),
		drugHandler.NewHandler(inventorySvc),
		prescriptionHandler.NewHandler(prescriptionSvc),
		ledgerHandler.NewHandler(ledgerSvc),
		alertHandler.NewHandler(alertSvc),
		rbacHandler.NewHandler(rbacSvc),
		registry,
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			MetricsPrefix: "pharmacy_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
