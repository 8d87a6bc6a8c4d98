package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := newLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, sweeper := wireServer(db, redisClient, nrApp, cfg, log)

	go sweeper.Run(runCtx)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-runCtx.Done()
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// wireServer wires all dependencies and returns the HTTP server and the
// background sweeper.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logrus.Logger) (*http.Server, *service.StaleSweeper) {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	promoRepo := postgres.NewPromoRepository(db)

	// Push hub.
	hub := ws.NewHub(log)
	go hub.Run()
	notifier := ws.NewNotifier(hub)

	// Services.
	fareCalc := service.NewFareCalculator(cfg.Dispatch.RatePerKm, log)
	promoLedger := service.NewPromoLedger(promoRepo, fareCalc, log)
	matching := service.NewMatchingEngine(driverRepo, locationStore, cfg.Dispatch.SearchRadiusKm, log)
	rideService := service.NewRideService(db, rideRepo, driverRepo, lockStore, matching, fareCalc, promoLedger, notifier, log)
	driverService := service.NewDriverService(driverRepo, locationStore, log)
	emergencyService := service.NewEmergencyService(rideRepo, notifier, log)
	sweeper := service.NewStaleSweeper(rideRepo, lockStore, notifier, cfg.Dispatch.StaleAfter, cfg.Dispatch.SweepInterval, log)

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService, driverService)
	driverHandler := handler.NewDriverHandler(driverService)
	promoHandler := handler.NewPromoHandler(promoLedger)
	emergencyHandler := handler.NewEmergencyHandler(emergencyService)
	wsHandler := handler.NewWSHandler(hub)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:      rideHandler,
		DriverHandler:    driverHandler,
		PromoHandler:     promoHandler,
		EmergencyHandler: emergencyHandler,
		WSHandler:        wsHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
		Log:              log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, sweeper
}
