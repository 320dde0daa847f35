package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/auth"
	"github.com/ukydev/logistics-tracker/internal/config"
	"github.com/ukydev/logistics-tracker/internal/dataservice"
	"github.com/ukydev/logistics-tracker/internal/db"
	"github.com/ukydev/logistics-tracker/internal/handlers"
	mockstore "github.com/ukydev/logistics-tracker/internal/mock"
	"github.com/ukydev/logistics-tracker/internal/offline"
	"github.com/ukydev/logistics-tracker/internal/session"
	"github.com/ukydev/logistics-tracker/internal/simulator"
	"github.com/ukydev/logistics-tracker/internal/storage"
	"github.com/ukydev/logistics-tracker/internal/telemetry"
)

const redisKeyPrefix = "tracker:"

// openStorage builds the key-value store for sessions, OTPs and offline queues.
func openStorage(cfg config.Config) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case "redis":
		client, err := storage.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStore(client, redisKeyPrefix), func() { client.Close() }, nil
	case "file", "":
		fs, err := storage.NewFileStore(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// openRemote connects the remote store when the master flag is on. An
// unreachable database leaves the service on mock data.
func openRemote(cfg config.Config) (dataservice.Backend, func()) {
	if !cfg.Flags.Enabled {
		log.Info("Remote backend disabled, serving mock data")
		return nil, func() {}
	}
	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Warn("MongoDB unavailable, serving mock data")
		return nil, func() {}
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return db.NewMongoStore(client.Database(cfg.MongoDB)), func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}
}

// startIngestor applies positions arriving over MQTT. Without a broker it is a no-op.
func startIngestor(ctx context.Context, cfg config.Config, updater telemetry.LocationUpdater) func() {
	if cfg.MQTTBroker == "" {
		return func() {}
	}
	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.WithError(err).Warn("MQTT unavailable, position ingest disabled")
		return func() {}
	}
	if err := telemetry.NewIngestor(client, cfg.MQTTTopicPrefix, updater).Start(ctx); err != nil {
		log.WithError(err).Warn("MQTT subscribe failed")
	}
	return func() { client.Disconnect(250) }
}

func run(ctx context.Context, cfg config.Config) error {
	kv, closeStorage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStorage()

	remote, closeRemote := openRemote(cfg)
	defer closeRemote()

	fixtures := mockstore.NewStore(mockstore.WithDelayScale(cfg.MockDelayScale))
	data := dataservice.New(cfg.Flags, fixtures, remote)

	authService := auth.NewService(auth.Options{
		JWTSecret:  cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		DevMode:    cfg.OTPDevMode,
		DevCode:    cfg.OTPDevCode,
	}, kv, auth.LogSender{})

	deps := handlers.Deps{
		Auth:       authService,
		Sessions:   session.NewStore(kv),
		Data:       data,
		Queue:      offline.NewQueue(kv, data),
		TrustProxy: cfg.TrustProxy,
	}

	if cfg.SimEnabled {
		sim := simulator.New(fixtures, mockstore.RoutePolyline, simulator.WithInterval(cfg.SimTick))
		if err := sim.Start(ctx); err != nil {
			log.WithError(err).Warn("Position simulator not started")
		} else {
			deps.Positions = sim
		}
	}

	stopIngest := startIngestor(ctx, cfg, data)
	defer stopIngest()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":   cfg.Port,
			"remote": data.RemoteEnabled(),
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Tracker stopped")
	}
}
