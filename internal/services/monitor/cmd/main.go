package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/notification"
	"github.com/hydragrow/pod-telemetry/internal/services/monitor"
	"github.com/hydragrow/pod-telemetry/internal/storage"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
	"github.com/hydragrow/pod-telemetry/pkg/metrics"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	log := logger.New(os.Stdout, logger.ParseLevel(env("LOG_LEVEL", "info")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDB(&storage.DBConfig{
		Logger:   log,
		Host:     env("DB_HOST", "localhost"),
		Port:     envInt("DB_PORT", 5432),
		User:     env("DB_USER", "telemetry"),
		Password: env("DB_PASSWORD", "telemetry"),
		DBName:   env("DB_NAME", "telemetry"),
		SSLMode:  env("DB_SSLMODE", "disable"),
	})
	if err != nil {
		log.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer storage.CloseDB(db)

	crops := storage.NewCropStore(db)
	buckets := storage.NewBucketStore(db)
	journal := storage.NewJournalStore(db)
	presets := storage.NewPresetStore(db)
	catalog := storage.NewSensorCatalog(db)
	pushSubs := storage.NewSubscriptionStore(db)

	if err := catalog.SeedAll(ctx); err != nil {
		log.Error("sensor catalog seed failed", "error", err)
		os.Exit(1)
	}

	client, err := mqtt.Connect(ctx, mqtt.Config{
		Host:     env("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     env("MQTT_USER", ""),
		Password: env("MQTT_PASSWORD", ""),
		ClientID: env("MQTT_CLIENT_ID", "pod-telemetry-monitor"),
	}, log)
	if err != nil {
		log.Error("broker connection failed", "error", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	ingestMetrics := metrics.NewIngestion(reg)
	clock := clockwork.NewRealClock()

	deliverer := notification.NewDeliverer(pushSubs, notification.VAPIDConfig{
		Subscriber: env("VAPID_SUBSCRIBER", "mailto:ops@hydragrow.io"),
		PublicKey:  env("VAPID_PUBLIC_KEY", ""),
		PrivateKey: env("VAPID_PRIVATE_KEY", ""),
	}, log)

	agg := monitor.NewAggregator(buckets, clock)
	coord, err := monitor.NewCoordinator(monitor.CoordinatorConfig{
		Crops:    crops,
		Journal:  journal,
		Agg:      agg,
		Notifier: deliverer,
		Logger:   log,
		Metrics:  ingestMetrics,
		Clock:    clock,
		Workers:  envInt("INGEST_WORKERS", 8),
	})
	if err != nil {
		log.Error("coordinator setup failed", "error", err)
		os.Exit(1)
	}
	coord.Start(ctx)

	subs := monitor.NewSubscriptionManager(client, coord.HandleMessage, log)
	if err := subs.ResubscribeAll(ctx, crops); err != nil {
		log.Warn("some subscriptions could not be restored", "error", err)
	}

	lifecycle := monitor.NewLifecycle(crops, presets, catalog, client, subs, log, clock)
	control := monitor.NewControlHandler(lifecycle, pushSubs, log)

	mux := http.NewServeMux()
	control.Register(mux)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !client.Connected() {
			http.Error(w, "broker disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         ":" + env("HTTP_PORT", "8080"),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("control server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("control server failed", "error", err)
			stop()
		}
	}()

	// Prune old notification log rows once a day.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
				if err := pushSubs.SweepLogOlderThan(ctx, cutoff); err != nil {
					log.Warn("notification log sweep failed", "error", err)
				}
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("control server shutdown incomplete", "error", err)
	}
	coord.Wait()
	log.Info("stopped")
}
