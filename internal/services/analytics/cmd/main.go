package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/jonboulle/clockwork"

	"github.com/hydragrow/pod-telemetry/internal/services/analytics"
	"github.com/hydragrow/pod-telemetry/internal/storage"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
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

	influxClient := influxdb2.NewClient(env("INFLUX_URL", "http://localhost:8086"), env("INFLUX_TOKEN", ""))
	defer influxClient.Close()
	writeAPI := influxClient.WriteAPI(env("INFLUX_ORG", "hydragrow"), env("INFLUX_BUCKET", "daily-averages"))
	writer := analytics.NewInfluxWriter(writeAPI, log)

	rollup := analytics.NewRollup(
		storage.NewCropStore(db),
		storage.NewBucketStore(db),
		storage.NewAnalyticsStore(db),
		writer,
		log,
		clockwork.NewRealClock(),
	)

	// Catch up on yesterday before settling into the daily schedule.
	if err := rollup.RunOnce(ctx, time.Now().UTC().Add(-24*time.Hour)); err != nil {
		log.Warn("catch-up rollup finished with errors", "error", err)
	}

	rollup.Start(ctx)

	writer.Flush()
	log.Info("stopped")
}
