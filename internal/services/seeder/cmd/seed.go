package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydragrow/pod-telemetry/internal/services/seeder"
	"github.com/hydragrow/pod-telemetry/internal/storage"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "Seed active crops with thresholds and latest readings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seeder.Seeder) error {
			return s.Crops(ctx, viper.GetInt("seeder.crop_count"))
		})
	},
}

var sensorDataCmd = &cobra.Command{
	Use:   "sensor-data",
	Short: "Backfill measurement buckets for every active crop",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seeder.Seeder) error {
			return s.SensorData(ctx, viper.GetInt("seeder.history_days"))
		})
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Seed named threshold presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seeder.Seeder) error {
			return s.Presets(ctx)
		})
	},
}

func init() {
	cropsCmd.Flags().Int("count", 4, "number of crops to seed")
	_ = viper.BindPFlag("seeder.crop_count", cropsCmd.Flags().Lookup("count"))

	sensorDataCmd.Flags().Int("days", 7, "days of history to backfill")
	_ = viper.BindPFlag("seeder.history_days", sensorDataCmd.Flags().Lookup("days"))

	rootCmd.AddCommand(cropsCmd, sensorDataCmd, presetsCmd)
}

func withSeeder(ctx context.Context, fn func(context.Context, *seeder.Seeder) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer storage.CloseDB(db)

	log := logger.New(os.Stdout, logger.ParseLevel(viper.GetString("seeder.log_level")))
	return fn(ctx, seeder.New(db, log))
}
