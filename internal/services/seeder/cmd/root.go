// Package main provides the dev-data seeder CLI: it fills a development
// database with crops, sensor readings and presets so the dashboard has
// something to show.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/hydragrow/pod-telemetry/internal/storage"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Seed a development database with pod telemetry data",
	Long: `Seed a development database with fake but plausible data:
- crops: active crops with thresholds and latest readings
- sensor-data: historical measurement buckets per crop
- presets: a handful of named threshold presets`,
	Version: "1.0.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db-host", "localhost", "database host")
	rootCmd.PersistentFlags().Int("db-port", 5432, "database port")
	rootCmd.PersistentFlags().String("db-user", "telemetry", "database user")
	rootCmd.PersistentFlags().String("db-password", "telemetry", "database password")
	rootCmd.PersistentFlags().String("db-name", "telemetry", "database name")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	for _, flag := range []string{"db-host", "db-port", "db-user", "db-password", "db-name", "log-level"} {
		key := "seeder." + strings.ReplaceAll(flag, "-", "_")
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
	viper.SetEnvPrefix("SEEDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// openDB connects using the persistent flags shared by every subcommand.
func openDB() (*gorm.DB, error) {
	log := logger.New(os.Stdout, logger.ParseLevel(viper.GetString("seeder.log_level")))
	return storage.NewDB(&storage.DBConfig{
		Logger:   log,
		Host:     viper.GetString("seeder.db_host"),
		Port:     viper.GetInt("seeder.db_port"),
		User:     viper.GetString("seeder.db_user"),
		Password: viper.GetString("seeder.db_password"),
		DBName:   viper.GetString("seeder.db_name"),
		SSLMode:  "disable",
	})
}
