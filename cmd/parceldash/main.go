// Package main provides the parceldash CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/logging"
)

var (
	// configDir is set by the --config flag.
	configDir string

	// logger is initialized in initConfig and shared by all commands.
	logger *slog.Logger

	// dbLogger feeds the storage and stats layers.
	dbLogger zerolog.Logger

	// logFile is the session log file, shared with telemetry export.
	logFile *os.File
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "parceldash",
	Short: "Parceldash is the parcel dashboard backend",
	Long: `Parceldash serves the district dashboard: it persists drawn
annotations and population records, bridges the map surface over
WebSocket, and syncs location data from the hosted feature service.`,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing parceldash.cfg.json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("parceldash v0.1.0")
	},
}

// initConfig loads configuration and sets up logging.
func initConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if err := config.Load(configDir); err != nil {
		return err
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	logPath := logging.LogFilePath(logsDir, "parceldash", time.Now())
	var err error
	logFile, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mgr := logging.NewSlogManager()
	mgr.Setup(logFile, config.GetString("logLevel"), nil)
	logger = mgr.Logger()

	dbLogger = zerolog.New(logFile).With().Timestamp().Logger()
	return nil
}

func influxBackupPath() string {
	return filepath.Join(config.GetString("logsDir"), "influx_backup.gz")
}
