package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "scoutapi",
	Short: "Scout API server for pest scouting sessions",
	Long: `Scout API server records pest and disease scouting sessions, serves
delta sync to edge devices and builds weekly severity heatmaps.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		slog.SetDefault(newLogger(cfg))
		return nil
	},
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: SCOUT_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: SCOUT_SERVER_ADDR)")
	flags.String("server-url", "", "Public server base URL (env: SCOUT_SERVER_URL)")
	flags.Bool("debug", false, "Enable debug logging (env: SCOUT_DEBUG)")

	for key, flag := range map[string]string{
		"database_url": "db-url",
		"server_addr":  "server-addr",
		"server_url":   "server-url",
		"debug":        "debug",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
