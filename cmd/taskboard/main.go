package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/daylabel"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Taskboard - daily employee task board",
	Long: `Taskboard tracks each employee's daily tasks in three buckets (to do, pending, complete)
and serves them over HTTP from a Google Sheet or a SQL database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	cfgPath string
	apiAddr string
	verbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "API server address (overrides api_addr)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(boardCmd, moveCmd, submitCmd, todayCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if apiAddr != "" {
		cfg.APIAddr = apiAddr
	}
	return cfg, nil
}

// textLogger logs human-readable lines to stderr for interactive commands.
func textLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// classifier builds the day classifier for the configured zone.
func classifier(cfg *config.Config) (*daylabel.Classifier, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return daylabel.NewWithClock(time.Now, loc), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
