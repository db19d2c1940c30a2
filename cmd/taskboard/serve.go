package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/controlplane"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/sheets"
	"github.com/fentz26/taskboard/internal/store"
)

var (
	listenAddr string
	taskSource string
	dbDriver   string
	dbDSN      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the task board API server",
	Long:  `Starts the HTTP API that serves task histories, employee metadata and daily logs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides listen)")
	serveCmd.Flags().StringVar(&taskSource, "source", "", "Task source: sheets or sql (overrides task_source)")
	serveCmd.Flags().StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres")
	serveCmd.Flags().StringVar(&dbDSN, "db", "", "Database path or DSN")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if taskSource != "" {
		cfg.TaskSource = taskSource
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	days, err := classifier(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting task board", "source", cfg.TaskSource, "driver", cfg.Database.Driver, "version", version)

	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}

	book, err := openBook(cmd.Context(), cfg, s, logger)
	if err != nil {
		s.Close()
		return err
	}

	service := controlplane.NewService(controlplane.ServiceConfig{
		Book:          book,
		Records:       s,
		Audit:         audit.NewWriter(s, logger),
		Days:          days,
		HistoryWindow: cfg.HistoryWindow,
		Version:       version,
		Logger:        logger,
	})
	server := controlplane.NewServer(service, cfg.Listen, logger)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := s.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// openBook returns the system of record for task histories: the configured
// spreadsheet, or the SQL store itself.
func openBook(ctx context.Context, cfg *config.Config, s *store.Store, logger *slog.Logger) (controlplane.TaskBook, error) {
	if cfg.TaskSource != config.SourceSheets {
		return s, nil
	}
	book, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		Titles: map[models.Group]string{
			models.GroupDev:      cfg.Sheets.DevSheet,
			models.GroupManagers: cfg.Sheets.ManagersSheet,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	return book, nil
}
