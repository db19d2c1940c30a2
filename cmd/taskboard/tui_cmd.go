package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/board"
	"github.com/fentz26/taskboard/internal/client"
	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive task board",
	RunE:  runTUI,
}

var noStart bool

func init() {
	tuiCmd.Flags().BoolVar(&noStart, "no-start", false, "Do not start a local server when none is reachable")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	days, err := classifier(cfg)
	if err != nil {
		return err
	}

	api := client.New(cfg.APIAddr)
	if !isServerRunning(api) {
		if noStart {
			return fmt.Errorf("task board server not reachable at %s", cfg.APIAddr)
		}
		fmt.Println("Task board server not running. Starting background service...")
		if err := startServer(api); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	// The alternate screen owns the terminal, so logs go to a file.
	logger, closeLog := fileLogger(filepath.Join(config.Dir(), "tui.log"))
	defer closeLog()

	app := tui.New(board.New(api, days, logger))
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isServerRunning(api *client.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := api.Health(ctx)
	return err == nil
}

func startServer(api *client.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"serve"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	cmd := exec.Command(exe, args...)
	// Detach so the server survives the TUI exiting.
	configureServerProc(cmd)

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	out, err := os.OpenFile(filepath.Join(config.Dir(), "server.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	cmd.Stdin = nil
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for server...")
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if isServerRunning(api) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("server started but API not reachable at %s", api.BaseURL())
}

// fileLogger logs to path, falling back to discarding output when the file
// cannot be opened.
func fileLogger(path string) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), func() { f.Close() }
		}
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
}
