package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	. "lynck-space/internal"
	"lynck-space/internal/access"
	"lynck-space/internal/config"
	"lynck-space/internal/nonce"
	"lynck-space/internal/storage"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Lynck Space API server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		fmt.Println("Starting Lynck Space server...")
		ServerMain(ctx, provider)
	},
}

// Initialize logger
func initLogger(cfg *config.Config) *slog.Logger {
	// Determine level from config and set it on the handler options.
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		println("Invalid log level in config, defaulting to INFO")
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	slog.Debug("Logger initialized", "level", level.String())
	return logger
}

func LoadPlanPolicy(cfg *config.Config) *access.Plans {
	plans := access.GetPlans()
	if err := plans.LoadPolicy(cfg.Plans.PolicyFile); err != nil {
		slog.Error("Failed to load plan policy", "error", err, "file", cfg.Plans.PolicyFile)
		os.Exit(1)
	}
	return plans
}

func ServerMain(ctx context.Context, storageProvider storage.Provider) {

	if config.Cfg == nil {
		panic("Config not initialized.")
	}

	// Use the provider passed from cobra command (already initialized)
	if storageProvider == nil {
		slog.Error("Storage provider is nil")
		os.Exit(1)
	}

	nonce.InitNonceStore(config.Cfg, storageProvider)

	LoadPlanPolicy(config.Cfg)

	server := HTTPServer(storageProvider)

	server.Run()
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
