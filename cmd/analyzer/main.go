package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/size-analysis/internal/server"
	"github.com/size-analysis/internal/service"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/telemetry"
	"github.com/size-analysis/pkg/utils"
)

// Version information (injected by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configPath string
	logDir     string
	verbose    bool
)

// binName returns the base name of the current executable
func binName() string {
	return filepath.Base(os.Args[0])
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "size-analyzer",
	Short: "Binary size analysis service",
	Long: `size-analyzer is the long-running HTTP service for module size analysis.

It accepts modules over HTTP, records every run in the history database and
keeps the reports in local or COS storage.`,
	SilenceUsage: true,
	RunE:         runService,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", binName(), Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	bin := binName()
	rootCmd.Example = `  # Start service with config file
  ` + bin + ` -c /etc/size-analysis/config.yaml

  # Log to a file under a custom directory
  ` + bin + ` -c ./config.yaml -d /var/log/size-analyzer

  # Start with verbose output
  ` + bin + ` -c ./config.yaml -v`

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (required)")
	rootCmd.Flags().StringVarP(&logDir, "log-dir", "d", "", "Directory for log files (stdout when empty)")

	rootCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(versionCmd)
}

func newLogger(level utils.LogLevel) (utils.Logger, error) {
	if logDir == "" {
		return utils.NewDefaultLogger(level, os.Stdout), nil
	}
	return utils.NewFileLogger(level, filepath.Join(logDir, "size-analyzer.log"))
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logLevel := utils.ParseLogLevel(cfg.Log.Level)
	if verbose {
		logLevel = utils.LevelDebug
	}
	utils.InitProcess(logLevel, os.Stderr)
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	utils.SetGlobalLogger(logger)

	logger.Info("Starting size-analyzer service...")
	logger.Info("Version: %s, Commit: %s, Built: %s", Version, GitCommit, BuildTime)
	logger.Info("Report version: %s", cfg.Analysis.Version)
	logger.Info("Storage: %s", cfg.Storage.Type)
	if cfg.Database.Enabled {
		logger.Info("Database: %s", cfg.Database.DSN())
	} else {
		logger.Info("Run history disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.FromEnv()
	telCfg.ServiceVersion = Version
	shutdownTelemetry, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	svc, err := service.New(cfg, logger, service.WithTracing(telCfg.Enabled))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Error during shutdown: %v", err)
		}
	}()

	if err := server.New(cfg.Server, svc, logger).Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Service stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
