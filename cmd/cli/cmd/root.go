package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/size-analysis/internal/service"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/pprof"
	"github.com/size-analysis/pkg/telemetry"
	"github.com/size-analysis/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config

	// Pprof flags
	pprofEnabled  bool
	pprofMode     string
	pprofDir      string
	pprofProfiles string
	pprofAddr     string

	pprofSession      *pprof.Session
	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "size-analysis",
	Short: "Binary size analysis for WebAssembly modules",
	Long: `size-analysis explains where the bytes of a WebAssembly module go.

It builds the item graph of a module (functions, data segments, types and
other entities with the references between them), computes the dominator
tree with retained sizes, and lists the items no root can reach. Item graphs
can also be supplied as JSON or YAML documents. A separate converter turns
key/value tape text into JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = utils.LevelDebug
		}
		utils.InitProcess(level, os.Stderr)
		logger = utils.NewDefaultLogger(level, os.Stderr)
		if cfg.Log.OutputPath != "" {
			fileLogger, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
			logger = fileLogger
		}
		utils.SetGlobalLogger(logger)

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), nil)
		if err != nil {
			return err
		}

		if pprofEnabled {
			pcfg, err := buildPprofConfig()
			if err != nil {
				return err
			}
			pprofSession, err = pprof.Start(pcfg, logger)
			if err != nil {
				return err
			}
			logger.Info("pprof collection started (mode: %s)", pcfg.Mode)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pprofSession != nil {
			logger.Info("Stopping pprof collection...")
			if err := pprofSession.Stop(); err != nil {
				logger.Warn("Failed to stop pprof collection: %v", err)
			}
			if dir := pprofSession.Dir(); dir != "" {
				logger.Info("pprof data saved to: %s", dir)
			}
			pprofSession = nil
		}
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(context.WithoutCancel(cmd.Context())); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Profile this process while it runs")
	rootCmd.PersistentFlags().StringVar(&pprofMode, "pprof-mode", "file", "Pprof mode: file or http")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for pprof data")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")
	rootCmd.PersistentFlags().StringVar(&pprofAddr, "pprof-addr", ":6060", "HTTP listen address for http mode")

	binName := BinName()
	rootCmd.Example = `  # Analyze a module and print the report
  ` + binName + ` analyze app.wasm

  # Analyze several modules into a directory, four at a time
  ` + binName + ` analyze -o ./reports -j 4 a.wasm b.wasm c.wasm

  # Convert tape text to JSON
  ` + binName + ` convert -i save.txt --duplicate-keys group

  # Serve the HTTP API
  ` + binName + ` serve --addr :8080`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

func buildPprofConfig() (pprof.Config, error) {
	profiles, err := pprof.ParseProfileTypes(pprofProfiles)
	if err != nil {
		return pprof.Config{}, err
	}
	pcfg := pprof.Config{
		Mode:     pprof.Mode(strings.ToLower(pprofMode)),
		Dir:      pprofDir,
		Addr:     pprofAddr,
		Profiles: profiles,
	}
	return pcfg, pcfg.Validate()
}

// newService creates the application service. Storage and the history
// database are only opened when initialize is set.
func newService(ctx context.Context, initialize bool) (*service.Service, error) {
	svc, err := service.New(cfg, GetLogger(), service.WithTracing(telemetry.FromEnv().Enabled))
	if err != nil {
		return nil, err
	}
	if initialize {
		if err := svc.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return svc, nil
}
