package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/logger"
	"github.com/ajitpratap0/prism/pkg/report"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	report.Version = version

	var configPath string
	root := &cobra.Command{
		Use:   "prism",
		Short: "Prism - streaming data profiler",
		Long: `Prism profiles CSV and JSON datasets in a single streaming pass with bounded memory.
Each input yields a report of inferred column types, summary statistics,
approximate quantiles, cardinality, frequent values and data quality signals.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prism v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newProfileCmd(&configPath))
	root.AddCommand(newSniffCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))
	return root
}

// setupLogger builds the process logger from the effective configuration.
func setupLogger(cfg *config.ProfileConfig) (*zap.Logger, error) {
	encoding := cfg.Observability.LogEncoding
	if encoding == "" {
		encoding = "console"
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Encoding:    encoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return nil, err
	}
	return logger.Get(), nil
}
