package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/internal/pipeline"
	"github.com/ajitpratap0/prism/pkg/compression"
	"github.com/ajitpratap0/prism/pkg/config"
	prismerrors "github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/metrics"
	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/report"
	"github.com/ajitpratap0/prism/pkg/session"
	"github.com/ajitpratap0/prism/pkg/source"
	"github.com/ajitpratap0/prism/pkg/types"
)

// inputFs is the filesystem local inputs and output files are resolved on.
var inputFs = afero.NewOsFs()

type profileOptions struct {
	output      string
	outFile     string
	pretty      bool
	summary     bool
	concurrency int
	region      string
	anonymous   bool
	mmap        bool
	hints       map[string]string
}

func newProfileCmd(configPath *string) *cobra.Command {
	opts := &profileOptions{}
	defaults := config.NewProfileConfig()

	cmd := &cobra.Command{
		Use:   "profile [flags] <input>...",
		Short: "Profile one or more CSV or JSON inputs",
		Long: `Profile reads each input once and prints a report per input.
An input is a local path, "-" for stdin, an s3:// or gs:// object URL, or an
http(s):// URL.
Compressed inputs are detected from their leading bytes or extension.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverrides(*configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runProfile(cmd, cfg, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "json", "Report encoding (json, yaml)")
	f.StringVar(&opts.outFile, "out-file", "", "Write reports to a file; a .gz/.zst/.lz4 extension compresses it")
	f.BoolVar(&opts.pretty, "pretty", true, "Indent JSON output")
	f.BoolVar(&opts.summary, "summary", false, "Print a short human-readable summary to stderr")
	f.IntVar(&opts.concurrency, "concurrency", 4, "Maximum inputs profiled at once")
	f.StringVar(&opts.region, "region", "", "Object store region for s3:// inputs")
	f.BoolVar(&opts.anonymous, "anonymous", false, "Read object store inputs without credentials")
	f.BoolVar(&opts.mmap, "mmap", false, "Memory-map local inputs instead of reading them")
	f.StringToStringVar(&opts.hints, "hint", nil, "Force a column type, e.g. --hint id=integer")

	f.Int("sample-window", defaults.Sampling.SampleWindowSize, "Observations per column inspected before its type locks")
	f.Float64("majority", defaults.Sampling.MajorityThreshold, "Share a type must exceed to be locked")
	f.String("quantile-backend", defaults.Sketches.QuantileBackend, "Quantile sketch (tdigest, ddsketch)")
	f.Int("quantile-capacity", defaults.Sketches.QuantileSketchCapacity, "t-digest compression")
	f.Int("hll-precision", defaults.Sketches.CardinalityRegisterBits, "HyperLogLog precision (4-18)")
	f.Int("topk", defaults.Sketches.TopKWidth, "Top values kept per column")
	f.String("format", defaults.Input.Format, "Input format (auto, csv, json, avro)")
	f.String("delimiter", "", "Force the field delimiter")
	f.Bool("header", true, "Force header presence (default: sniffed)")
	f.Int("chunk-size", defaults.Input.ChunkSize, "Read size in bytes")
	f.String("compression", defaults.Input.Compression, "Input compression (auto, none, gzip, zstd, lz4, s2, snappy, deflate)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address while profiling")
	f.Bool("trace", false, "Export OpenTelemetry spans to stderr")

	return cmd
}

func runProfile(cmd *cobra.Command, cfg *config.ProfileConfig, opts *profileOptions, args []string) error {
	log, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	hints, err := parseHints(opts.hints)
	if err != nil {
		return err
	}
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unsupported output encoding %q", opts.output)
	}
	srcOpts, err := source.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	srcOpts.Region = opts.region
	srcOpts.Anonymous = opts.anonymous
	srcOpts.Logger = log

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(observability.DefaultTracingConfig(version))
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}
	if cfg.Observability.EnableMetrics && cfg.Observability.MetricsAddr != "" {
		srv := startMetricsServer(cfg.Observability.MetricsAddr, log)
		defer srv.Close()
	}

	jobs := make([]pipeline.Job, len(args))
	for i, arg := range args {
		jobs[i] = pipeline.Job{
			Name:  arg,
			Open:  opener(ctx, cmd.InOrStdin(), arg, srcOpts, opts.mmap),
			Hints: hints,
		}
	}

	monitor, err := observability.NewResourceMonitor()
	if err != nil {
		log.Debug("resource monitor unavailable", zap.Error(err))
	}

	runner := pipeline.NewRunner(cfg, log)
	results := runner.RunAll(ctx, jobs, opts.concurrency)

	out, closeOut, err := openOutput(cmd.OutOrStdout(), opts.outFile)
	if err != nil {
		return err
	}
	failed := 0
	written := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Name, res.Err)
			continue
		}
		if err := writeReport(out, res.Report, opts, written); err != nil {
			closeOut()
			return err
		}
		written++
		if opts.summary {
			printSummary(cmd.ErrOrStderr(), res.Name, res.Report)
		}
	}
	if err := closeOut(); err != nil {
		return err
	}
	if opts.summary && monitor != nil {
		printResources(cmd.ErrOrStderr(), monitor.Snapshot())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

// opener returns the deferred open of one input.
func opener(ctx context.Context, stdin io.Reader, arg string, opts source.Options, mapped bool) func() (source.ChunkSource, error) {
	return func() (source.ChunkSource, error) {
		switch {
		case arg == "-":
			return source.NewDecompressingSource(io.NopCloser(stdin), "stdin", 0, opts)
		case source.IsRemote(arg):
			return source.OpenURL(ctx, arg, opts)
		case mapped:
			return source.MapFile(arg, opts)
		default:
			return source.OpenFile(inputFs, arg, opts)
		}
	}
}

func parseHints(raw map[string]string) (session.SchemaHints, error) {
	if len(raw) == 0 {
		return session.SchemaHints{}, nil
	}
	hints := session.SchemaHints{ColumnTypes: make(map[string]types.DataType, len(raw))}
	for col, name := range raw {
		t, err := types.ParseDataType(name)
		if err != nil {
			return session.SchemaHints{}, prismerrors.Wrap(err, prismerrors.KindConfig, "invalid column hint").
				WithDetail("column", col)
		}
		hints.ColumnTypes[col] = t
	}
	return hints, nil
}

// openOutput returns the report writer. A file output is compressed when its
// extension names a codec.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := inputFs.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w, err := compression.NewWriter(f, compression.FromExtension(path), compression.Default)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, func() error {
		return errors.Join(w.Close(), f.Close())
	}, nil
}

// writeReport appends one report. YAML documents are separated by "---";
// JSON reports are written as consecutive documents.
func writeReport(w io.Writer, r *report.Report, opts *profileOptions, index int) error {
	if opts.output == "yaml" {
		if index > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		return report.EncodeYAML(w, r)
	}
	return report.EncodeJSON(w, r, opts.pretty)
}

func startMetricsServer(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr), zap.String("path", "/metrics"))
	return srv
}
