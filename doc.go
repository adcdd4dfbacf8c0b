// Package prism is a streaming, memory-bounded profiler for CSV and JSON
// datasets.
//
// An input is read once, in chunks of arbitrary size. Each record is decoded
// field by field and folded into per-column accumulators, so memory stays
// proportional to the number of columns and the sketch sizes, never to the
// number of rows. At the end of input the accumulators are materialized into
// a report.
//
// # Quick Start
//
// Profile a file from the command line:
//
//	prism profile users.csv
//	prism profile --summary -o yaml s3://lake/raw/events.jsonl.gz
//	cat export.tsv | prism profile -
//
// Or embed a session:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/prism/internal/pipeline"
//	    "github.com/ajitpratap0/prism/pkg/config"
//	    "github.com/ajitpratap0/prism/pkg/session"
//	    "github.com/ajitpratap0/prism/pkg/source"
//	)
//
//	cfg := config.NewProfileConfig()
//	src, _ := source.OpenFile(afero.NewOsFs(), "users.csv", source.Options{})
//	defer src.Close()
//	rep, err := pipeline.NewRunner(cfg, logger).Run(ctx, src, "users.csv", session.SchemaHints{})
//
// # Key Packages
//
//	pkg/parser      - Delimiter sniffing and record reassembly across chunks
//	pkg/types       - Field decoding and type inference
//	pkg/accumulator - Per-column streaming statistics
//	pkg/sketch      - Quantile, cardinality, frequency and duplicate sketches
//	pkg/session     - The profiling session state machine and its host
//	pkg/report      - Report materialization and encoding
//	pkg/quality     - Quality scores and PII detection
//	pkg/source      - Local, mapped, object store and HTTP chunk sources
//	pkg/compression - Transparent input decompression
//	pkg/config      - Configuration with YAML, environment and flag overrides
//	pkg/logger      - Structured logging
//	pkg/metrics     - Prometheus metrics
//
// # Accuracy
//
// Counts, missing values, moments and bounds are exact. Quantiles come from a
// t-digest or DDSketch, distinct counts from HyperLogLog, frequent values from
// a count-min sketch over bounded candidates, and duplicate rows from a bloom
// filter. Every sketch is sized by the configuration.
//
// # Configuration
//
// Defaults are overridden by an optional YAML file, then PRISM_* environment
// variables, then command-line flags. Environment variables are supported in
// the YAML file with ${VAR_NAME} syntax.
package prism
