package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/batch"
	"github.com/olaria/ddlconv/pkg/convert"
	"github.com/olaria/ddlconv/pkg/dedup"
	"github.com/olaria/ddlconv/pkg/logger"
	"github.com/olaria/ddlconv/pkg/metrics"
	"github.com/olaria/ddlconv/pkg/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", ":8080", "HTTP listen address (or set DDLCONV_LISTEN_ADDR env var)")
	outputDirFlag := flag.String("output-dir", "output", "directory for generated artifacts (or set DDLCONV_OUTPUT_DIR env var)")
	maxConcurrencyFlag := flag.Int("max-concurrency", 4, "maximum concurrent file conversions per batch")
	jobRetentionFlag := flag.Duration("job-retention", time.Hour, "how long completed batch jobs stay pollable")
	maxUploadBytesFlag := flag.Int64("max-upload-bytes", 16<<20, "maximum total upload size in bytes")
	flag.Parse()

	if env := os.Getenv("DDLCONV_LISTEN_ADDR"); env != "" {
		*listenAddrFlag = env
	}
	if env := os.Getenv("DDLCONV_OUTPUT_DIR"); env != "" {
		*outputDirFlag = env
	}
	if env := os.Getenv("DDLCONV_MAX_CONCURRENCY"); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("invalid DDLCONV_MAX_CONCURRENCY: %w", err)
		}
		*maxConcurrencyFlag = n
	}

	log := logger.New(logger.Options{Verbose: *verboseFlag})
	log.Info("starting ddlconv server", "version", version, "commit", commit, "date", date)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	clock := clockwork.NewRealClock()

	artifacts, err := artifact.NewFSStore(*outputDirFlag)
	if err != nil {
		return err
	}
	// Stale artifacts from a previous run must not mix with this session's.
	if err := artifacts.Clear(); err != nil {
		return err
	}

	dedupStore := dedup.NewMemoryStore(clock)
	history := server.NewHistory(clock)

	pipeline, err := convert.New(convert.Config{
		Logger:    log,
		Clock:     clock,
		Artifacts: artifacts,
	})
	if err != nil {
		return err
	}

	registry, err := batch.NewRegistry(batch.Config{
		Logger:         log,
		Clock:          clock,
		Dedup:          dedupStore,
		Processor:      pipeline,
		MaxConcurrency: *maxConcurrencyFlag,
		Retention:      *jobRetentionFlag,
		OnResult:       history.Add,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Logger:         log,
		Clock:          clock,
		ListenAddr:     *listenAddrFlag,
		Registry:       registry,
		Artifacts:      artifacts,
		Dedup:          dedupStore,
		History:        history,
		MaxUploadBytes: *maxUploadBytesFlag,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.Start(ctx)
	return srv.Run(ctx)
}
