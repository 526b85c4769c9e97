package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/jsperson/chathero/pkg/budget"
	"github.com/jsperson/chathero/pkg/config"
	"github.com/jsperson/chathero/pkg/dataset"
	"github.com/jsperson/chathero/pkg/joins"
	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/logger"
	"github.com/jsperson/chathero/pkg/pipeline"
	"github.com/jsperson/chathero/pkg/planner"
	"github.com/jsperson/chathero/pkg/processor"
	"github.com/jsperson/chathero/pkg/sandbox"
	"github.com/jsperson/chathero/pkg/server"
	"github.com/jsperson/chathero/pkg/validator"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultConfigPath      = "chathero.yaml"
	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	configPathFlag := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	listenAddrFlag := flag.String("listen-addr", "", "HTTP server listen address (overrides config)")
	metricsAddrFlag := flag.String("metrics-addr", "", "Address to listen on for prometheus metrics (overrides config)")
	showVersionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	cfg, err := config.Load(*configPathFlag)
	if err != nil {
		return err
	}
	if *listenAddrFlag != "" {
		cfg.ListenAddr = *listenAddrFlag
	}
	if *metricsAddrFlag != "" {
		cfg.MetricsAddr = *metricsAddrFlag
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaude3_5Haiku20241022
	}
	client := llm.NewAnthropicClient(log, model, cfg.MaxTokens)

	plnr, err := planner.New(log, client)
	if err != nil {
		return err
	}
	vldtr, err := validator.New(log, client)
	if err != nil {
		return err
	}
	anlzr, err := joins.New(log, client)
	if err != nil {
		return err
	}

	p, err := pipeline.New(&pipeline.Config{
		Logger:     log,
		LLM:        client,
		Planner:    plnr,
		Validator:  vldtr,
		Executor:   sandbox.NewExecutor(log),
		Analyzer:   anlzr,
		Processor:  processor.New(log),
		Budget:     budget.NewOptimizer(),
		SampleSize: cfg.SampleSize,
	})
	if err != nil {
		return err
	}

	store := dataset.NewStore(log, cfg, cfg.CacheTTL)
	defer store.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(log, store, p).Router(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	// Prometheus metrics on a separate listener.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("metrics server starting", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("chathero server starting", "addr", cfg.ListenAddr, "datasets", len(cfg.Datasets), "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
