package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/productlens/ingest/config"
	httpDelivery "github.com/productlens/ingest/internal/delivery/http"
	"github.com/productlens/ingest/internal/infrastructure/catalog"
	"github.com/productlens/ingest/internal/infrastructure/input"
	"github.com/productlens/ingest/internal/infrastructure/ratelimit"
	"github.com/productlens/ingest/internal/infrastructure/snapshot"
	"github.com/productlens/ingest/internal/infrastructure/store"
	"github.com/productlens/ingest/internal/usecase"
)

func main() {
	fs := pflag.NewFlagSet("ingest", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if err := run(fs); err != nil {
		log.Printf("Ingestion failed: %v", err)
		os.Exit(1)
	}
}

func run(fs *pflag.FlagSet) error {
	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting ProductLens ingest v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Catalog API: %s (key: %s)", cfg.Catalog.BaseURL, maskKey(cfg.Catalog.APIKey))
	log.Printf("Rate limit: %d calls per %s, retry: %d attempts from %s",
		cfg.RateLimit.MaxCalls, cfg.RateLimit.Period, cfg.Retry.Attempts, cfg.Retry.BaseDelay)
	log.Printf("Store: %s, workers: %d", cfg.Store.Type, cfg.Ingest.Workers)

	ids, err := input.NewCSVReader(cfg.Ingest.InputPath, cfg.Ingest.IDColumn).ReadIdentifiers()
	if err != nil {
		return err
	}

	// Initialize infrastructure dependencies
	limiter := ratelimit.NewWindow(cfg.RateLimit.MaxCalls, cfg.RateLimit.Period)
	client := catalog.NewClient(
		catalog.ClientConfig{
			APIKey:  cfg.Catalog.APIKey,
			BaseURL: cfg.Catalog.BaseURL,
			Country: cfg.Catalog.Country,
			Timeout: cfg.Catalog.Timeout,
		},
		limiter,
		catalog.NewRetryPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay),
	)
	if cfg.Catalog.Debug {
		client.SetDebug(true)
		log.Printf("Catalog client debug mode enabled")
	}

	docs, err := store.Open(ctx, store.Config{
		Type:       cfg.Store.Type,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
		MaxConns:   cfg.Store.MaxConns,
	})
	if err != nil {
		return err
	}
	defer docs.Close()

	// Initialize usecase layer
	normalizer := usecase.NewNormalizer(usecase.NormalizerConfig{
		ProductURLTemplate: cfg.Catalog.ProductURLTemplate,
	})
	ingestService := usecase.NewIngestService(client, normalizer, usecase.IngestConfig{
		MaxToProcess: cfg.Ingest.MaxToProcess,
		Workers:      cfg.Ingest.Workers,
	})

	var sink usecase.SnapshotSink
	if cfg.Ingest.SnapshotPath != "" {
		sink = &snapshot.File{Path: cfg.Ingest.SnapshotPath}
	}

	if cfg.Server.Enabled {
		srv := startStatusServer(cfg, ingestService.Progress())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pipeline := usecase.NewPipeline(ingestService, docs, sink)
	result, err := pipeline.Run(ctx, ids)
	if result != nil {
		if reportErr := usecase.WriteReport(os.Stdout, result.Summary); reportErr != nil {
			log.Printf("Failed to write report: %v", reportErr)
		}
	}
	return err
}

// startStatusServer serves run progress in the background
func startStatusServer(cfg *config.Config, status httpDelivery.RunStatus) *http.Server {
	handler := httpDelivery.NewHandler(status)
	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Status server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Status server stopped: %v", err)
		}
	}()
	return srv
}

// maskKey shows only the start of a credential
func maskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:8] + "..."
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
