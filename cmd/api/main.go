package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-quote/internal/config"
	"loyalty-quote/internal/database"
	"loyalty-quote/internal/fx"
	"loyalty-quote/internal/handler"
	"loyalty-quote/internal/metrics"
	"loyalty-quote/internal/points"
	"loyalty-quote/internal/promo"
	"loyalty-quote/internal/quote"
	"loyalty-quote/internal/repository"
	"loyalty-quote/internal/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting loyalty quote API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared client; each source bounds its own attempts with a context timeout
	httpClient := &http.Client{}

	rates := newRateSource(cfg.FX, httpClient, logger)

	promos, closePromos, err := newPromoSource(ctx, cfg, httpClient, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize promotion source: %w", err)
	}
	defer closePromos()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize services
	quoteService := quote.NewService(
		quote.NewValidator(cfg.Quote.Currencies()),
		rates,
		promos,
		points.NewCalculator(),
		logger,
		quote.WithFailureRecorder(m),
	)

	// Initialize HTTP handlers
	quoteHandler := handler.NewQuoteHandler(quoteService, m, logger)

	// Initialize router
	mux := router.New(quoteHandler, registry, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Strs("allowed_currencies", cfg.Quote.Currencies()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newRateSource uses the stub when no FX base URL is configured.
func newRateSource(cfg config.FXConfig, httpClient *http.Client, logger zerolog.Logger) fx.RateSource {
	if cfg.BaseURL == "" {
		logger.Warn().Msg("FX_BASE_URL not set, using stub rate source")
		return fx.NewStubSource()
	}

	return fx.NewClient(fx.ClientConfig{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay(),
	}, httpClient, logger)
}

// newPromoSource builds the configured promotion source. The returned func
// releases any resources it holds.
func newPromoSource(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger zerolog.Logger) (promo.Source, func(), error) {
	noop := func() {}
	kind := cfg.Promo.Kind()
	logger.Info().Str("promo_source", kind).Msg("configuring promotion source")

	switch kind {
	case config.PromoSourceHTTP:
		return promo.NewClient(cfg.Promo.BaseURL, cfg.Promo.Timeout(), httpClient, logger), noop, nil

	case config.PromoSourceStub:
		return promo.NewStubSource(), noop, nil

	case config.PromoSourceCatalog:
		fileLoader := promo.NewFileLoader(logger)
		loader := fileLoader

		if cfg.S3.Enabled {
			s3Loader, err := promo.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
			if err != nil {
				logger.Warn().
					Err(err).
					Msg("failed to initialise S3 loader, falling back to local file system only")
			} else {
				loader = promo.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
			}
		} else {
			logger.Info().Msg("using local file system for promotion catalog (S3 disabled)")
		}

		source, err := promo.NewCatalogSource(ctx, cfg.Promo.CatalogFiles, loader, time.Now, logger)
		if err != nil {
			return nil, noop, err
		}
		return source, noop, nil

	case config.PromoSourcePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize database: %w", err)
		}

		repo := repository.NewPromotionRepository(pool, logger)
		return promo.NewRepositorySource(repo, cfg.Promo.Timeout(), time.Now, logger), pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown promotion source %q", kind)
	}
}
