package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-quote/internal/config"
	"loyalty-quote/internal/twin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		port     int
		latency  time.Duration
		failRate float64
		verbose  bool
	)
	flag.IntVar(&port, "port", 9090, "HTTP listen port")
	flag.DurationVar(&latency, "latency", 0, "Base simulated latency")
	flag.Float64Var(&failRate, "fail-rate", 0.0, "Random failure rate 0.0-1.0")
	flag.BoolVar(&verbose, "verbose", false, "Log every request")
	flag.Parse()

	if failRate < 0 || failRate > 1 {
		return fmt.Errorf("fail-rate must be between 0.0 and 1.0")
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	logger := config.NewLogger(config.LoggerConfig{Level: level, Format: "json"})

	s := twin.New(twin.Config{Latency: latency, FailRate: failRate}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", server.Addr).
			Dur("latency", latency).
			Float64("fail_rate", failRate).
			Msg("upstream twin started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutting down upstream twin")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
