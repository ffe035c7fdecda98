package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loyalty-quote/internal/config"
	"loyalty-quote/internal/database"
	"loyalty-quote/internal/fx"
	"loyalty-quote/internal/handler"
	"loyalty-quote/internal/metrics"
	"loyalty-quote/internal/model"
	"loyalty-quote/internal/points"
	"loyalty-quote/internal/promo"
	"loyalty-quote/internal/quote"
	"loyalty-quote/internal/router"
	"loyalty-quote/internal/twin"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Upstream timeouts used by every test server. They are short so timeout
// scenarios finish quickly.
const (
	fxTimeout    = 150 * time.Millisecond
	promoTimeout = 150 * time.Millisecond
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPoolFromURL(ctx, connStr, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the promotions table.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	schema := `
		CREATE TABLE IF NOT EXISTS promotions (
			code TEXT PRIMARY KEY,
			percent NUMERIC(6,4) NOT NULL,
			expires_at DATE NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_promotions_code_upper ON promotions (upper(code));
	`

	if _, err := pool.Exec(context.Background(), schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedPromotions inserts promotion rows.
func SeedPromotions(t *testing.T, pool *pgxpool.Pool, records []model.PromotionRecord) {
	t.Helper()

	for _, r := range records {
		_, err := pool.Exec(context.Background(),
			"INSERT INTO promotions (code, percent, expires_at) VALUES ($1, $2::numeric, $3)",
			r.Code, r.Percent.String(), r.ExpiresAt,
		)
		if err != nil {
			t.Fatalf("failed to seed promotion %s: %v", r.Code, err)
		}
	}
}

// CleanupDB removes all promotions.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM promotions"); err != nil {
		t.Logf("failed to clean promotions: %v", err)
	}
}

// Upstreams is a running twin serving both the FX and promotion endpoints.
type Upstreams struct {
	Twin *twin.Server
	URL  string
}

// StartUpstreams starts a twin on a random port.
func StartUpstreams(t *testing.T) *Upstreams {
	t.Helper()

	s := twin.New(twin.Config{}, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &Upstreams{Twin: s, URL: srv.URL}
}

// TestServer is the full API stack wired like cmd/api.
type TestServer struct {
	Handler  http.Handler
	Registry *prometheus.Registry
}

// NewTestServer wires the API against the twin for rates and the given
// promotion source. A nil promos uses the twin's promotion endpoint.
func NewTestServer(t *testing.T, upstreams *Upstreams, promos promo.Source) *TestServer {
	t.Helper()

	logger := zerolog.Nop()

	rates := fx.NewClient(fx.ClientConfig{
		BaseURL:    upstreams.URL,
		Timeout:    fxTimeout,
		Retries:    1,
		RetryDelay: 10 * time.Millisecond,
	}, nil, logger)

	if promos == nil {
		promos = promo.NewClient(upstreams.URL, promoTimeout, nil, logger)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	svc := quote.NewService(
		quote.NewValidator(config.DefaultCurrencies),
		rates,
		promos,
		points.NewCalculator(),
		logger,
		quote.WithFailureRecorder(m),
	)

	return &TestServer{
		Handler:  router.New(handler.NewQuoteHandler(svc, m, logger), registry, logger),
		Registry: registry,
	}
}
