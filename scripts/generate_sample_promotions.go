package main

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
)

type samplePromotion struct {
	code    string
	percent string
	days    int // expiry relative to today; negative is already expired
}

// generateSamplePromotions writes a gzipped promotion catalog and, with -dsn,
// upserts the same rows into the promotions table.
//
//	SUMMER25  25%  expires tomorrow (PROMO_EXPIRES_SOON)
//	WINTER10  10%  expires in 60 days
//	FLASH50   50%  expires today (PROMO_EXPIRES_SOON)
//	SPRING15  15%  expired yesterday (ignored)
func main() {
	out := flag.String("out", "data/promotions/promotions.csv.gz", "catalog file to write")
	dsn := flag.String("dsn", "", "optional postgres connection string to seed")
	flag.Parse()

	promotions := []samplePromotion{
		{code: "SUMMER25", percent: "0.25", days: 1},
		{code: "WINTER10", percent: "0.10", days: 60},
		{code: "FLASH50", percent: "0.50", days: 0},
		{code: "SPRING15", percent: "0.15", days: -1},
	}
	today := time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if err := createCatalogFile(*out, promotions, today); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}
	fmt.Printf("Created %s with %d promotions\n", *out, len(promotions))

	if *dsn == "" {
		return
	}

	if err := seedDatabase(context.Background(), *dsn, promotions, today); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Printf("Seeded %d promotions into postgres\n", len(promotions))
}

func createCatalogFile(filePath string, promotions []samplePromotion, today time.Time) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	w := csv.NewWriter(gzipWriter)
	if err := w.Write([]string{"code", "percent", "expires_at"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range promotions {
		row := []string{p.code, p.percent, today.AddDate(0, 0, p.days).Format("2006-01-02")}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write promotion %s: %w", p.code, err)
		}
	}
	w.Flush()

	return w.Error()
}

func seedDatabase(ctx context.Context, dsn string, promotions []samplePromotion, today time.Time) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("unable to connect: %w", err)
	}
	defer conn.Close(ctx)

	schema := `
		CREATE TABLE IF NOT EXISTS promotions (
			code TEXT PRIMARY KEY,
			percent NUMERIC(6,4) NOT NULL,
			expires_at DATE NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_promotions_code_upper ON promotions (upper(code));
	`
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range promotions {
		batch.Queue(
			`INSERT INTO promotions (code, percent, expires_at) VALUES ($1, $2::numeric, $3)
			 ON CONFLICT (code) DO UPDATE SET percent = EXCLUDED.percent, expires_at = EXCLUDED.expires_at`,
			p.code, p.percent, today.AddDate(0, 0, p.days),
		)
	}

	return conn.SendBatch(ctx, batch).Close()
}
