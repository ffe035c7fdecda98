package promo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"loyalty-quote/internal/model"

	"github.com/rs/zerolog"
)

// catalogSource serves promotions from catalogs loaded at start-up.
type catalogSource struct {
	catalog Catalog
	now     func() time.Time
	logger  zerolog.Logger
	// No mutex needed - catalog is read-only after initialisation
}

// NewCatalogSource loads every path concurrently and merges them in order,
// so later files override earlier ones for the same code.
func NewCatalogSource(ctx context.Context, paths []string, loader Loader, now func() time.Time, logger zerolog.Logger) (Source, error) {
	if now == nil {
		now = time.Now
	}
	logger = logger.With().Str("component", "promo-catalog").Logger()

	logger.Info().Int("file_count", len(paths)).Msg("initialising promotion catalog")

	type loadResult struct {
		index   int
		catalog Catalog
		err     error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			catalog, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, catalog: catalog, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	merged := newMapCatalog(1024)
	for i, result := range results {
		if result.err != nil {
			logger.Error().Err(result.err).Str("file", paths[i]).Msg("failed to load promotion catalog")
			return nil, fmt.Errorf("failed to load promotion catalog %s: %w", paths[i], result.err)
		}
		merged.merge(result.catalog)
	}

	logger.Info().Int("total_promotions", merged.Size()).Msg("promotion catalog initialised")

	return &catalogSource{
		catalog: merged,
		now:     now,
		logger:  logger,
	}, nil
}

// Promotion returns nil for unknown or expired codes.
func (s *catalogSource) Promotion(_ context.Context, code string) (*model.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}

	record, ok := s.catalog.Lookup(code)
	if !ok {
		s.logger.Debug().Str("promo_code", code).Msg("promotion not in catalog")
		return nil, nil
	}

	p := record.ToPromotion(s.now())
	if p == nil {
		s.logger.Debug().Str("promo_code", code).Time("expires_at", record.ExpiresAt).Msg("promotion expired")
	}
	return p, nil
}
