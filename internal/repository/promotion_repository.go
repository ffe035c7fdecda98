package repository

import (
	"context"
	"errors"
	"fmt"

	"loyalty-quote/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// promotionRepository implements PromotionRepository using PostgreSQL.
type promotionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool *pgxpool.Pool, logger zerolog.Logger) PromotionRepository {
	return &promotionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "promotion").Logger(),
	}
}

// GetByCode retrieves a single promotion by code.
func (r *promotionRepository) GetByCode(ctx context.Context, code string) (*model.PromotionRecord, error) {
	query := `
		SELECT code, percent::text, expires_at
		FROM promotions
		WHERE upper(code) = upper($1)
	`

	var (
		record  model.PromotionRecord
		percent string
	)
	err := r.pool.QueryRow(ctx, query, code).Scan(&record.Code, &percent, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("promo_code", code).Msg("promotion not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("promo_code", code).Msg("failed to query promotion")
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}

	record.Percent, err = decimal.NewFromString(percent)
	if err != nil {
		r.logger.Error().Err(err).Str("promo_code", code).Str("percent", percent).Msg("invalid stored percent")
		return nil, fmt.Errorf("invalid percent for promotion %s: %w", code, err)
	}
	if !model.InDoubleRange(record.Percent) {
		r.logger.Error().Str("promo_code", code).Msg("stored percent out of range")
		return nil, fmt.Errorf("percent out of range for promotion %s", code)
	}

	return &record, nil
}
