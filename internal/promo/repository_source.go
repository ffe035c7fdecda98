package promo

import (
	"context"
	"strings"
	"time"

	"loyalty-quote/internal/model"
	"loyalty-quote/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type repositorySource struct {
	repo    repository.PromotionRepository
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRepositorySource serves promotions from a PromotionRepository with the
// same single-attempt timeout as the HTTP client.
func NewRepositorySource(repo repository.PromotionRepository, timeout time.Duration, now func() time.Time, logger zerolog.Logger) Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if now == nil {
		now = time.Now
	}

	return &repositorySource{
		repo:    repo,
		timeout: timeout,
		now:     now,
		logger:  logger.With().Str("component", "promo-repository-source").Logger(),
	}
}

// Promotion returns nil for unknown or expired codes.
func (s *repositorySource) Promotion(ctx context.Context, code string) (*model.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("promo_code", code).Msg("promotion lookup failed")
		return nil, errors.Mark(errors.Wrap(err, "promotion repository"), ErrPromotionUnavailable)
	}
	if record == nil {
		return nil, nil
	}

	return record.ToPromotion(s.now()), nil
}
