package repository

import (
	"context"

	"loyalty-quote/internal/model"
)

// PromotionRepository defines read access to stored promotions.
type PromotionRepository interface {
	// GetByCode retrieves a promotion by code, case-insensitively.
	// Returns nil without error when the code does not exist.
	GetByCode(ctx context.Context, code string) (*model.PromotionRecord, error)
}
