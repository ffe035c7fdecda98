package promo

import (
	"context"

	"loyalty-quote/internal/model"

	"github.com/cockroachdb/errors"
)

// ErrPromotionUnavailable marks a lookup that could not be completed.
var ErrPromotionUnavailable = errors.New("promotion unavailable")

// Source looks up promotion terms.
type Source interface {
	// Promotion returns the terms for code, or nil when no promotion applies.
	// A blank code always yields nil without any I/O.
	Promotion(ctx context.Context, code string) (*model.Promotion, error)
}

// Catalog is an in-memory index of promotion records.
type Catalog interface {
	// Lookup finds a record by code, case-insensitively.
	Lookup(code string) (model.PromotionRecord, bool)

	// Size returns the number of records in the catalog.
	Size() int

	// Records returns every record in no particular order.
	Records() []model.PromotionRecord
}

// Loader loads a promotion catalog file.
type Loader interface {
	// Load reads a gzipped CSV catalog and returns its records.
	Load(ctx context.Context, path string) (Catalog, error)
}
