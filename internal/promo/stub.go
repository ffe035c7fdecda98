package promo

import (
	"context"
	"strings"

	"loyalty-quote/internal/model"

	"github.com/shopspring/decimal"
)

type stubSource struct{}

// NewStubSource returns a source for local runs without a promotion service.
// SUMMER25 is worth 25% and expires tomorrow; any other code is worth 10% for ten days.
func NewStubSource() Source {
	return stubSource{}
}

func (stubSource) Promotion(_ context.Context, code string) (*model.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}

	if strings.EqualFold(code, "SUMMER25") {
		return &model.Promotion{Code: code, Percent: decimal.RequireFromString("0.25"), ExpiresInDays: 1}, nil
	}
	return &model.Promotion{Code: code, Percent: decimal.RequireFromString("0.10"), ExpiresInDays: 10}, nil
}
