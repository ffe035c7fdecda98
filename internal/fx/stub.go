package fx

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type stubSource struct {
	rates    map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewStubSource returns a fixed-rate source for local runs without an FX service.
func NewStubSource() RateSource {
	return &stubSource{
		rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("3.67"),
			"EUR": decimal.RequireFromString("4.00"),
		},
		fallback: decimal.NewFromInt(1),
	}
}

// EffectiveRate never fails.
func (s *stubSource) EffectiveRate(_ context.Context, currency string) (decimal.Decimal, error) {
	if r, ok := s.rates[strings.ToUpper(currency)]; ok {
		return r, nil
	}
	return s.fallback, nil
}
