package points

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"loyalty-quote/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(fare string, tier model.CustomerTier) model.ValidatedQuote {
	return model.ValidatedQuote{
		FareAmount: decimal.RequireFromString(fare),
		Currency:   "USD",
		Tier:       tier,
		Cabin:      model.CabinEconomy,
	}
}

func TestCalculator_Calculate(t *testing.T) {
	rate := decimal.RequireFromString("3.67")

	tests := []struct {
		name     string
		quote    model.ValidatedQuote
		rate     decimal.Decimal
		promo    *model.Promotion
		expected model.QuoteResult
	}{
		{
			name:  "Silver with expiring promo",
			quote: quote("1234.50", model.TierSilver),
			rate:  rate,
			promo: &model.Promotion{Code: "SUMMER25", Percent: decimal.RequireFromString("0.25"), ExpiresInDays: 1},
			expected: model.QuoteResult{
				BasePoints:      4530,
				TierBonus:       679,
				PromoBonus:      1132,
				TotalPoints:     6341,
				EffectiveFxRate: 3.67,
				Warnings:        []string{model.WarnPromoExpiresSoon},
			},
		},
		{
			name:  "No tier, no promo",
			quote: quote("100", model.TierNone),
			rate:  rate,
			expected: model.QuoteResult{
				BasePoints:      367,
				TotalPoints:     367,
				EffectiveFxRate: 3.67,
				Warnings:        []string{},
			},
		},
		{
			name:  "Gold with long-lived promo has no warning",
			quote: quote("1000", model.TierGold),
			rate:  decimal.RequireFromString("4"),
			promo: &model.Promotion{Code: "WINTER10", Percent: decimal.RequireFromString("0.10"), ExpiresInDays: 10},
			expected: model.QuoteResult{
				BasePoints:      4000,
				TierBonus:       1200,
				PromoBonus:      400,
				TotalPoints:     5600,
				EffectiveFxRate: 4,
				Warnings:        []string{},
			},
		},
		{
			name:  "Promo expiring in exactly two days warns",
			quote: quote("100", model.TierNone),
			rate:  decimal.RequireFromString("1"),
			promo: &model.Promotion{Code: "EDGE", Percent: decimal.RequireFromString("0.5"), ExpiresInDays: 2},
			expected: model.QuoteResult{
				BasePoints:      100,
				PromoBonus:      50,
				TotalPoints:     150,
				EffectiveFxRate: 1,
				Warnings:        []string{model.WarnPromoExpiresSoon},
			},
		},
		{
			name:  "Zero percent promo is ignored entirely",
			quote: quote("100", model.TierNone),
			rate:  decimal.RequireFromString("1"),
			promo: &model.Promotion{Code: "ZERO", Percent: decimal.Zero, ExpiresInDays: 0},
			expected: model.QuoteResult{
				BasePoints:      100,
				TotalPoints:     100,
				EffectiveFxRate: 1,
				Warnings:        []string{},
			},
		},
		{
			name:  "Negative percent promo is ignored",
			quote: quote("100", model.TierNone),
			rate:  decimal.RequireFromString("1"),
			promo: &model.Promotion{Code: "NEG", Percent: decimal.RequireFromString("-0.2"), ExpiresInDays: 1},
			expected: model.QuoteResult{
				BasePoints:      100,
				TotalPoints:     100,
				EffectiveFxRate: 1,
				Warnings:        []string{},
			},
		},
		{
			name:  "Total is capped",
			quote: quote("10000000", model.TierPlatinum),
			rate:  rate,
			promo: &model.Promotion{Code: "BIG", Percent: decimal.RequireFromString("0.5"), ExpiresInDays: 30},
			expected: model.QuoteResult{
				BasePoints:      36700000,
				TierBonus:       18350000,
				PromoBonus:      18350000,
				TotalPoints:     Cap,
				EffectiveFxRate: 3.67,
				Warnings:        []string{},
			},
		},
		{
			name:  "Fractional products are floored",
			quote: quote("0.99", model.TierSilver),
			rate:  decimal.RequireFromString("1.5"),
			expected: model.QuoteResult{
				BasePoints:      1,
				TierBonus:       0,
				TotalPoints:     1,
				EffectiveFxRate: 1.5,
				Warnings:        []string{},
			},
		},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.quote, tt.rate, tt.promo)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Calculate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCalculator_TotalNeverExceedsCap(t *testing.T) {
	calc := NewCalculator()
	rates := []string{"1", "3.67", "25", "1000"}
	fares := []string{"1", "5000", "13624", "10000000", "1e19", "1e20", "9223372036854775807", "1e308"}

	for _, r := range rates {
		for _, f := range fares {
			got := calc.Calculate(quote(f, model.TierPlatinum), decimal.RequireFromString(r), &model.Promotion{
				Percent:       decimal.RequireFromString("1"),
				ExpiresInDays: 5,
			})

			assert.GreaterOrEqual(t, got.BasePoints, int64(0), "fare=%s rate=%s", f, r)
			assert.GreaterOrEqual(t, got.TierBonus, int64(0), "fare=%s rate=%s", f, r)
			assert.GreaterOrEqual(t, got.PromoBonus, int64(0), "fare=%s rate=%s", f, r)
			assert.GreaterOrEqual(t, got.TotalPoints, int64(0), "fare=%s rate=%s", f, r)

			// Parts are compared in decimal so saturated values cannot wrap
			sum := decimal.NewFromInt(got.BasePoints).
				Add(decimal.NewFromInt(got.TierBonus)).
				Add(decimal.NewFromInt(got.PromoBonus))
			expected := decimal.Min(sum, decimal.NewFromInt(Cap))
			assert.Equal(t, expected.IntPart(), got.TotalPoints, "fare=%s rate=%s", f, r)
		}
	}
}

func TestCalculator_SaturatesLargeValues(t *testing.T) {
	calc := NewCalculator()
	rate := decimal.RequireFromString("3.67")

	tests := []struct {
		name          string
		fare          string
		percent       string
		expectedBase  int64
		expectedTier  int64
		expectedPromo int64
		expectedTotal int64
	}{
		{
			name:          "Fare above int64 range",
			fare:          "1e20",
			percent:       "0.25",
			expectedBase:  math.MaxInt64,
			expectedTier:  math.MaxInt64 / 2,
			expectedPromo: math.MaxInt64 / 4,
			expectedTotal: Cap,
		},
		{
			name:          "Base just below int64 limit",
			fare:          "2513000000000000000",
			percent:       "0.25",
			expectedBase:  9222710000000000000,
			expectedTier:  4611355000000000000,
			expectedPromo: 2305677500000000000,
			expectedTotal: Cap,
		},
		{
			name:          "Huge exponent",
			fare:          "1e30000000",
			percent:       "0.25",
			expectedBase:  math.MaxInt64,
			expectedTier:  math.MaxInt64 / 2,
			expectedPromo: math.MaxInt64 / 4,
			expectedTotal: Cap,
		},
		{
			name:          "Tiny fare floors to zero",
			fare:          "1e-30000000",
			percent:       "0.25",
			expectedTotal: 0,
		},
		{
			name:          "Huge promo percent",
			fare:          "100",
			percent:       "1e30",
			expectedBase:  367,
			expectedTier:  183,
			expectedPromo: math.MaxInt64,
			expectedTotal: Cap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			got := calc.Calculate(quote(tt.fare, model.TierPlatinum), rate, &model.Promotion{
				Percent:       decimal.RequireFromString(tt.percent),
				ExpiresInDays: 5,
			})

			assert.Less(t, time.Since(start), time.Second)
			assert.Equal(t, tt.expectedBase, got.BasePoints)
			assert.Equal(t, tt.expectedTier, got.TierBonus)
			assert.Equal(t, tt.expectedPromo, got.PromoBonus)
			assert.Equal(t, tt.expectedTotal, got.TotalPoints)
		})
	}
}

func TestCalculator_IsDeterministic(t *testing.T) {
	calc := NewCalculator()
	q := quote("1234.50", model.TierGold)
	rate := decimal.RequireFromString("3.67")
	promo := &model.Promotion{Code: "SUMMER25", Percent: decimal.RequireFromString("0.25"), ExpiresInDays: 1}

	first, err := json.Marshal(calc.Calculate(q, rate, promo))
	require.NoError(t, err)
	second, err := json.Marshal(calc.Calculate(q, rate, promo))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTierMultiplier(t *testing.T) {
	tests := []struct {
		tier     model.CustomerTier
		expected string
	}{
		{model.TierNone, "0"},
		{model.TierSilver, "0.15"},
		{model.TierGold, "0.3"},
		{model.TierPlatinum, "0.5"},
		{model.CustomerTier("DIAMOND"), "0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(TierMultiplier(tt.tier)))
		})
	}
}

func TestCalculator_UnknownTierMatchesNone(t *testing.T) {
	calc := NewCalculator()
	rate := decimal.RequireFromString("3.67")

	unknown := calc.Calculate(quote("500", model.ParseCustomerTier("bronze")), rate, nil)
	none := calc.Calculate(quote("500", model.TierNone), rate, nil)

	assert.Equal(t, none, unknown)
}
