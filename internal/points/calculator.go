package points

import (
	"math"

	"loyalty-quote/internal/model"

	"github.com/shopspring/decimal"
)

// Cap is the maximum number of points a single quote may award.
const Cap int64 = 50_000

// expiresSoonDays is the inclusive threshold for PROMO_EXPIRES_SOON.
const expiresSoonDays = 2

var tierMultipliers = map[model.CustomerTier]decimal.Decimal{
	model.TierNone:     decimal.Zero,
	model.TierSilver:   decimal.RequireFromString("0.15"),
	model.TierGold:     decimal.RequireFromString("0.30"),
	model.TierPlatinum: decimal.RequireFromString("0.50"),
}

// TierMultiplier returns the bonus fraction for a tier; unknown tiers earn nothing.
func TierMultiplier(tier model.CustomerTier) decimal.Decimal {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}
	return decimal.Zero
}

// Calculator turns a validated quote, a rate and an optional promotion into points.
type Calculator interface {
	Calculate(q model.ValidatedQuote, rate decimal.Decimal, promo *model.Promotion) model.QuoteResult
}

type calculator struct{}

// NewCalculator returns the standard calculator. It holds no state.
func NewCalculator() Calculator {
	return calculator{}
}

// Calculate computes base points, tier bonus, promo bonus and the capped total.
// All intermediate values are floored. Components saturate at math.MaxInt64.
func (calculator) Calculate(q model.ValidatedQuote, rate decimal.Decimal, promo *model.Promotion) model.QuoteResult {
	base := floorMul(q.FareAmount, rate)
	tierBonus := floorMul(decimal.NewFromInt(base), TierMultiplier(q.Tier))

	var promoBonus int64
	warnings := make([]string, 0, 2)
	if promo != nil && promo.Percent.IsPositive() {
		promoBonus = floorMul(decimal.NewFromInt(base), promo.Percent)
		if promo.ExpiresInDays <= expiresSoonDays {
			warnings = append(warnings, model.WarnPromoExpiresSoon)
		}
	}

	return model.QuoteResult{
		BasePoints:      base,
		TierBonus:       tierBonus,
		PromoBonus:      promoBonus,
		TotalPoints:     cappedSum(base, tierBonus, promoBonus),
		EffectiveFxRate: rate.InexactFloat64(),
		Warnings:        warnings,
	}
}

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// floorMul returns floor(a*b) for positive operands, clamped to
// [0, math.MaxInt64]. The magnitude is estimated from digit counts first so
// extreme exponents never reach Floor, which would rescale them.
func floorMul(a, b decimal.Decimal) int64 {
	if a.Sign() <= 0 || b.Sign() <= 0 {
		return 0
	}

	// a*b lies in [10^(mag-2), 10^mag). NumDigits may be off by one for
	// exact powers of ten, so both bounds keep some slack.
	mag := magnitude(a) + magnitude(b)
	switch {
	case mag < -1:
		return 0
	case mag > 22:
		return math.MaxInt64
	}

	p := a.Mul(b).Floor()
	if p.GreaterThan(maxPoints) {
		return math.MaxInt64
	}
	return p.IntPart()
}

func magnitude(d decimal.Decimal) int64 {
	return int64(d.NumDigits()) + int64(d.Exponent())
}

// cappedSum adds non-negative parts and stops at Cap without overflowing.
func cappedSum(parts ...int64) int64 {
	var sum int64
	for _, v := range parts {
		if v >= Cap-sum {
			return Cap
		}
		sum += v
	}
	return sum
}
