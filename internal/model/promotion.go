package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion holds the terms of a promo code. A nil *Promotion means no promotion applies.
type Promotion struct {
	Code          string
	Percent       decimal.Decimal // fraction, 0.25 means 25%
	ExpiresInDays int
}

// PromotionRecord is a stored promotion with an absolute expiry date.
type PromotionRecord struct {
	Code      string          `db:"code"`
	Percent   decimal.Decimal `db:"percent"`
	ExpiresAt time.Time       `db:"expires_at"`
}

// ToPromotion derives the relative expiry against now. Expired records yield nil.
func (r PromotionRecord) ToPromotion(now time.Time) *Promotion {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expiry := time.Date(r.ExpiresAt.Year(), r.ExpiresAt.Month(), r.ExpiresAt.Day(), 0, 0, 0, 0, time.UTC)

	days := int(expiry.Sub(today).Hours() / 24)
	if days < 0 {
		return nil
	}

	return &Promotion{
		Code:          r.Code,
		Percent:       r.Percent,
		ExpiresInDays: days,
	}
}
