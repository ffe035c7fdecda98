package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CustomerTier is the loyalty tier of the traveller.
type CustomerTier string

const (
	TierNone     CustomerTier = "NONE"
	TierSilver   CustomerTier = "SILVER"
	TierGold     CustomerTier = "GOLD"
	TierPlatinum CustomerTier = "PLATINUM"
)

// ParseCustomerTier is case-insensitive. Unknown or empty values map to TierNone.
func ParseCustomerTier(s string) CustomerTier {
	switch t := CustomerTier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierSilver, TierGold, TierPlatinum:
		return t
	default:
		return TierNone
	}
}

// CabinClass is the booked cabin.
type CabinClass string

const (
	CabinEconomy        CabinClass = "ECONOMY"
	CabinPremiumEconomy CabinClass = "PREMIUM_ECONOMY"
	CabinBusiness       CabinClass = "BUSINESS"
	CabinFirst          CabinClass = "FIRST"
)

// ParseCabinClass is case-insensitive and reports whether s names a known cabin.
func ParseCabinClass(s string) (CabinClass, bool) {
	switch c := CabinClass(strings.ToUpper(s)); c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return c, true
	default:
		return "", false
	}
}

// Advisory warning codes carried in QuoteResult.Warnings.
const (
	WarnPromoExpiresSoon = "PROMO_EXPIRES_SOON"
	WarnPromoUnavailable = "PROMO_UNAVAILABLE"
)

// QuoteRequest is the payload of POST /v1/points/quote.
type QuoteRequest struct {
	FareAmount   decimal.Decimal `json:"fareAmount"`
	Currency     string          `json:"currency"`
	CustomerTier string          `json:"customerTier"`
	CabinClass   string          `json:"cabinClass"`
	PromoCode    *string         `json:"promoCode,omitempty"`
}

// ValidatedQuote is a QuoteRequest that passed validation, with
// currency, tier and cabin normalised. It is passed by value.
type ValidatedQuote struct {
	FareAmount decimal.Decimal
	Currency   string
	Tier       CustomerTier
	Cabin      CabinClass
	PromoCode  string
}

// HasPromoCode reports whether a promotion lookup is needed.
func (q ValidatedQuote) HasPromoCode() bool {
	return strings.TrimSpace(q.PromoCode) != ""
}

// QuoteResult is the point breakdown returned on success.
type QuoteResult struct {
	BasePoints      int64    `json:"basePoints"`
	TierBonus       int64    `json:"tierBonus"`
	PromoBonus      int64    `json:"promoBonus"`
	TotalPoints     int64    `json:"totalPoints"`
	EffectiveFxRate float64  `json:"effectiveFxRate"`
	Warnings        []string `json:"warnings"`
}
