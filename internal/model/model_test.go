package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomerTier(t *testing.T) {
	tests := []struct {
		input    string
		expected CustomerTier
	}{
		{"SILVER", TierSilver},
		{"gold", TierGold},
		{" Platinum ", TierPlatinum},
		{"NONE", TierNone},
		{"", TierNone},
		{"DIAMOND", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCustomerTier(tt.input))
		})
	}
}

func TestParseCabinClass(t *testing.T) {
	tests := []struct {
		input    string
		expected CabinClass
		ok       bool
	}{
		{"ECONOMY", CabinEconomy, true},
		{"premium_economy", CabinPremiumEconomy, true},
		{"Business", CabinBusiness, true},
		{"FIRST", CabinFirst, true},
		{"", "", false},
		{"COUCH", "", false},
		{" FIRST", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cabin, ok := ParseCabinClass(tt.input)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, cabin)
		})
	}
}

func TestValidatedQuote_HasPromoCode(t *testing.T) {
	assert.True(t, ValidatedQuote{PromoCode: "SUMMER25"}.HasPromoCode())
	assert.False(t, ValidatedQuote{PromoCode: ""}.HasPromoCode())
	assert.False(t, ValidatedQuote{PromoCode: "   "}.HasPromoCode())
}

func TestPromotionRecord_ToPromotion(t *testing.T) {
	now := time.Date(2026, 6, 10, 23, 30, 0, 0, time.UTC)
	percent := decimal.RequireFromString("0.25")

	tests := []struct {
		name      string
		expiresAt time.Time
		wantDays  int
		wantNil   bool
	}{
		{name: "expires today", expiresAt: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), wantDays: 0},
		{name: "expires tomorrow", expiresAt: time.Date(2026, 6, 11, 0, 0, 0, 0, time.UTC), wantDays: 1},
		{name: "time of day ignored", expiresAt: time.Date(2026, 6, 12, 1, 0, 0, 0, time.UTC), wantDays: 2},
		{name: "next month", expiresAt: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), wantDays: 30},
		{name: "expired yesterday", expiresAt: time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC), wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := PromotionRecord{Code: "SUMMER25", Percent: percent, ExpiresAt: tt.expiresAt}

			p := record.ToPromotion(now)

			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, "SUMMER25", p.Code)
			assert.True(t, percent.Equal(p.Percent))
			assert.Equal(t, tt.wantDays, p.ExpiresInDays)
		})
	}
}

func TestPromotionRecord_ToPromotion_UsesUTCDate(t *testing.T) {
	// 02:00 on the 11th in Dubai is still the 10th in UTC
	now := time.Date(2026, 6, 11, 2, 0, 0, 0, time.FixedZone("GST", 4*60*60))
	record := PromotionRecord{
		Code:      "SUMMER25",
		Percent:   decimal.RequireFromString("0.25"),
		ExpiresAt: time.Date(2026, 6, 11, 0, 0, 0, 0, time.UTC),
	}

	p := record.ToPromotion(now)

	require.NotNil(t, p)
	assert.Equal(t, 1, p.ExpiresInDays)
	assert.Nil(t, PromotionRecord{ExpiresAt: time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC)}.ToPromotion(now))
}

func TestInDoubleRange(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"0", true},
		{"1234.50", true},
		{"-3.67", true},
		{"1e20", true},
		{"1e308", true},
		{"1e309", false},
		{"1e30000000", false},
		{"1e-324", true},
		{"1e-325", false},
		{"1e-30000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, InDoubleRange(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestDomainError(t *testing.T) {
	err := NewDomainError(ErrCodeInvalidCurrency, "invalid currency")

	assert.Equal(t, "invalid currency", err.Error())
	assert.Equal(t, ErrCodeInvalidCurrency, err.Code)
}
