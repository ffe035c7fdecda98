package quote

import (
	"strings"

	"loyalty-quote/internal/model"
)

// Validator turns a raw request into a ValidatedQuote.
type Validator interface {
	// Validate checks fareAmount, currency and cabinClass in that order and
	// returns the first failure as a *model.DomainError.
	Validate(req *model.QuoteRequest) (model.ValidatedQuote, error)
}

type validator struct {
	allowed map[string]struct{}
}

// NewValidator creates a validator accepting the given currencies. Entries
// are matched case-insensitively.
func NewValidator(allowedCurrencies []string) Validator {
	allowed := make(map[string]struct{}, len(allowedCurrencies))
	for _, c := range allowedCurrencies {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &validator{allowed: allowed}
}

func (v *validator) Validate(req *model.QuoteRequest) (model.ValidatedQuote, error) {
	if req == nil {
		return model.ValidatedQuote{}, model.ErrInvalidRequest
	}

	if !req.FareAmount.IsPositive() || !model.InDoubleRange(req.FareAmount) {
		return model.ValidatedQuote{}, model.ErrInvalidFareAmount
	}

	currency := strings.ToUpper(req.Currency)
	if _, ok := v.allowed[currency]; !ok || currency == "" {
		return model.ValidatedQuote{}, model.ErrInvalidCurrency
	}

	cabin, ok := model.ParseCabinClass(req.CabinClass)
	if !ok {
		return model.ValidatedQuote{}, model.ErrInvalidCabinClass
	}

	q := model.ValidatedQuote{
		FareAmount: req.FareAmount,
		Currency:   currency,
		Tier:       model.ParseCustomerTier(req.CustomerTier),
		Cabin:      cabin,
	}
	if req.PromoCode != nil {
		q.PromoCode = *req.PromoCode
	}

	return q, nil
}
