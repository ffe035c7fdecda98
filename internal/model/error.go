package model

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Validation error codes
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidFareAmount = "INVALID_FARE_AMOUNT"
	ErrCodeInvalidCurrency   = "INVALID_CURRENCY"
	ErrCodeInvalidCabinClass = "INVALID_CABIN_CLASS"
)

// DomainError is a client-caused failure. Message is safe to return to callers.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Validation failures, in the order the validator checks them.
var (
	ErrInvalidRequest    = NewDomainError(ErrCodeInvalidRequest, "invalid request")
	ErrInvalidFareAmount = NewDomainError(ErrCodeInvalidFareAmount, "fareAmount must be > 0")
	ErrInvalidCurrency   = NewDomainError(ErrCodeInvalidCurrency, "invalid currency")
	ErrInvalidCabinClass = NewDomainError(ErrCodeInvalidCabinClass, "invalid cabinClass")
)
