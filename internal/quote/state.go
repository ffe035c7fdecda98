package quote

import (
	"loyalty-quote/internal/model"

	"github.com/cockroachdb/errors"
)

var (
	// ErrRateUnavailable means no effective rate could be obtained.
	ErrRateUnavailable = errors.New("fx service unavailable")
	// ErrInternal covers defects: panics and violated source contracts.
	ErrInternal = errors.New("internal error")
)

// Stage is a non-terminal step of a quote.
type Stage string

const (
	StageValidating          Stage = "validating"
	StageAwaitingDownstreams Stage = "awaiting_downstreams"
	StageCombining           Stage = "combining"
	StageResponding          Stage = "responding"
)

// Outcome is the terminal state of a quote.
type Outcome string

const (
	OutcomeSucceeded        Outcome = "succeeded"
	OutcomeFailedValidation Outcome = "failed_validation"
	OutcomeFailedUpstream   Outcome = "failed_upstream"
	OutcomeFailedInternal   Outcome = "failed_internal"
)

// OutcomeOf classifies the error returned by Service.Quote.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSucceeded
	}

	var domainErr *model.DomainError
	switch {
	case errors.As(err, &domainErr):
		return OutcomeFailedValidation
	case errors.Is(err, ErrInternal):
		return OutcomeFailedInternal
	case errors.Is(err, ErrRateUnavailable):
		return OutcomeFailedUpstream
	default:
		return OutcomeFailedInternal
	}
}
