package quote

import (
	"loyalty-quote/internal/model"

	"github.com/cockroachdb/errors"
)

// Downstream identifies a dependency the orchestrator waits on.
type Downstream string

const (
	DownstreamFX    Downstream = "fx"
	DownstreamPromo Downstream = "promo"
)

// downstreamOrder fixes the order in which fail-open warnings are appended.
var downstreamOrder = []Downstream{DownstreamFX, DownstreamPromo}

// FailureAction is what the orchestrator does when a downstream fails.
type FailureAction int

const (
	// FailRequest aborts the quote with the policy's error.
	FailRequest FailureAction = iota
	// FailOpen drops the downstream's contribution and adds the policy's warning.
	FailOpen
)

func (a FailureAction) String() string {
	switch a {
	case FailRequest:
		return "fail_request"
	case FailOpen:
		return "fail_open"
	default:
		return "unknown"
	}
}

// FailurePolicy declares how a downstream failure affects the quote.
type FailurePolicy struct {
	Action  FailureAction
	Err     error  // returned when Action is FailRequest
	Warning string // appended when Action is FailOpen
}

// Policies maps each downstream to its failure policy.
type Policies map[Downstream]FailurePolicy

// DefaultPolicies fails the request when the rate is unavailable and
// quotes without a promotion when the promotion is unavailable.
func DefaultPolicies() Policies {
	return Policies{
		DownstreamFX:    {Action: FailRequest, Err: ErrRateUnavailable},
		DownstreamPromo: {Action: FailOpen, Warning: model.WarnPromoUnavailable},
	}
}

// For returns the policy for d. Undeclared downstreams fail the request as internal errors.
func (p Policies) For(d Downstream) FailurePolicy {
	if policy, ok := p[d]; ok {
		return policy
	}
	return FailurePolicy{Action: FailRequest, Err: ErrInternal}
}

// Validate checks that every policy is complete.
func (p Policies) Validate() error {
	for d, policy := range p {
		switch policy.Action {
		case FailRequest:
			if policy.Err == nil {
				return errors.Newf("policy for %s fails the request without an error", d)
			}
		case FailOpen:
			if policy.Warning == "" {
				return errors.Newf("policy for %s fails open without a warning", d)
			}
		default:
			return errors.Newf("policy for %s has unknown action %d", d, policy.Action)
		}
	}
	return nil
}
