package quote

import (
	"context"
	"runtime/debug"

	"loyalty-quote/internal/fx"
	"loyalty-quote/internal/model"
	"loyalty-quote/internal/points"
	"loyalty-quote/internal/promo"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service produces point quotes.
type Service interface {
	// Quote validates req, looks up the rate and promotion concurrently and
	// computes the points. Errors are *model.DomainError for bad input, or
	// marked with ErrRateUnavailable or ErrInternal.
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.QuoteResult, error)
}

// FailureRecorder counts downstream failures.
type FailureRecorder interface {
	DownstreamFailure(downstream string)
}

type nopRecorder struct{}

func (nopRecorder) DownstreamFailure(string) {}

// Option configures the service.
type Option func(*service)

// WithPolicies replaces the default failure policies.
func WithPolicies(p Policies) Option {
	return func(s *service) { s.policies = p }
}

// WithFailureRecorder reports downstream failures to r.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(s *service) {
		if r != nil {
			s.recorder = r
		}
	}
}

type service struct {
	validator Validator
	rates     fx.RateSource
	promos    promo.Source
	calc      points.Calculator
	policies  Policies
	recorder  FailureRecorder
	logger    zerolog.Logger
}

// NewService creates the quote orchestrator. A nil rate source makes every
// quote fail as rate-unavailable; a nil promotion source makes every promo
// code fail open.
func NewService(
	validator Validator,
	rates fx.RateSource,
	promos promo.Source,
	calc points.Calculator,
	logger zerolog.Logger,
	opts ...Option,
) Service {
	s := &service{
		validator: validator,
		rates:     rates,
		promos:    promos,
		calc:      calc,
		policies:  DefaultPolicies(),
		recorder:  nopRecorder{},
		logger:    logger.With().Str("service", "quote").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookupResult is the settled outcome of one downstream lookup.
type lookupResult struct {
	downstream Downstream
	rate       decimal.Decimal
	promotion  *model.Promotion
	err        error
}

func (s *service) Quote(ctx context.Context, req *model.QuoteRequest) (result *model.QuoteResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("quote panicked")
			result = nil
			err = errors.Mark(errors.Newf("quote panicked: %v", r), ErrInternal)
		}
	}()

	s.logger.Debug().Str("stage", string(StageValidating)).Msg("quote stage")
	q, err := s.validator.Validate(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("quote rejected")
		return nil, err
	}

	s.logger.Debug().
		Str("stage", string(StageAwaitingDownstreams)).
		Str("currency", q.Currency).
		Bool("has_promo_code", q.HasPromoCode()).
		Msg("quote stage")
	rate, promotion, warnings, err := s.awaitDownstreams(ctx, q)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("stage", string(StageCombining)).Msg("quote stage")
	res := s.calc.Calculate(q, rate, promotion)
	res.Warnings = append(res.Warnings, warnings...)
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	return &res, nil
}

// awaitDownstreams runs the rate and promotion lookups concurrently. It
// returns as soon as a failure that fails the request arrives; any lookup
// still in flight delivers into the buffered channel and is discarded.
func (s *service) awaitDownstreams(ctx context.Context, q model.ValidatedQuote) (decimal.Decimal, *model.Promotion, []string, error) {
	if s.rates == nil {
		s.recorder.DownstreamFailure(string(DownstreamFX))
		s.logger.Error().Msg("no rate source configured")
		return decimal.Zero, nil, nil, s.fail(DownstreamFX, errors.New("no rate source configured"))
	}

	// Lookups are bounded by the sources' own timeouts, not by the caller.
	lookupCtx := context.WithoutCancel(ctx)
	results := make(chan lookupResult, 2)

	pending := 1
	go s.lookup(DownstreamFX, results, func(r *lookupResult) {
		r.rate, r.err = s.rates.EffectiveRate(lookupCtx, q.Currency)
		if r.err == nil && !r.rate.IsPositive() {
			r.err = errors.Mark(errors.Newf("rate source returned non-positive rate %s", r.rate), ErrInternal)
		}
	})

	if q.HasPromoCode() {
		pending++
		go s.lookup(DownstreamPromo, results, func(r *lookupResult) {
			if s.promos == nil {
				r.err = errors.Mark(errors.New("no promotion source configured"), promo.ErrPromotionUnavailable)
				return
			}
			r.promotion, r.err = s.promos.Promotion(lookupCtx, q.PromoCode)
		})
	}

	var (
		rate      decimal.Decimal
		promotion *model.Promotion
	)
	failedOpen := make(map[Downstream]string, 1)

	for ; pending > 0; pending-- {
		r := <-results

		if r.err != nil {
			if errors.Is(r.err, ErrInternal) {
				s.logger.Error().Err(r.err).Str("downstream", string(r.downstream)).Msg("downstream lookup violated its contract")
				return decimal.Zero, nil, nil, r.err
			}

			s.recorder.DownstreamFailure(string(r.downstream))
			policy := s.policies.For(r.downstream)
			s.logger.Warn().
				Err(r.err).
				Str("downstream", string(r.downstream)).
				Stringer("action", policy.Action).
				Msg("downstream lookup failed")

			if policy.Action == FailOpen {
				failedOpen[r.downstream] = policy.Warning
				continue
			}
			return decimal.Zero, nil, nil, s.fail(r.downstream, r.err)
		}

		switch r.downstream {
		case DownstreamFX:
			rate = r.rate
		case DownstreamPromo:
			promotion = r.promotion
		}
	}

	if !rate.IsPositive() {
		return decimal.Zero, nil, nil, errors.Mark(errors.New("no rate after downstream lookups"), ErrInternal)
	}

	var warnings []string
	for _, d := range downstreamOrder {
		if w, ok := failedOpen[d]; ok {
			warnings = append(warnings, w)
		}
	}

	return rate, promotion, warnings, nil
}

// fail wraps cause with the error the policy for d declares.
func (s *service) fail(d Downstream, cause error) error {
	policy := s.policies.For(d)
	target := policy.Err
	if policy.Action != FailRequest || target == nil {
		target = ErrInternal
	}
	return errors.Mark(errors.Wrapf(cause, "%s lookup", d), target)
}

// lookup runs fn and delivers exactly one result, converting panics into internal errors.
func (s *service) lookup(d Downstream, results chan<- lookupResult, fn func(*lookupResult)) {
	res := lookupResult{downstream: d}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("downstream", string(d)).
				Str("stack", string(debug.Stack())).
				Msg("downstream lookup panicked")
			res = lookupResult{
				downstream: d,
				err:        errors.Mark(errors.Newf("%s lookup panicked: %v", d, r), ErrInternal),
			}
		}
		results <- res
	}()

	fn(&res)
}
