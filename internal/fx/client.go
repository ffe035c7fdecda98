package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loyalty-quote/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrRateUnavailable marks a lookup that failed after all attempts.
var ErrRateUnavailable = errors.New("fx rate unavailable")

// DefaultRate is used when the rate source answers without a "rate" field.
var DefaultRate = decimal.RequireFromString("3.67")

// Defaults for ClientConfig.
const (
	DefaultTimeout    = 1000 * time.Millisecond
	DefaultRetries    = 2
	DefaultRetryDelay = 200 * time.Millisecond
)

// RateSource returns the number of points earned per unit of the given currency.
type RateSource interface {
	EffectiveRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// ClientConfig holds the retry policy for the HTTP rate client.
type ClientConfig struct {
	BaseURL string

	// Timeout bounds each attempt, not the whole chain.
	Timeout time.Duration

	// Retries is the number of attempts after the first one.
	Retries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
}

// DefaultClientConfig returns the default retry policy for baseURL.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:    baseURL,
		Timeout:    DefaultTimeout,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

type client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewClient creates a rate client calling GET {BaseURL}/fx/rate?currency=XXX.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger zerolog.Logger) RateSource {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	return &client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		http:       httpClient,
		timeout:    cfg.Timeout,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With().Str("component", "fx-client").Logger(),
	}
}

// EffectiveRate fetches the rate, retrying transport errors, timeouts and
// unparseable responses with a fixed delay.
func (c *client) EffectiveRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	attempt := 0

	operation := func() error {
		attempt++
		r, err := c.fetch(ctx, currency)
		if err != nil {
			return err
		}
		rate = r
		return nil
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("currency", currency).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("fx rate attempt failed, retrying")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retries)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		c.logger.Error().
			Err(err).
			Str("currency", currency).
			Int("attempts", attempt).
			Msg("fx rate unavailable")
		return decimal.Zero, errors.Mark(errors.Wrapf(err, "fx rate for %q after %d attempts", currency, attempt), ErrRateUnavailable)
	}

	return rate, nil
}

type rateResponse struct {
	Rate *decimal.Decimal `json:"rate"`
}

// fetch performs a single attempt bounded by the per-attempt timeout.
func (c *client) fetch(ctx context.Context, currency string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/fx/rate?currency=%s", c.baseURL, url.QueryEscape(currency))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, backoff.Permanent(errors.Wrap(err, "build fx request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "fx request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return decimal.Zero, errors.Newf("fx endpoint %d: %s", resp.StatusCode, string(b))
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode fx response")
	}

	if body.Rate == nil {
		c.logger.Warn().
			Str("currency", currency).
			Str("default_rate", DefaultRate.String()).
			Msg("fx response has no rate, using default")
		return DefaultRate, nil
	}

	if !model.InDoubleRange(*body.Rate) {
		return decimal.Zero, errors.New("fx rate out of range")
	}

	if !body.Rate.IsPositive() {
		return decimal.Zero, errors.Newf("fx rate %s is not positive", body.Rate.String())
	}

	return *body.Rate, nil
}
