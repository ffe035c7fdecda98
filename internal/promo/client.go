package promo

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

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds the single promotion request.
const DefaultTimeout = 1000 * time.Millisecond

type client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a promotion client calling GET {baseURL}/promo/{code}.
// It makes exactly one attempt per lookup.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger zerolog.Logger) Source {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
		logger:  logger.With().Str("component", "promo-client").Logger(),
	}
}

type promotionResponse struct {
	Code          string           `json:"code"`
	Percent       *decimal.Decimal `json:"percent"`
	ExpiresInDays *int             `json:"expiresInDays"`
}

// Promotion fetches promotion terms. Any failure is marked ErrPromotionUnavailable.
func (c *client) Promotion(ctx context.Context, code string) (*model.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}

	p, err := c.fetch(ctx, code)
	if err != nil {
		c.logger.Warn().Err(err).Str("promo_code", code).Msg("promotion lookup failed")
		return nil, errors.Mark(err, ErrPromotionUnavailable)
	}

	return p, nil
}

func (c *client) fetch(ctx context.Context, code string) (*model.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/promo/%s", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build promo request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "promo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Newf("promo endpoint %d: %s", resp.StatusCode, string(b))
	}

	var body promotionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode promo response")
	}

	p := &model.Promotion{
		Code:    body.Code,
		Percent: decimal.Zero,
	}
	if body.Percent != nil {
		if !model.InDoubleRange(*body.Percent) {
			return nil, errors.New("promo percent out of range")
		}
		p.Percent = *body.Percent
	}
	if body.ExpiresInDays != nil {
		p.ExpiresInDays = *body.ExpiresInDays
	}

	return p, nil
}
