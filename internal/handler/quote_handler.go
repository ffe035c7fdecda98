package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"loyalty-quote/internal/middleware"
	"loyalty-quote/internal/model"
	"loyalty-quote/internal/quote"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds the request body.
const maxBodyBytes = 64 << 10

// QuoteRecorder observes handled quote requests.
type QuoteRecorder interface {
	ObserveQuote(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuote(string, time.Duration) {}

// QuoteHandler handles POST /v1/points/quote.
type QuoteHandler struct {
	service  quote.Service
	recorder QuoteRecorder
	logger   zerolog.Logger
}

// NewQuoteHandler creates a new quote handler. recorder may be nil.
func NewQuoteHandler(service quote.Service, recorder QuoteRecorder, logger zerolog.Logger) *QuoteHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &QuoteHandler{
		service:  service,
		recorder: recorder,
		logger:   logger.With().Str("handler", "quote").Logger(),
	}
}

// Create handles POST /v1/points/quote requests.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()

	outcome := h.create(w, r, logger)

	h.recorder.ObserveQuote(string(outcome), time.Since(start))
	logger.Info().
		Str("outcome", string(outcome)).
		Dur("duration", time.Since(start)).
		Msg("quote handled")
}

func (h *QuoteHandler) create(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) quote.Outcome {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", logger)
		return quote.OutcomeFailedValidation
	}

	req, err := decodeQuoteRequest(w, r)
	if err != nil {
		logger.Debug().Err(err).Msg("rejecting request body")
		writeError(w, http.StatusBadRequest, model.ErrInvalidRequest.Message, logger)
		return quote.OutcomeFailedValidation
	}

	result, err := h.service.Quote(r.Context(), req)
	outcome := quote.OutcomeOf(err)
	switch outcome {
	case quote.OutcomeSucceeded:
	case quote.OutcomeFailedValidation:
		var domainErr *model.DomainError
		message := model.ErrInvalidRequest.Message
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		writeError(w, http.StatusBadRequest, message, logger)
		return outcome
	case quote.OutcomeFailedUpstream:
		logger.Warn().Err(err).Msg("rate unavailable")
		writeError(w, http.StatusBadGateway, quote.ErrRateUnavailable.Error(), logger)
		return outcome
	default:
		logger.Error().Err(err).Msg("quote failed")
		writeError(w, http.StatusInternalServerError, quote.ErrInternal.Error(), logger)
		return quote.OutcomeFailedInternal
	}

	logger.Debug().Str("stage", string(quote.StageResponding)).Msg("quote stage")
	if !writeJSON(w, http.StatusOK, result, logger) {
		return quote.OutcomeFailedInternal
	}

	return quote.OutcomeSucceeded
}

// decodeQuoteRequest reads the whole body. Empty, oversized, or malformed
// bodies and trailing data are rejected, as is a fareAmount no double can hold.
func decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (*model.QuoteRequest, error) {
	if r.Body == nil {
		return nil, errors.New("missing body")
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty body")
	}

	var req model.QuoteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	if !model.InDoubleRange(req.FareAmount) {
		return nil, errors.New("fareAmount out of range")
	}

	return &req, nil
}
