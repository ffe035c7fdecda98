package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"loyalty-quote/internal/fx"
	"loyalty-quote/internal/model"
	"loyalty-quote/internal/points"
	"loyalty-quote/internal/promo"
	"loyalty-quote/internal/quote"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuoteService is a mock implementation of quote.Service.
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.QuoteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuoteResult), args.Error(1)
}

// recordingRecorder captures observed outcomes.
type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) ObserveQuote(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// failingWriter accepts headers but fails every body write.
type failingWriter struct {
	header http.Header
	status int
}

func (f *failingWriter) Header() http.Header {
	if f.header == nil {
		f.header = http.Header{}
	}
	return f.header
}

func (f *failingWriter) WriteHeader(status int) { f.status = status }

func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

const validBody = `{"fareAmount":1234.50,"currency":"USD","customerTier":"SILVER","cabinClass":"ECONOMY","promoCode":"SUMMER25"}`

func exampleResult() *model.QuoteResult {
	return &model.QuoteResult{
		BasePoints:      4530,
		TierBonus:       679,
		PromoBonus:      1132,
		TotalPoints:     6341,
		EffectiveFxRate: 3.67,
		Warnings:        []string{model.WarnPromoExpiresSoon},
	}
}

func TestQuoteHandler_Create(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		body            string
		mockReturn      *model.QuoteResult
		mockError       error
		expectService   bool
		expectedStatus  int
		expectedBody    string
		expectedOutcome quote.Outcome
	}{
		{
			name:            "Success",
			method:          http.MethodPost,
			body:            validBody,
			mockReturn:      exampleResult(),
			expectService:   true,
			expectedStatus:  http.StatusOK,
			expectedBody:    `{"basePoints":4530,"tierBonus":679,"promoBonus":1132,"totalPoints":6341,"effectiveFxRate":3.67,"warnings":["PROMO_EXPIRES_SOON"]}`,
			expectedOutcome: quote.OutcomeSucceeded,
		},
		{
			name:            "Empty body",
			method:          http.MethodPost,
			body:            "",
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Whitespace body",
			method:          http.MethodPost,
			body:            "  \n ",
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Malformed JSON",
			method:          http.MethodPost,
			body:            `{"fareAmount":`,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Wrong field type",
			method:          http.MethodPost,
			body:            `{"fareAmount":100,"currency":42}`,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Trailing data",
			method:          http.MethodPost,
			body:            validBody + `{}`,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Fare beyond double range",
			method:          http.MethodPost,
			body:            `{"fareAmount":1e30000000,"currency":"USD","customerTier":"SILVER","cabinClass":"ECONOMY"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Fare precision beyond double range",
			method:          http.MethodPost,
			body:            `{"fareAmount":1e-30000000,"currency":"USD","customerTier":"SILVER","cabinClass":"ECONOMY"}`,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"invalid request"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Validation error",
			method:          http.MethodPost,
			body:            validBody,
			mockError:       model.ErrInvalidFareAmount,
			expectService:   true,
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    `{"error":"fareAmount must be > 0"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
		{
			name:            "Rate unavailable",
			method:          http.MethodPost,
			body:            validBody,
			mockError:       cerrors.Mark(cerrors.New("dial tcp: connection refused"), quote.ErrRateUnavailable),
			expectService:   true,
			expectedStatus:  http.StatusBadGateway,
			expectedBody:    `{"error":"fx service unavailable"}`,
			expectedOutcome: quote.OutcomeFailedUpstream,
		},
		{
			name:            "Internal error does not leak details",
			method:          http.MethodPost,
			body:            validBody,
			mockError:       cerrors.Mark(cerrors.New("nil pointer in calculator"), quote.ErrInternal),
			expectService:   true,
			expectedStatus:  http.StatusInternalServerError,
			expectedBody:    `{"error":"internal error"}`,
			expectedOutcome: quote.OutcomeFailedInternal,
		},
		{
			name:            "Method not allowed",
			method:          http.MethodGet,
			body:            "",
			expectedStatus:  http.StatusMethodNotAllowed,
			expectedBody:    `{"error":"method not allowed"}`,
			expectedOutcome: quote.OutcomeFailedValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockQuoteService)
			if tt.expectService {
				mockService.On("Quote", mock.Anything, mock.AnythingOfType("*model.QuoteRequest")).
					Return(tt.mockReturn, tt.mockError)
			}
			recorder := &recordingRecorder{}

			handler := NewQuoteHandler(mockService, recorder, zerolog.Nop())

			req := httptest.NewRequest(tt.method, "/v1/points/quote", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, []string{string(tt.expectedOutcome)}, recorder.outcomes)

			if tt.expectService {
				mockService.AssertExpectations(t)
			} else {
				mockService.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestQuoteHandler_Create_DecodesRequest(t *testing.T) {
	mockService := new(MockQuoteService)
	mockService.On("Quote", mock.Anything, mock.MatchedBy(func(req *model.QuoteRequest) bool {
		return req.FareAmount.String() == "1234.5" &&
			req.Currency == "USD" &&
			req.CustomerTier == "SILVER" &&
			req.CabinClass == "ECONOMY" &&
			req.PromoCode != nil && *req.PromoCode == "SUMMER25"
	})).Return(exampleResult(), nil)

	handler := NewQuoteHandler(mockService, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/points/quote", strings.NewReader(validBody))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestQuoteHandler_Create_LargeFareIsCapped(t *testing.T) {
	service := quote.NewService(
		quote.NewValidator([]string{"USD"}),
		fx.NewStubSource(),
		promo.NewStubSource(),
		points.NewCalculator(),
		zerolog.Nop(),
	)
	handler := NewQuoteHandler(service, nil, zerolog.Nop())

	body := `{"fareAmount":1e20,"currency":"USD","customerTier":"PLATINUM","cabinClass":"ECONOMY","promoCode":"SUMMER25"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/points/quote", strings.NewReader(body))
	w := httptest.NewRecorder()

	start := time.Now()
	handler.Create(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, time.Since(start), time.Second)

	var result model.QuoteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Positive(t, result.BasePoints)
	assert.Positive(t, result.TierBonus)
	assert.Positive(t, result.PromoBonus)
	assert.Equal(t, points.Cap, result.TotalPoints)
}

func TestQuoteHandler_Create_BodyTooLarge(t *testing.T) {
	mockService := new(MockQuoteService)
	handler := NewQuoteHandler(mockService, nil, zerolog.Nop())

	body := `{"currency":"` + strings.Repeat("X", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/points/quote", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
	mockService.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestQuoteHandler_Create_EmptyWarningsSerialiseAsArray(t *testing.T) {
	mockService := new(MockQuoteService)
	mockService.On("Quote", mock.Anything, mock.Anything).Return(&model.QuoteResult{
		BasePoints:      367,
		TotalPoints:     367,
		EffectiveFxRate: 3.67,
		Warnings:        []string{},
	}, nil)

	handler := NewQuoteHandler(mockService, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/v1/points/quote", strings.NewReader(validBody))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "[]", string(body["warnings"]))
	assert.NotContains(t, body, "error")
}

func TestQuoteHandler_Create_WriteFailureIsLogged(t *testing.T) {
	mockService := new(MockQuoteService)
	mockService.On("Quote", mock.Anything, mock.Anything).Return(exampleResult(), nil)

	var logs strings.Builder
	handler := NewQuoteHandler(mockService, nil, zerolog.New(&logs))

	req := httptest.NewRequest(http.MethodPost, "/v1/points/quote", strings.NewReader(validBody))
	w := &failingWriter{}

	assert.NotPanics(t, func() { handler.Create(w, req) })
	assert.Equal(t, http.StatusOK, w.status)
	assert.Contains(t, logs.String(), "failed to write response")
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()

	ok := writeJSON(w, http.StatusOK, map[string]interface{}{"bad": make(chan int)}, zerolog.Nop())

	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
