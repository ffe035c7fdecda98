// Package twin serves a fake of the FX and promotion services for local runs
// and end-to-end tests.
package twin

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Route identifies one faked endpoint.
type Route string

const (
	RouteFX    Route = "fx"
	RoutePromo Route = "promo"
)

// Fault is applied to every request on a route until cleared. A zero Status
// lets the request through after Delay.
type Fault struct {
	Delay  time.Duration
	Status int
}

// Config holds the global latency and failure injection.
type Config struct {
	// Latency is applied to every request with 80-120% jitter.
	Latency time.Duration

	// FailRate is the probability (0.0-1.0) of answering 500.
	FailRate float64
}

// Promotion is served by GET /promo/{code}.
type Promotion struct {
	Code          string
	Percent       decimal.Decimal
	ExpiresInDays int
}

// promotionBody renders decimals as JSON numbers, not strings.
type promotionBody struct {
	Code          string      `json:"code"`
	Percent       json.Number `json:"percent"`
	ExpiresInDays int         `json:"expiresInDays"`
}

// Server holds the fake upstream state. All methods are safe for concurrent use.
type Server struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.RWMutex
	rates  map[string]decimal.Decimal
	promos map[string]Promotion
	faults map[Route]Fault

	fxCalls    atomic.Int64
	promoCalls atomic.Int64
}

// New creates a twin seeded with USD at 3.67 and SUMMER25 at 25% for one day.
func New(cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "upstream-twin").Logger(),
		rates:  make(map[string]decimal.Decimal),
		promos: make(map[string]Promotion),
		faults: make(map[Route]Fault),
	}
	s.SetRate("USD", decimal.RequireFromString("3.67"))
	s.SetPromotion(Promotion{Code: "SUMMER25", Percent: decimal.RequireFromString("0.25"), ExpiresInDays: 1})
	return s
}

// SetRate sets the rate served for currency.
func (s *Server) SetRate(currency string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[strings.ToUpper(currency)] = rate
}

// SetPromotion adds or replaces a promotion. Codes match case-insensitively.
func (s *Server) SetPromotion(p Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[strings.ToUpper(p.Code)] = p
}

// SetFault injects f on route.
func (s *Server) SetFault(route Route, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = f
}

// ClearFaults removes every injected fault.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Route]Fault)
}

// FXCalls returns how many requests reached /fx/rate.
func (s *Server) FXCalls() int64 { return s.fxCalls.Load() }

// PromoCalls returns how many requests reached /promo/{code}.
func (s *Server) PromoCalls() int64 { return s.promoCalls.Load() }

// Handler returns the chi router serving /fx/rate, /promo/{code} and /health.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.latency)
		r.Use(s.randomFailure)

		r.With(s.count(&s.fxCalls), s.fault(RouteFX)).Get("/fx/rate", s.getRate)
		r.With(s.count(&s.promoCalls), s.fault(RoutePromo)).Get("/promo/{code}", s.getPromotion)
	})

	return r
}

func (s *Server) getRate(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(r.URL.Query().Get("currency"))

	s.mu.RLock()
	rate, ok := s.rates[currency]
	s.mu.RUnlock()

	if !ok {
		// A body without "rate" makes the client fall back to its default.
		writeJSON(w, http.StatusOK, map[string]string{"currency": currency})
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.Number{"rate": json.Number(rate.String())})
}

func (s *Server) getPromotion(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	s.mu.RLock()
	p, ok := s.promos[strings.ToUpper(code)]
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "promotion not found"})
		return
	}
	writeJSON(w, http.StatusOK, promotionBody{
		Code:          p.Code,
		Percent:       json.Number(p.Percent.String()),
		ExpiresInDays: p.ExpiresInDays,
	})
}

func (s *Server) count(counter *atomic.Int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) fault(route Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.RLock()
			f, ok := s.faults[route]
			s.mu.RUnlock()

			if ok {
				if !sleep(r, f.Delay) {
					return
				}
				if f.Status > 0 {
					writeJSON(w, f.Status, map[string]string{"error": "injected fault"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Latency > 0 {
			jitter := 0.8 + rand.Float64()*0.4
			if !sleep(r, time.Duration(float64(s.cfg.Latency)*jitter)) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) randomFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.FailRate > 0 && rand.Float64() < s.cfg.FailRate {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "simulated random failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("twin request")
	})
}

// sleep waits for d or until the client goes away. It reports whether the
// request is still live.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
