package restapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"commute.trackapp.dev/internal/app"
	"commute.trackapp.dev/internal/clock"
	"commute.trackapp.dev/internal/models"
)

const (
	anonymousClientKey = "__no_key__"
	limiterIdleTTL     = 10 * time.Minute
	limiterSweepEvery  = 5 * time.Minute
)

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimitMiddleware keeps a token bucket per API key.
type RateLimitMiddleware struct {
	mu       sync.RWMutex
	limiters map[string]*rateLimitClient

	rateLimit  rate.Limit
	burstSize  int
	exemptKeys map[string]struct{}
	invalidKey func(string) bool
	clock      clock.Clock

	cleanupTick *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewRateLimitMiddleware allows requestsPerInterval requests per interval for
// each key, with the same number as burst. A negative count disables limiting
// and zero rejects everything.
func NewRateLimitMiddleware(requestsPerInterval int, interval time.Duration, exemptKeys []string, clk clock.Clock) *RateLimitMiddleware {
	var limit rate.Limit
	switch {
	case requestsPerInterval < 0:
		limit = rate.Inf
	case requestsPerInterval == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(requestsPerInterval))
	}

	exempt := make(map[string]struct{}, len(exemptKeys))
	for _, key := range exemptKeys {
		if key = strings.TrimSpace(key); key != "" {
			exempt[key] = struct{}{}
		}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	rl := &RateLimitMiddleware{
		limiters:    make(map[string]*rateLimitClient),
		rateLimit:   limit,
		burstSize:   max(requestsPerInterval, 0),
		exemptKeys:  exempt,
		clock:       clk,
		cleanupTick: time.NewTicker(limiterSweepEvery),
		stopChan:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// WithKeyCheck makes requests whose key fails isInvalid share the anonymous
// bucket, so made-up keys cannot each claim a fresh one.
func (rl *RateLimitMiddleware) WithKeyCheck(isInvalid func(string) bool) *RateLimitMiddleware {
	rl.invalidKey = isInvalid
	return rl
}

func (rl *RateLimitMiddleware) clientKey(r *http.Request) string {
	key := app.RequestAPIKey(r)
	if key == "" || (rl.invalidKey != nil && rl.invalidKey(key)) {
		return anonymousClientKey
	}
	return key
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.clientKey(r)
			if _, ok := rl.exemptKeys[key]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.getLimiter(key).Allow() {
				rl.sendRateLimitExceeded(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	client, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		client.lastSeen.Store(now)
		return client.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if client, ok := rl.limiters[key]; ok {
		client.lastSeen.Store(now)
		return client.limiter
	}
	client = &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	client.lastSeen.Store(now)
	rl.limiters[key] = client
	return client.limiter
}

func (rl *RateLimitMiddleware) retryAfter() time.Duration {
	switch rl.rateLimit {
	case 0:
		return time.Hour
	case rate.Inf:
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(rl.rateLimit))
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retrySeconds := int(math.Ceil(rl.retryAfter().Seconds()))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(max(retrySeconds, 1)))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	body := models.NewResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later", nil, rl.clock)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce evicts limiters idle for longer than limiterIdleTTL.
func (rl *RateLimitMiddleware) cleanupOnce() {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, client := range rl.limiters {
		last := client.lastSeen.Load()
		if last == 0 {
			continue
		}
		if now.Sub(time.Unix(0, last)) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.cleanupTick.Stop()
	})
}
