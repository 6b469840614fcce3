// Package ratelimit throttles clients that send requests too quickly.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ora-civic/ora/internal/rest/middleware/auth"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/ora-civic/ora/pkg/utils"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	errBlocked    = "temporarily blocked for repeated rate limit violations"
	errRateLimit  = "rate limit exceeded"
	headerRetryAt = "Retry-After"
)

type limiterState struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	strikes      int       // Number of times client has violated rate limit
	blockedUntil time.Time // Time until client is blocked for repeated violations
}

// Middleware implements rate limiting for API requests. Authenticated callers
// are limited per account and anonymous ones per IP address.
type Middleware struct {
	limiters *utils.TTLMap[string, *limiterState]
	config   *config.RateLimit
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new rate limiting middleware.
func New(config *config.RateLimit, logger *zap.Logger) *Middleware {
	// Use the longer of block duration or burst window * 2 for TTL
	ttl := time.Second * time.Duration(config.BurstSize*2)
	if blockTTL := time.Second * time.Duration(config.BlockDuration*2); blockTTL > ttl {
		ttl = blockTTL
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &Middleware{
		limiters: utils.NewTTLMap[string, *limiterState](ttl),
		config:   config,
		logger:   logger.Named("ratelimit"),
		now:      time.Now,
	}
}

// Close stops the limiter cleanup loop.
func (m *Middleware) Close() {
	m.limiters.Close()
}

// AsRESTMiddleware returns a bunrouter middleware handler for rate limiting.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		key := clientKey(req)
		if allowed, retryAfter, msg := m.checkRateLimit(key); !allowed {
			if retryAfter > 0 {
				w.Header().Set(headerRetryAt, fmt.Sprintf("%.0f", retryAfter.Seconds()))
			}
			http.Error(w, msg, http.StatusTooManyRequests)
			return nil
		}
		return next(w, req)
	}
}

// clientKey identifies the client a request is charged to.
func clientKey(req bunrouter.Request) string {
	if caller := auth.FromContext(req.Context()); caller.ID != "" {
		return "user:" + caller.ID
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	return "ip:" + host
}

// getLimiter returns the rate limiter for a client, creating it on first use.
func (m *Middleware) getLimiter(key string) *limiterState {
	return m.limiters.GetOrSet(key, func() *limiterState {
		return &limiterState{
			limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize),
		}
	})
}

// checkRateLimit checks if the request should be allowed and updates violation tracking.
func (m *Middleware) checkRateLimit(key string) (bool, time.Duration, string) {
	state := m.getLimiter(key)

	state.mu.Lock()
	defer state.mu.Unlock()

	now := m.now()

	// Check if client is blocked
	if !state.blockedUntil.IsZero() && now.Before(state.blockedUntil) {
		retryAfter := state.blockedUntil.Sub(now).Round(time.Second)
		m.logger.Debug("Client is temporarily blocked",
			zap.String("client", key),
			zap.Duration("retry_after", retryAfter))
		return false, retryAfter, errBlocked
	}

	if state.limiter.AllowN(now, 1) {
		state.strikes = 0
		return true, 0, ""
	}

	state.strikes++
	if m.config.StrikeLimit > 0 && state.strikes >= m.config.StrikeLimit {
		blockDuration := time.Duration(m.config.BlockDuration) * time.Second
		state.blockedUntil = now.Add(blockDuration)
		state.strikes = 0

		m.logger.Debug("Client exceeded strike limit and is now blocked",
			zap.String("client", key),
			zap.Int("strikes", m.config.StrikeLimit),
			zap.Duration("block_duration", blockDuration))

		return false, blockDuration, errBlocked
	}

	reservation := state.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	m.logger.Debug("Rate limit exceeded",
		zap.String("client", key),
		zap.Int("strikes", state.strikes))

	return false, delay, errRateLimit
}
