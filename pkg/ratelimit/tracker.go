package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cost tracking.
var (
	costAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_cost_available",
		Help: "Query cost points currently available in the upstream bucket",
	})

	costWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cost_waits_total",
		Help: "Total number of requests delayed to let the cost bucket restore",
	})

	costWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_cost_wait_seconds",
		Help:    "Time spent waiting for the cost bucket to restore",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// stateTTL bounds how long a shared state survives in Redis without updates.
const stateTTL = 10 * time.Minute

// Tracker monitors the upstream cost bucket and paces requests.
// With a nil Redis client the state is kept in process memory.
type Tracker struct {
	redis  *redis.Client
	store  string
	logger zerolog.Logger

	mu    sync.Mutex
	local *CostState
}

// NewTracker creates a tracker for one upstream store.
func NewTracker(redisClient *redis.Client, store string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		store:  store,
		logger: logger,
	}
}

// RedisKey returns the key the state is shared under.
func (t *Tracker) RedisKey() string {
	return fmt.Sprintf("catalog:%s:cost_state", t.store)
}

// GetState returns the last known state, or nil if none has been reported.
func (t *Tracker) GetState(ctx context.Context) (*CostState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return nil, nil
		}
		state := *t.local
		return &state, nil
	}

	data, err := t.redis.Get(ctx, t.RedisKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cost state: %w", err)
	}

	var state CostState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse cost state: %w", err)
	}
	return &state, nil
}

// Update stores a throttle report from the upstream.
func (t *Tracker) Update(ctx context.Context, status Status) error {
	state := &CostState{
		MaximumAvailable:   status.MaximumAvailable,
		CurrentlyAvailable: status.CurrentlyAvailable,
		RestoreRate:        status.RestoreRate,
		LastUpdate:         time.Now(),
	}
	state.UpdateHealth()

	costAvailable.Set(status.CurrentlyAvailable)

	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
	} else {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal cost state: %w", err)
		}
		if err := t.redis.Set(ctx, t.RedisKey(), data, stateTTL).Err(); err != nil {
			return fmt.Errorf("store cost state in redis: %w", err)
		}
	}

	now := state.LastUpdate
	switch {
	case state.NeedsWait(now):
		t.logger.Warn().
			Float64("available", state.CurrentlyAvailable).
			Float64("maximum", state.MaximumAvailable).
			Msg("Cost bucket critical - requests will wait")
	case state.IsDraining(now):
		t.logger.Info().
			Float64("available", state.CurrentlyAvailable).
			Msg("Cost bucket draining")
	default:
		t.logger.Debug().
			Float64("available", state.CurrentlyAvailable).
			Bool("is_healthy", state.IsHealthy).
			Msg("Cost bucket state updated")
	}

	return nil
}

// Wait blocks until the projected bucket level allows another request.
// State lookup failures are logged and let the request through.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Cost state unavailable - not pacing")
		return nil
	}
	if state == nil {
		return nil
	}

	wait := state.WaitDuration(time.Now())
	if wait <= 0 {
		return nil
	}

	t.logger.Warn().
		Float64("available", state.AvailableAt(time.Now())).
		Dur("wait_duration", wait).
		Msg("Cost bucket low - delaying request")
	costWaitsTotal.Inc()
	costWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
