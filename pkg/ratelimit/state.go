// Package ratelimit tracks the upstream query-cost bucket and paces requests.
// The upstream reports its leaky-bucket state in extensions.cost.throttleStatus
// on every response; the tracker keeps the latest report (optionally shared
// across processes through Redis) and delays requests that would run the
// bucket dry.
package ratelimit

import (
	"math"
	"time"
)

// Thresholds for pacing decisions, as fractions of MaximumAvailable.
const (
	// ThresholdCritical makes the tracker wait until the bucket has restored
	// past this fraction before letting a request through.
	ThresholdCritical = 0.10

	// ThresholdWarning marks the bucket as draining.
	ThresholdWarning = 0.25

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 0.50
)

// Status is a single throttle report from the upstream.
type Status struct {
	MaximumAvailable   float64
	CurrentlyAvailable float64
	RestoreRate        float64
}

// CostState represents the last known cost bucket state.
type CostState struct {
	// MaximumAvailable is the bucket size.
	MaximumAvailable float64 `json:"maximum_available"`

	// CurrentlyAvailable is the bucket level at LastUpdate.
	CurrentlyAvailable float64 `json:"currently_available"`

	// RestoreRate is the number of points restored per second.
	RestoreRate float64 `json:"restore_rate"`

	// LastUpdate is when the upstream reported this state.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when the bucket is at least ThresholdHealthy full.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *CostState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// AvailableAt projects the bucket level at t, accounting for restoration
// since LastUpdate.
func (s *CostState) AvailableAt(t time.Time) float64 {
	elapsed := t.Sub(s.LastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	projected := s.CurrentlyAvailable + s.RestoreRate*elapsed
	if s.MaximumAvailable > 0 {
		projected = math.Min(projected, s.MaximumAvailable)
	}
	return projected
}

// NeedsWait returns true if the projected level at t is below the critical
// threshold.
func (s *CostState) NeedsWait(t time.Time) bool {
	if s.MaximumAvailable <= 0 {
		return false
	}
	return s.AvailableAt(t) < s.MaximumAvailable*ThresholdCritical
}

// IsDraining returns true when the level is below the warning threshold but
// not yet critical.
func (s *CostState) IsDraining(t time.Time) bool {
	if s.MaximumAvailable <= 0 {
		return false
	}
	return s.AvailableAt(t) < s.MaximumAvailable*ThresholdWarning && !s.NeedsWait(t)
}

// WaitDuration returns how long to wait at t until the bucket has restored
// past the critical threshold. Returns 0 if no wait is needed.
func (s *CostState) WaitDuration(t time.Time) time.Duration {
	if !s.NeedsWait(t) || s.RestoreRate <= 0 {
		return 0
	}
	deficit := s.MaximumAvailable*ThresholdCritical - s.AvailableAt(t)
	return time.Duration(deficit / s.RestoreRate * float64(time.Second))
}

// UpdateHealth updates IsHealthy from CurrentlyAvailable.
func (s *CostState) UpdateHealth() {
	s.IsHealthy = s.MaximumAvailable <= 0 ||
		s.CurrentlyAvailable >= s.MaximumAvailable*ThresholdHealthy
}
