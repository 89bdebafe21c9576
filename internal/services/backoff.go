package services

import (
	"math"
	"time"
)

// ReconnectPolicy controls how transient closures are retried
type ReconnectPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// MaxAttempts bounds consecutive failed attempts before the session is
	// closed with ErrReconnectExhausted. Zero retries forever.
	MaxAttempts int
}

// DefaultReconnectPolicy retries every 5 seconds, ten times
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: 5 * time.Second,
		Multiplier:   1.0,
		MaxDelay:     time.Minute,
		MaxAttempts:  10,
	}
}

// Delay returns the wait before attempt N (1-based)
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.InitialDelay <= 0 {
		return max(p.InitialDelay, 0)
	}
	mult := p.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Exhausted reports whether attempt exceeds the policy bound
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
