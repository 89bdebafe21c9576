package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicyFixedDelay(t *testing.T) {
	t.Parallel()
	p := DefaultReconnectPolicy()

	for attempt := 1; attempt <= 10; attempt++ {
		assert.Equal(t, 5*time.Second, p.Delay(attempt))
	}
	assert.False(t, p.Exhausted(10))
	assert.True(t, p.Exhausted(11))
}

func TestReconnectPolicyExponentialCapped(t *testing.T) {
	t.Parallel()
	p := ReconnectPolicy{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
	}

	assert.Equal(t, 250*time.Millisecond, p.Delay(1))
	assert.Equal(t, 500*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(8))
	assert.False(t, p.Exhausted(1000))
}
