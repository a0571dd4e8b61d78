package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vaultsig/vaultsig/vaulttest"
)

func TestRateLimiterZeroIsUnlimited(t *testing.T) {
	l := newRateLimiter(0, nil)
	for i := 0; i < 1000; i++ {
		assert.True(t, l.allow())
	}
}

func TestRateLimiterBucket(t *testing.T) {
	clock := vaulttest.NewClock(time.Unix(1700000000, 0))
	l := newRateLimiter(3, clock.Now)

	// Initial burst of one second's worth.
	assert.True(t, l.allow())
	assert.True(t, l.allow())
	assert.True(t, l.allow())
	assert.False(t, l.allow())

	// Partial refill.
	clock.Advance(400 * time.Millisecond)
	assert.True(t, l.allow())
	assert.False(t, l.allow())

	// Tokens cap at the burst size regardless of idle time.
	clock.Advance(time.Hour)
	assert.True(t, l.allow())
	assert.True(t, l.allow())
	assert.True(t, l.allow())
	assert.False(t, l.allow())
}
