package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{Initial: 10 * time.Second, Max: 10 * time.Minute, Multiplier: 2}

	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(2))
	assert.Equal(t, 40*time.Second, p.Delay(3))
	assert.Equal(t, 10*time.Minute, p.Delay(20))
}

func TestPolicyDelayWithJitterStaysBounded(t *testing.T) {
	p := Policy{Initial: time.Minute, Max: 30 * time.Minute, Multiplier: 2, Jitter: 0.5}

	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Delay(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Minute)
	}
}

func TestPolicyRetry(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: 5 * time.Millisecond}

	t.Run("Succeeds after transient failures", func(t *testing.T) {
		calls := 0
		notified := 0
		err := p.Retry(func() error {
			calls++
			if calls < 3 {
				return errors.New("temporary")
			}
			return nil
		}, 5, func(error, time.Duration) { notified++ })

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, notified)
	})

	t.Run("Permanent error stops immediately", func(t *testing.T) {
		calls := 0
		permanent := errors.New("constraint")
		err := p.Retry(func() error {
			calls++
			return Permanent(permanent)
		}, 5, nil)

		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})
}
