package schedule

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded exponential backoff shared by side effect retries and polling
type Policy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64 // randomization factor in [0, 1)
}

// Delay returns the wait before attempt number attempt (1-based) is retried
func (p Policy) Delay(attempt int) time.Duration {
	b := p.newBackOff()
	delay := p.Initial
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	if delay == backoff.Stop || delay > p.Max {
		return p.Max
	}
	return delay
}

func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0
	b.RandomizationFactor = p.Jitter
	if p.Multiplier > 1 {
		b.Multiplier = p.Multiplier
	} else {
		b.Multiplier = 2
	}
	b.Reset()
	return b
}

// Retry runs op with this policy until it succeeds, returns a permanent error or maxTries is reached
func (p Policy) Retry(op func() error, maxTries uint64, notify func(err error, wait time.Duration)) error {
	b := backoff.WithMaxRetries(p.newBackOff(), maxTries)
	return backoff.RetryNotify(op, b, notify)
}

// Permanent marks an error as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}
