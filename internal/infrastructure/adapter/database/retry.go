package database

import (
	"context"
	"time"

	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries    int
	RetryInterval time.Duration
	MaxInterval   time.Duration
	JitterFactor  float64 // randomization factor in [0, 1)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    5,
		RetryInterval: 100 * time.Millisecond,
		MaxInterval:   2 * time.Second,
		JitterFactor:  0.2,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryInterval
	b.MaxInterval = c.MaxInterval
	b.RandomizationFactor = c.JitterFactor
	b.MaxElapsedTime = 0
	b.Reset()

	retries := c.MaxRetries - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// RetryOnTransientError runs operation up to MaxRetries times while it fails with a transient error
func RetryOnTransientError(
	ctx context.Context,
	config RetryConfig,
	operation func() error,
	errorMapper *ErrorMapper,
	logger coreport.Logger,
) error {
	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := operation()
			if err == nil {
				return nil
			}
			if !errorMapper.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		config.backOff(ctx),
		func(err error, wait time.Duration) {
			logger.Warn("Transient database error, retrying operation", map[string]any{
				"attempt":     attempt,
				"max_retries": config.MaxRetries,
				"error":       err.Error(),
				"retry_after": wait.String(),
			})
		},
	)
	if err != nil && errorMapper.IsTransient(err) {
		logger.Error("All retry attempts failed", map[string]any{
			"attempts":    attempt,
			"max_retries": config.MaxRetries,
			"error":       err.Error(),
		})
	}
	return err
}
