package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func alwaysRetry(error) bool { return true }

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, alwaysRetry, 3, 10*time.Millisecond)

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, alwaysRetry, 5, time.Millisecond)

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return errTransient
	}, alwaysRetry, 3, time.Millisecond)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableStops(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return permanent
	}, func(err error) bool {
		return !errors.Is(err, permanent)
	}, 5, time.Millisecond)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts, "permanent errors must not be retried")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return errTransient
	}, alwaysRetry, 10, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithBackoff_ZeroMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error {
		return nil
	}, alwaysRetry, 0, time.Millisecond)

	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
