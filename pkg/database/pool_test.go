package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_StaysWithinJitterBounds(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt // 1s, 2s, 4s
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo, "attempt %d", attempt)
			assert.LessOrEqual(t, d, hi, "attempt %d", attempt)
		}
	}
}

func TestRetryBackoff_GrowsAcrossAttempts(t *testing.T) {
	// Jitter bands of consecutive attempts do not overlap at 25%, so sums
	// over many samples must be strictly increasing.
	var sums [3]time.Duration
	for attempt := 0; attempt < 3; attempt++ {
		for i := 0; i < 100; i++ {
			sums[attempt] += retryBackoff(attempt)
		}
	}
	assert.Less(t, sums[0], sums[1])
	assert.Less(t, sums[1], sums[2])
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg       string
		transient bool
	}{
		{"dial tcp 127.0.0.1:5432: connection refused", true},
		{"connection reset by peer", true},
		{"broken pipe", true},
		{"i/o timeout", true},
		{"EOF", true},
		{"could not connect to server", true},
		{"syntax error at or near", false},
		{"duplicate key value violates unique constraint", false},
		{"relation does not exist", false},
	}

	assert.False(t, isConnectionError(nil))
	for _, tc := range tests {
		assert.Equal(t, tc.transient, isConnectionError(errors.New(tc.msg)), tc.msg)
	}
}
