package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

// failing returns an operation that fails with errs in order, then succeeds.
func failing(calls *int, errs ...error) func() error {
	return func() error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}
		return nil
	}
}

func TestAPIRetryConfig(t *testing.T) {
	cfg := APIRetryConfig(4)
	require.Equal(t, 4, cfg.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.BaseDelay)
	require.Equal(t, time.Minute, cfg.MaxDelay)
	require.True(t, cfg.Jitter)
}

func TestRetryWithBackoff_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	res := RetryWithBackoff(context.Background(), fastConfig(3), failing(&calls), nil)
	require.True(t, res.Success)
	require.Equal(t, 1, res.Attempts)
	require.NoError(t, res.LastError)
}

func TestRetryWithBackoff_RecoversFromServerErrors(t *testing.T) {
	calls := 0
	logger := zerolog.Nop()
	op := failing(&calls,
		Transient(errors.New("GET /users/alice/events/public: 502 Bad Gateway")),
		errors.New("dial tcp: connection reset by peer"),
	)

	res := RetryWithBackoff(context.Background(), fastConfig(3), op, &logger)
	require.True(t, res.Success)
	require.Equal(t, 3, res.Attempts)
}

func TestRetryWithBackoff_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	boom := Transient(errors.New("secondary rate limit"))
	res := RetryWithBackoff(context.Background(), fastConfig(2), failing(&calls, boom, boom, boom, boom), nil)
	require.False(t, res.Success)
	require.Equal(t, 3, calls)
	require.ErrorIs(t, res.LastError, boom)
}

func TestRetryWithBackoff_ClientErrorStopsImmediately(t *testing.T) {
	calls := 0
	notFound := Permanent(errors.New("GET /repos/o/r/issues/comments/1/reactions: 404 Not Found"))
	res := RetryWithBackoff(context.Background(), fastConfig(3), failing(&calls, notFound), nil)
	require.False(t, res.Success)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoff_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func() error {
		calls++
		cancel()
		return Transient(errors.New("503 Service Unavailable"))
	}

	res := RetryWithBackoff(ctx, fastConfig(5), op, nil)
	require.False(t, res.Success)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, res.LastError, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}
	require.Equal(t, time.Second, calculateDelay(cfg, 0))
	require.Equal(t, 2*time.Second, calculateDelay(cfg, 1))
	require.Equal(t, 4*time.Second, calculateDelay(cfg, 2))
	require.Equal(t, 5*time.Second, calculateDelay(cfg, 3), "capped at MaxDelay")

	cfg.Jitter = true
	for i := 0; i < 50; i++ {
		d := calculateDelay(cfg, 1)
		require.GreaterOrEqual(t, d, 1800*time.Millisecond)
		require.LessOrEqual(t, d, 2200*time.Millisecond)
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 140.82.112.6:443: connect: connection refused"), true},
		{errors.New("Post \"https://api.github.com/graphql\": context deadline exceeded"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("401 Bad credentials"), false},
		{errors.New("invalid character '<' looking for beginning of value"), false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsRetryableError(tc.err), "%v", tc.err)
	}
}

func TestPermanentOverridesMessage(t *testing.T) {
	err := Permanent(errors.New("HTTP 503 Service Unavailable"))
	require.False(t, IsRetryableError(err))
	require.False(t, IsRetryableError(fmt.Errorf("list reactions: %w", err)))
	require.NoError(t, Permanent(nil))
}

func TestTransientOverridesMessage(t *testing.T) {
	err := Transient(errors.New("GET /repos/o/r/issues/1/reactions: 500 []"))
	require.True(t, IsRetryableError(err))
	require.NoError(t, Transient(nil))
	require.False(t, IsRetryableError(Permanent(err)), "permanent wins over transient")
}
