package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	ytapi "google.golang.org/api/youtube/v3"
)

func newTestClient(keys int) *DataClient {
	return &DataClient{
		pool:    newTestPool(keys, DefaultSoftQuotaThreshold),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func quotaError() error {
	return &googleapi.Error{
		Code: 403,
		Errors: []googleapi.ErrorItem{
			{Reason: "quotaExceeded", Message: "The request cannot be completed because you have exceeded your quota."},
		},
	}
}

func TestIsQuotaExceeded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "quota exceeded", err: quotaError(), want: true},
		{name: "daily limit", err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}}, want: true},
		{name: "forbidden without reason", err: &googleapi.Error{Code: 403}, want: false},
		{name: "plain error", err: errors.New("connection reset"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuotaExceeded(tt.err))
		})
	}
}

func TestExecuteRotatesOnQuotaError(t *testing.T) {
	c := newTestClient(3)

	calls := 0
	err := c.execute(context.Background(), func(*ytapi.Service) error {
		calls++
		if calls < 3 {
			return quotaError()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	_, index := c.pool.Active()
	assert.Equal(t, 2, index)
}

func TestExecuteExhaustsAfterExactlyNAttempts(t *testing.T) {
	const credentials = 4
	c := newTestClient(credentials)

	calls := 0
	err := c.execute(context.Background(), func(*ytapi.Service) error {
		calls++
		return quotaError()
	})

	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, credentials, calls)
}

func TestExecuteRetriesTransientErrorOnce(t *testing.T) {
	c := newTestClient(2)
	transient := errors.New("read: connection reset by peer")

	calls := 0
	err := c.execute(context.Background(), func(*ytapi.Service) error {
		calls++
		return transient
	})

	// One retry on the same credential, then surfaced without rotation.
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 2, calls)
	_, index := c.pool.Active()
	assert.Equal(t, 0, index)
}

func TestExecuteRecordsUsageOnSuccess(t *testing.T) {
	c := newTestClient(2)

	require.NoError(t, c.execute(context.Background(), func(*ytapi.Service) error { return nil }))
	require.NoError(t, c.execute(context.Background(), func(*ytapi.Service) error { return nil }))

	assert.Equal(t, 2, c.pool.creds[0].usage)
	assert.Equal(t, 0, c.pool.creds[1].usage)
}

func TestExecuteRespectsCancelledContext(t *testing.T) {
	c := newTestClient(1)
	c.limiter = rate.NewLimiter(rate.Limit(0.001), 1)
	c.limiter.Allow() // drain the initial token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.execute(ctx, func(*ytapi.Service) error { return nil })
	assert.Error(t, err)
}
