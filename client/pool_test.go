package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(keys int, softLimit int) *Pool {
	creds := make([]*credential, 0, keys)
	for i := 0; i < keys; i++ {
		creds = append(creds, &credential{key: string(rune('a' + i)), available: true})
	}
	return &Pool{creds: creds, softLimit: softLimit}
}

func TestPoolRotationVisitsEveryCredentialOnce(t *testing.T) {
	pool := newTestPool(3, DefaultSoftQuotaThreshold)

	_, index := pool.Active()
	assert.Equal(t, 0, index)

	require.NoError(t, pool.MarkExhausted(0))
	_, index = pool.Active()
	assert.Equal(t, 1, index)

	require.NoError(t, pool.MarkExhausted(1))
	_, index = pool.Active()
	assert.Equal(t, 2, index)

	// Last credential exhausted: rotation wraps the full ring and fails.
	err := pool.MarkExhausted(2)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestPoolResetRestoresAllCredentials(t *testing.T) {
	pool := newTestPool(2, DefaultSoftQuotaThreshold)
	pool.creds[0].usage = 1234

	require.NoError(t, pool.MarkExhausted(0))
	assert.ErrorIs(t, pool.MarkExhausted(1), ErrQuotaExhausted)

	pool.Reset()

	_, index := pool.Active()
	assert.Equal(t, 0, index)
	for _, cred := range pool.creds {
		assert.True(t, cred.available)
		assert.Equal(t, 0, cred.usage)
	}

	// Rotation is resumable after reset.
	require.NoError(t, pool.MarkExhausted(0))
	_, index = pool.Active()
	assert.Equal(t, 1, index)
}

func TestPoolSoftThresholdRotatesProactively(t *testing.T) {
	pool := newTestPool(2, 3)

	pool.RecordUse()
	pool.RecordUse()
	_, index := pool.Active()
	assert.Equal(t, 0, index)

	// Third use crosses the threshold.
	pool.RecordUse()
	_, index = pool.Active()
	assert.Equal(t, 1, index)
	assert.False(t, pool.creds[0].available)
}

func TestPoolSoftThresholdKeepsLastCredential(t *testing.T) {
	pool := newTestPool(1, 2)

	pool.RecordUse()
	pool.RecordUse() // crosses threshold, but there is nowhere to rotate

	_, index := pool.Active()
	assert.Equal(t, 0, index)
	assert.True(t, pool.creds[0].available)
}
