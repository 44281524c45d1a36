package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Monotonic(t *testing.T) {
	prev, err := New()
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		next, err := New()
		require.NoError(t, err)
		require.True(t, next > prev, "ids must increase: %s <= %s", next, prev)
		prev = next
	}
}

func TestNewAt_SameMillisecond(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a, err := NewAt(at)
	require.NoError(t, err)
	b, err := NewAt(at)
	require.NoError(t, err)
	assert.True(t, b > a)
	assert.Len(t, a, 26)
}

func TestNewAt_BeforeEpoch(t *testing.T) {
	_, err := NewAt(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	id, err := New()
	require.NoError(t, err)
	assert.True(t, Valid(id))
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-ulid"))
}
