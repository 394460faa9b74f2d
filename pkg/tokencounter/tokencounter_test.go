package tokencounter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_Count(t *testing.T) {
	enc := New()

	n, err := enc.Count("gpt-4", "hello world")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestEncoder_CountIsDeterministic(t *testing.T) {
	enc := New()

	a, err := enc.Count("gpt-4", "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	b, err := enc.Count("gpt-4", "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEncoder_UnknownModelFallsBackToDefaultEncoding(t *testing.T) {
	enc := New()

	n, err := enc.Count("some-unregistered-model-name", "hello world")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestEncoder_CachesEncoderPerModel(t *testing.T) {
	enc := New()

	_, err := enc.Count("gpt-4", "warm the cache")
	require.NoError(t, err)

	enc.mu.Lock()
	_, cached := enc.encoders["gpt-4"]
	enc.mu.Unlock()

	assert.True(t, cached)
}
