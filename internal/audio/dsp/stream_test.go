package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicforge/sonicforge/internal/domain"
)

func TestStream_MonoIsDuplicated(t *testing.T) {
	buf, err := domain.NewSampleBuffer(8000, [][]float32{{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)

	defaults := domain.DefaultBands()
	chain, err := NewChain(defaults[:], 8000, 1)
	require.NoError(t, err)

	s, err := NewStream(buf, chain, 0)
	require.NoError(t, err)

	samples := make([][2]float64, 8)
	n, ok := s.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	for i := 0; i < n; i++ {
		assert.Equal(t, samples[i][0], samples[i][1])
		assert.InDelta(t, float64(buf.Sample(0, i)), samples[i][0], 1e-6)
	}

	n, ok = s.Stream(samples)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.NoError(t, s.Err())
}

func TestStream_MatchesProcessBuffer(t *testing.T) {
	buf := noiseBuffer(t, 44100, 2, 3000)
	bands := bandsWith(t, 0, 0, 0, 2, 4, 4, 2, 0, 0, 0)

	ref, err := NewChain(bands, 44100, 2)
	require.NoError(t, err)
	want, err := ref.ProcessBuffer(buf)
	require.NoError(t, err)

	live, err := NewChain(bands, 44100, 2)
	require.NoError(t, err)
	s, err := NewStream(buf, live, 0)
	require.NoError(t, err)

	got := make([][2]float64, 0, buf.Frames())
	chunk := make([][2]float64, 700)
	for {
		n, ok := s.Stream(chunk)
		got = append(got, chunk[:n]...)
		if !ok {
			break
		}
	}

	require.Len(t, got, buf.Frames())
	for i := range got {
		require.Equal(t, float64(want.Sample(0, i)), got[i][0], "frame %d", i)
		require.Equal(t, float64(want.Sample(1, i)), got[i][1], "frame %d", i)
	}
}

func TestStream_Seek(t *testing.T) {
	buf := noiseBuffer(t, 8000, 2, 100)
	defaults := domain.DefaultBands()
	chain, err := NewChain(defaults[:], 8000, 2)
	require.NoError(t, err)

	s, err := NewStream(buf, chain, 40)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Len())
	assert.Equal(t, 40, s.Position())

	samples := make([][2]float64, 100)
	n, ok := s.Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 60, n)
	assert.Equal(t, 100, s.Position())

	assert.NoError(t, s.Seek(0))
	assert.Equal(t, 0, s.Position())
	assert.ErrorIs(t, s.Seek(101), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Seek(-1), domain.ErrInvalidInput)

	assert.Equal(t, 8000, int(s.Format().SampleRate))
	assert.Equal(t, 2, s.Format().NumChannels)
}

func TestNewStream_ChannelMismatch(t *testing.T) {
	buf := noiseBuffer(t, 8000, 2, 10)
	defaults := domain.DefaultBands()
	chain, err := NewChain(defaults[:], 8000, 1)
	require.NoError(t, err)

	_, err = NewStream(buf, chain, 0)
	assert.ErrorIs(t, err, domain.ErrChannelMismatch)

	_, err = NewStream(nil, chain, 0)
	assert.ErrorIs(t, err, domain.ErrNoBufferLoaded)
}
