package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicforge/sonicforge/internal/audio/dsp"
	"github.com/sonicforge/sonicforge/internal/audio/encoder"
	"github.com/sonicforge/sonicforge/internal/domain"
)

func noise(t *testing.T, rate, channels, frames int) *domain.SampleBuffer {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
		for i := range data[ch] {
			data[ch][i] = float32(rng.Float64()*1.8 - 0.9)
		}
	}
	buf, err := domain.NewSampleBuffer(rate, data)
	require.NoError(t, err)
	return buf
}

func testBands(t *testing.T) []domain.Band {
	t.Helper()
	bands, err := domain.WithGains([]float64{8, -4, 2, 0, -12, 5, 12, -7, 3, 6})
	require.NoError(t, err)
	return bands[:]
}

func reference(t *testing.T, buf *domain.SampleBuffer, bands []domain.Band) *domain.SampleBuffer {
	t.Helper()
	chain, err := dsp.NewChain(bands, buf.SampleRate(), buf.Channels())
	require.NoError(t, err)
	out, err := chain.ProcessBuffer(buf)
	require.NoError(t, err)
	return out
}

func TestRender_MatchesSequentialChain(t *testing.T) {
	buf := noise(t, 44100, 2, 50_000)
	bands := testBands(t)

	got, err := NewRenderer(WithBlockSize(1000)).Render(context.Background(), buf, bands)
	require.NoError(t, err)
	want := reference(t, buf, bands)

	require.Equal(t, buf.Frames(), got.Frames())
	require.Equal(t, buf.Channels(), got.Channels())
	require.Equal(t, buf.SampleRate(), got.SampleRate())
	for ch := 0; ch < buf.Channels(); ch++ {
		assert.Equal(t, want.Channel(ch), got.Channel(ch), "channel %d", ch)
	}
}

func TestRender_Deterministic(t *testing.T) {
	buf := noise(t, 48000, 1, 20_000)
	bands := testBands(t)
	r := NewRenderer()

	a, err := r.Render(context.Background(), buf, bands)
	require.NoError(t, err)
	b, err := r.Render(context.Background(), buf, bands)
	require.NoError(t, err)

	assert.Equal(t, a.Channel(0), b.Channel(0))
}

func TestRender_IndependentOfLiveChain(t *testing.T) {
	buf := noise(t, 44100, 2, 10_000)
	bands := testBands(t)

	live, err := dsp.NewChain(bands, buf.SampleRate(), buf.Channels())
	require.NoError(t, err)
	_, err = live.ProcessBuffer(noise(t, 44100, 2, 3000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				_, _ = live.SetGain(i%domain.NumBands, float64(i%25-12))
			}
		}
	}()

	got, err := NewRenderer(WithBlockSize(512)).Render(context.Background(), buf, bands)
	close(stop)
	wg.Wait()
	require.NoError(t, err)

	want := reference(t, buf, bands)
	assert.Equal(t, want.Channel(0), got.Channel(0))
	assert.Equal(t, want.Channel(1), got.Channel(1))
}

func TestRender_SnapshotsBands(t *testing.T) {
	buf := noise(t, 44100, 1, 4096)
	bands := testBands(t)
	want := reference(t, buf, bands)

	mutated := false
	r := NewRenderer(WithBlockSize(256), WithProgress(func(float64) {
		if !mutated {
			bands[6].GainDB = -12
			mutated = true
		}
	}))
	got, err := r.Render(context.Background(), buf, bands)
	require.NoError(t, err)
	assert.True(t, mutated)
	assert.Equal(t, want.Channel(0), got.Channel(0))
}

func TestRender_LeavesSourceIntact(t *testing.T) {
	buf := noise(t, 44100, 2, 2048)
	before := buf.Interleaved()

	_, err := NewRenderer().Render(context.Background(), buf, testBands(t))
	require.NoError(t, err)
	assert.Equal(t, before, buf.Interleaved())
}

func TestRender_Progress(t *testing.T) {
	buf := noise(t, 44100, 2, 10_000)

	var reports []float64
	r := NewRenderer(WithBlockSize(1024), WithProgress(func(f float64) {
		reports = append(reports, f)
	}))
	_, err := r.Render(context.Background(), buf, testBands(t))
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.InDelta(t, 1.0, reports[len(reports)-1], 1e-12)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1])
	}
}

func TestRender_Cancelled(t *testing.T) {
	buf := noise(t, 44100, 2, 10_000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewRenderer().Render(ctx, buf, testBands(t))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_CancelledMidway(t *testing.T) {
	buf := noise(t, 44100, 1, 100_000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	r := NewRenderer(WithBlockSize(128), WithProgress(func(float64) {
		calls++
		cancel()
	}))

	out, err := r.Render(ctx, buf, testBands(t))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRender_Errors(t *testing.T) {
	r := NewRenderer()
	ctx := context.Background()

	_, err := r.Render(ctx, nil, testBands(t))
	assert.ErrorIs(t, err, domain.ErrNoBufferLoaded)

	empty, err := domain.NewSampleBuffer(44100, [][]float32{{}, {}})
	require.NoError(t, err)
	_, err = r.Render(ctx, empty, testBands(t))
	assert.ErrorIs(t, err, domain.ErrEmptyBuffer)

	_, err = r.Render(ctx, noise(t, 44100, 1, 16), testBands(t)[:9])
	assert.ErrorIs(t, err, domain.ErrInvalidBand)
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeRender, de.Code)
}

func TestExport_ProducesWAV(t *testing.T) {
	buf := noise(t, 22050, 2, 3000)
	bands := testBands(t)

	data, err := NewRenderer().Export(context.Background(), buf, bands)
	require.NoError(t, err)
	require.Len(t, data, encoder.EncodedSize(3000, 2))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(22050), binary.LittleEndian.Uint32(data[24:28]))

	want := reference(t, buf, bands)
	pcm := data[encoder.HeaderSize:]
	for _, frame := range []int{0, 1, 1500, 2999} {
		for ch := 0; ch < 2; ch++ {
			off := (frame*2 + ch) * 2
			got := int16(binary.LittleEndian.Uint16(pcm[off:]))
			assert.Equal(t, encoder.Quantize(want.Sample(ch, frame)), got, "frame %d ch %d", frame, ch)
		}
	}
}

func TestExportTo_MatchesExport(t *testing.T) {
	buf := noise(t, 44100, 1, 5000)
	bands := testBands(t)
	r := NewRenderer()

	data, err := r.Export(context.Background(), buf, bands)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, r.ExportTo(context.Background(), &out, buf, bands))
	assert.Equal(t, data, out.Bytes())
}
