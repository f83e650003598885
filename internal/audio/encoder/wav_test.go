package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicforge/sonicforge/internal/domain"
)

func TestHeader(t *testing.T) {
	buf, err := domain.NewSampleBuffer(44100, [][]float32{make([]float32, 100), make([]float32, 100)})
	require.NoError(t, err)

	data, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, data, EncodedSize(100, 2))
	assert.Equal(t, HeaderSize+400, len(data))

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(44100*2*2), binary.LittleEndian.Uint32(data[28:32]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(data[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(400), binary.LittleEndian.Uint32(data[40:44]))
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"Zero", 0, 0},
		{"Full positive", 1, 32767},
		{"Full negative", -1, -32768},
		{"Half positive truncates", 0.5, 16383},
		{"Half negative", -0.5, -16384},
		{"Clamp above", 1.7, 32767},
		{"Clamp below", -3, -32768},
		{"Tiny positive truncates to zero", 1e-6, 0},
		{"Tiny negative truncates to zero", -1e-6, 0},
		{"NaN", float32(math.NaN()), 0},
		{"Positive infinity", float32(math.Inf(1)), 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quantize(tt.in))
		})
	}
}

func TestEncode_InterleavesFrameMajor(t *testing.T) {
	buf, err := domain.NewSampleBuffer(8000, [][]float32{{1, 0}, {-1, 0.5}})
	require.NoError(t, err)

	data, err := Encode(buf)
	require.NoError(t, err)

	pcm := data[HeaderSize:]
	require.Len(t, pcm, 8)
	got := []int16{
		int16(binary.LittleEndian.Uint16(pcm[0:2])),
		int16(binary.LittleEndian.Uint16(pcm[2:4])),
		int16(binary.LittleEndian.Uint16(pcm[4:6])),
		int16(binary.LittleEndian.Uint16(pcm[6:8])),
	}
	assert.Equal(t, []int16{32767, -32768, 0, 16383}, got)
}

func TestEncode_RoundTripThroughReferenceDecoder(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
		frames   int
	}{
		{"Mono 8k", 8000, 1, 1234},
		{"Stereo 44.1k", 44100, 2, 10000},
		{"Stereo 48k spans chunks", 48000, 2, 3*chunkFrames + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(tt.frames)))
			channels := make([][]float32, tt.channels)
			for ch := range channels {
				channels[ch] = make([]float32, tt.frames)
				for i := range channels[ch] {
					channels[ch][i] = float32(rng.Float64()*2 - 1)
				}
			}
			buf, err := domain.NewSampleBuffer(tt.rate, channels)
			require.NoError(t, err)

			data, err := Encode(buf)
			require.NoError(t, err)

			dec := wav.NewDecoder(bytes.NewReader(data))
			require.True(t, dec.IsValidFile())
			pcm, err := dec.FullPCMBuffer()
			require.NoError(t, err)

			assert.Equal(t, tt.rate, int(dec.SampleRate))
			assert.Equal(t, tt.channels, int(dec.NumChans))
			assert.Equal(t, 16, int(dec.BitDepth))
			require.Len(t, pcm.Data, tt.frames*tt.channels)

			for i := 0; i < tt.frames; i++ {
				for ch := 0; ch < tt.channels; ch++ {
					v := pcm.Data[i*tt.channels+ch]
					orig := float64(buf.Sample(ch, i))

					// One step of the scale used for the sign.
					step := 1.0 / 32767
					back := float64(v) / 32767
					if orig < 0 {
						step = 1.0 / 32768
						back = float64(v) / 32768
					}
					require.InDelta(t, orig, back, step, "frame %d channel %d", i, ch)
				}
			}
		})
	}
}

func TestEncode_EmptyAndNil(t *testing.T) {
	empty, err := domain.NewSampleBuffer(22050, [][]float32{{}})
	require.NoError(t, err)

	data, err := Encode(empty)
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize)
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(data[4:8]))

	_, err = Encode(nil)
	assert.ErrorIs(t, err, domain.ErrNoBufferLoaded)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeTo_PropagatesWriteErrors(t *testing.T) {
	buf, err := domain.NewSampleBuffer(8000, [][]float32{{0.1}})
	require.NoError(t, err)

	err = EncodeTo(failingWriter{}, buf)
	assert.ErrorContains(t, err, "disk full")
}
