package domain

import (
	"fmt"
	"time"
)

const (
	MinChannels = 1
	MaxChannels = 2
)

// SampleBuffer is a decoded, immutable, multi-channel block of float32 audio.
// Accessors hand out copies so no caller can mutate the source.
type SampleBuffer struct {
	sampleRate int
	channels   [][]float32
}

// NewSampleBuffer takes ownership of channels. All channels must have the same
// length.
func NewSampleBuffer(sampleRate int, channels [][]float32) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, sampleRate)
	}
	if len(channels) < MinChannels || len(channels) > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels, want %d-%d", ErrInvalidBuffer,
			len(channels), MinChannels, MaxChannels)
	}
	frames := len(channels[0])
	for ch, data := range channels {
		if len(data) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidBuffer, ch, len(data), frames)
		}
	}
	return &SampleBuffer{
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// NewSampleBufferFromInterleaved splits frame-major interleaved samples.
func NewSampleBufferFromInterleaved(sampleRate, channels int, interleaved []float32) (*SampleBuffer, error) {
	if channels < MinChannels || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels, want %d-%d", ErrInvalidBuffer,
			channels, MinChannels, MaxChannels)
	}
	if len(interleaved)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d channels",
			ErrInvalidBuffer, len(interleaved), channels)
	}
	frames := len(interleaved) / channels
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
		for i := 0; i < frames; i++ {
			data[ch][i] = interleaved[i*channels+ch]
		}
	}
	return NewSampleBuffer(sampleRate, data)
}

func (b *SampleBuffer) SampleRate() int { return b.sampleRate }
func (b *SampleBuffer) Channels() int   { return len(b.channels) }
func (b *SampleBuffer) Frames() int     { return len(b.channels[0]) }

// Duration is Frames / SampleRate.
func (b *SampleBuffer) Duration() time.Duration {
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.sampleRate)
}

// FrameAt converts a time offset into a frame index clamped to [0, Frames].
func (b *SampleBuffer) FrameAt(offset time.Duration) int {
	if offset <= 0 {
		return 0
	}
	frame := int(offset.Seconds()*float64(b.sampleRate) + 0.5)
	if frame > b.Frames() {
		return b.Frames()
	}
	return frame
}

// Channel returns a copy of one channel.
func (b *SampleBuffer) Channel(ch int) []float32 {
	out := make([]float32, len(b.channels[ch]))
	copy(out, b.channels[ch])
	return out
}

// Sample returns a single sample.
func (b *SampleBuffer) Sample(ch, frame int) float32 {
	return b.channels[ch][frame]
}

// ReadFrames copies samples of channel ch starting at frame start into dst and
// returns the number of samples copied.
func (b *SampleBuffer) ReadFrames(ch, start int, dst []float32) int {
	if start >= len(b.channels[ch]) {
		return 0
	}
	return copy(dst, b.channels[ch][start:])
}

// Interleaved returns samples in frame-major order.
func (b *SampleBuffer) Interleaved() []float32 {
	channels := b.Channels()
	frames := b.Frames()
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = b.channels[ch][i]
		}
	}
	return out
}

// Slice returns frames [start, end) as a new buffer.
func (b *SampleBuffer) Slice(start, end int) (*SampleBuffer, error) {
	if start < 0 || end > b.Frames() || start > end {
		return nil, fmt.Errorf("%w: slice [%d, %d) of %d frames", ErrInvalidInput, start, end, b.Frames())
	}
	data := make([][]float32, b.Channels())
	for ch := range data {
		data[ch] = make([]float32, end-start)
		copy(data[ch], b.channels[ch][start:end])
	}
	return NewSampleBuffer(b.sampleRate, data)
}

// Mono averages all channels into one.
func (b *SampleBuffer) Mono() *SampleBuffer {
	if b.Channels() == 1 {
		return &SampleBuffer{sampleRate: b.sampleRate, channels: [][]float32{b.Channel(0)}}
	}

	frames := b.Frames()
	mono := make([]float32, frames)
	inv := 1 / float32(b.Channels())
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := range b.channels {
			sum += b.channels[ch][i]
		}
		mono[i] = sum * inv
	}
	return &SampleBuffer{sampleRate: b.sampleRate, channels: [][]float32{mono}}
}
