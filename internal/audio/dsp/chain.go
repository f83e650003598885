package dsp

import (
	"fmt"
	"sync"

	"github.com/sonicforge/sonicforge/internal/domain"
)

// Chain is the ten-stage equalizer applied to every channel in series.
//
// The coefficient table is guarded by mu. SetGain computes new coefficients
// outside the lock and swaps one entry under it. Each processing call copies the
// whole table once, so a block never sees a half-updated band. Filter memory
// lives in channelState and is only touched by the processing path.
type Chain struct {
	sampleRate int

	mu     sync.RWMutex
	bands  [domain.NumBands]domain.Band
	coeffs [domain.NumBands]Coefficients

	states []*channelState
}

type channelState struct {
	mu     sync.Mutex
	stages [domain.NumBands]Biquad
}

// NewChain builds a chain with zeroed memory for the given channel count.
func NewChain(bands []domain.Band, sampleRate, channels int) (*Chain, error) {
	if err := domain.ValidateBands(bands); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", domain.ErrInvalidInput, sampleRate)
	}
	if channels < domain.MinChannels || channels > domain.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", domain.ErrChannelMismatch, channels)
	}

	c := &Chain{
		sampleRate: sampleRate,
		states:     make([]*channelState, channels),
	}
	copy(c.bands[:], bands)
	for i, b := range c.bands {
		c.coeffs[i] = ComputeCoefficients(b.Shape, b.FrequencyHz, b.GainDB, sampleRate)
	}
	for ch := range c.states {
		c.states[ch] = &channelState{}
	}

	return c, nil
}

func (c *Chain) SampleRate() int { return c.sampleRate }
func (c *Chain) Channels() int   { return len(c.states) }

// SetGain clamps gainDB, stores it and swaps the band's coefficients. The new
// coefficients apply from the next processed block. It returns the stored gain.
func (c *Chain) SetGain(index int, gainDB float64) (float64, error) {
	if err := domain.CheckBandIndex(index); err != nil {
		return 0, err
	}
	gainDB = domain.ClampGain(gainDB)

	c.mu.RLock()
	band := c.bands[index]
	c.mu.RUnlock()

	coeffs := ComputeCoefficients(band.Shape, band.FrequencyHz, gainDB, c.sampleRate)

	c.mu.Lock()
	c.bands[index].GainDB = gainDB
	c.coeffs[index] = coeffs
	c.mu.Unlock()

	return gainDB, nil
}

// SetGains applies a full set of gains.
func (c *Chain) SetGains(gains []float64) error {
	if len(gains) != domain.NumBands {
		return fmt.Errorf("%w: expected %d gains, got %d", domain.ErrInvalidInput, domain.NumBands, len(gains))
	}
	for i, g := range gains {
		if _, err := c.SetGain(i, g); err != nil {
			return err
		}
	}
	return nil
}

// Bands returns a snapshot of the band records.
func (c *Chain) Bands() [domain.NumBands]domain.Band {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bands
}

// Coefficients returns a snapshot of the coefficient table.
func (c *Chain) Coefficients() [domain.NumBands]Coefficients {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coeffs
}

// Reset zeroes the memory of every stage on every channel. Gains are kept.
func (c *Chain) Reset() {
	for _, s := range c.states {
		s.mu.Lock()
		for i := range s.stages {
			s.stages[i].Reset()
		}
		s.mu.Unlock()
	}
}

// Apply runs a single frame (one sample per channel) through the chain.
func (c *Chain) Apply(frame []float32) ([]float32, error) {
	if len(frame) != len(c.states) {
		return nil, fmt.Errorf("%w: frame has %d channels, chain has %d",
			domain.ErrChannelMismatch, len(frame), len(c.states))
	}

	coeffs := c.Coefficients()
	out := make([]float32, len(frame))
	copy(out, frame)
	for ch, s := range c.states {
		s.process(&coeffs, out[ch:ch+1])
	}
	return out, nil
}

// ProcessBlock filters one block in place. block holds one slice per channel,
// all of the same length.
func (c *Chain) ProcessBlock(block [][]float32) error {
	if len(block) != len(c.states) {
		return fmt.Errorf("%w: block has %d channels, chain has %d",
			domain.ErrChannelMismatch, len(block), len(c.states))
	}

	coeffs := c.Coefficients()
	for ch, s := range c.states {
		s.process(&coeffs, block[ch])
	}
	return nil
}

// ProcessChannel filters samples of a single channel in place. Different
// channels may be processed concurrently.
func (c *Chain) ProcessChannel(ch int, samples []float32) error {
	if ch < 0 || ch >= len(c.states) {
		return fmt.Errorf("%w: channel %d, chain has %d",
			domain.ErrChannelMismatch, ch, len(c.states))
	}

	coeffs := c.Coefficients()
	c.states[ch].process(&coeffs, samples)
	return nil
}

// ProcessBuffer runs every frame of buf through the chain, frame 0 first, and
// returns a new buffer of the same shape.
func (c *Chain) ProcessBuffer(buf *domain.SampleBuffer) (*domain.SampleBuffer, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if buf.Frames() == 0 {
		return nil, domain.ErrEmptyBuffer
	}
	if buf.Channels() != len(c.states) {
		return nil, fmt.Errorf("%w: buffer has %d channels, chain has %d",
			domain.ErrChannelMismatch, buf.Channels(), len(c.states))
	}

	out := make([][]float32, buf.Channels())
	for ch := range out {
		out[ch] = buf.Channel(ch)
	}
	if err := c.ProcessBlock(out); err != nil {
		return nil, err
	}

	return domain.NewSampleBuffer(buf.SampleRate(), out)
}

func (s *channelState) process(coeffs *[domain.NumBands]Coefficients, samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		s.stages[i].SetCoefficients(coeffs[i])
	}

	for n, x := range samples {
		y := float64(x)
		for i := range s.stages {
			y = s.stages[i].ProcessSample(y)
		}
		samples[n] = float32(y)
	}
}
