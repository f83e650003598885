package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"

	"github.com/sonicforge/sonicforge/internal/audio/dsp"
	"github.com/sonicforge/sonicforge/internal/audio/output"
	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

var (
	ErrNotPlaying = errors.New("not playing")
	ErrClosed     = errors.New("player closed")
)

// DefaultResampleQuality is the beep resampler quality used when the device
// rate differs from the buffer rate.
const DefaultResampleQuality = 4

// PlayerState represents the current state of the player
type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// PlayerEvent represents player events
type PlayerEvent int

const (
	EventStateChanged PlayerEvent = iota
	EventPositionChanged
	EventGainChanged
	EventVolumeChanged
	EventTrackFinished
)

// GainChange is the payload of EventGainChanged.
type GainChange struct {
	Band   int
	GainDB float64
}

// EventListener is a callback for player events
type EventListener func(event PlayerEvent, data interface{})

// Clock supplies wall time to the transport.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Player.
type Option func(*Player)

// WithClock replaces the wall clock, typically with a simulated one.
func WithClock(c Clock) Option {
	return func(p *Player) { p.clock = c }
}

// WithResampleQuality sets the beep resampler quality (1-64).
func WithResampleQuality(q int) Option {
	return func(p *Player) {
		if q >= 1 && q <= 64 {
			p.quality = q
		}
	}
}

// Player plays one SampleBuffer through a persistent equalizer chain.
//
// The transport is a hard stop/restart: Pause and Seek tear the output stream
// down and Play starts a new one, resetting filter memory at each start. Gain
// changes go straight to the live chain without touching the stream.
type Player struct {
	buf     *domain.SampleBuffer
	chain   *dsp.Chain
	output  output.Output
	clock   Clock
	quality int

	mu           sync.RWMutex
	state        PlayerState
	startEpoch   time.Time
	pausedOffset time.Duration
	generation   uint64
	closed       bool

	listeners  []EventListener
	listenerMu sync.RWMutex
}

// NewPlayer creates a stopped player for buf. out must already be open; the
// player uses it but does not close it.
func NewPlayer(buf *domain.SampleBuffer, bands []domain.Band, out output.Output, opts ...Option) (*Player, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if buf.Frames() == 0 {
		return nil, domain.ErrEmptyBuffer
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil output", domain.ErrInvalidInput)
	}

	chain, err := dsp.NewChain(bands, buf.SampleRate(), buf.Channels())
	if err != nil {
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}

	p := &Player{
		buf:       buf,
		chain:     chain,
		output:    out,
		clock:     systemClock{},
		quality:   DefaultResampleQuality,
		state:     StateStopped,
		listeners: make([]EventListener, 0),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Play starts output at offset. A stream that is already playing is stopped
// first, so at most one stream is ever active.
func (p *Player) Play(offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked(offset)
}

// Resume restarts output at the current position.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked(p.positionLocked())
}

func (p *Player) playLocked(offset time.Duration) error {
	if p.closed {
		return ErrClosed
	}
	offset = p.clamp(offset)

	if p.state == StatePlaying {
		p.output.Stop()
	}
	p.generation++

	// A new stream is a signal discontinuity; stale filter memory would ring.
	p.chain.Reset()

	stream, err := dsp.NewStream(p.buf, p.chain, p.buf.FrameAt(offset))
	if err != nil {
		p.enterStopped(0)
		return fmt.Errorf("failed to create stream: %w", err)
	}

	var source beep.Streamer = stream
	if outRate := p.output.Format().SampleRate; outRate > 0 && outRate != p.buf.SampleRate() {
		source = beep.Resample(p.quality, beep.SampleRate(p.buf.SampleRate()), beep.SampleRate(outRate), stream)
	}

	gen := p.generation
	if err := p.output.Play(source, func() { p.handleFinished(gen) }); err != nil {
		p.enterStopped(0)
		return fmt.Errorf("failed to start output: %w", err)
	}

	p.startEpoch = p.clock.Now().Add(-offset)
	p.pausedOffset = offset
	p.setState(StatePlaying)

	logger.Debug("Playback started",
		logger.Duration("offset", offset),
		logger.Duration("duration", p.buf.Duration()))

	return nil
}

// Pause halts output and remembers the position. Gains and chain are kept.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return ErrNotPlaying
	}

	offset := p.positionLocked()
	p.output.Stop()
	p.generation++
	p.pausedOffset = offset
	p.setState(StatePaused)

	return nil
}

// Stop tears the stream down and rewinds to the start.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		p.output.Stop()
	}
	p.generation++
	p.enterStopped(0)

	return nil
}

// Seek moves to position, clamped to the buffer. While playing the stream is
// restarted at the new offset; otherwise only the offset is recorded.
func (p *Player) Seek(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	position = p.clamp(position)
	if p.state == StatePlaying {
		if err := p.playLocked(position); err != nil {
			return err
		}
	} else {
		p.pausedOffset = position
	}

	p.notifyListeners(EventPositionChanged, position)
	return nil
}

// SetGain updates one band of the live chain without interrupting output.
func (p *Player) SetGain(band int, gainDB float64) (float64, error) {
	stored, err := p.chain.SetGain(band, gainDB)
	if err != nil {
		return 0, err
	}
	p.notifyListeners(EventGainChanged, GainChange{Band: band, GainDB: stored})
	return stored, nil
}

// SetGains updates every band.
func (p *Player) SetGains(gains []float64) error {
	if len(gains) != domain.NumBands {
		return fmt.Errorf("%w: expected %d gains, got %d", domain.ErrInvalidInput, domain.NumBands, len(gains))
	}
	for i, g := range gains {
		if _, err := p.SetGain(i, g); err != nil {
			return err
		}
	}
	return nil
}

// SetVolume sets the playback volume (0.0 to 1.0)
func (p *Player) SetVolume(volume float64) error {
	if err := p.output.SetVolume(volume); err != nil {
		return err
	}
	p.notifyListeners(EventVolumeChanged, volume)
	return nil
}

// Bands returns a snapshot of the live band settings.
func (p *Player) Bands() [domain.NumBands]domain.Band {
	return p.chain.Bands()
}

// Position returns the current playback position, clamped to the buffer.
func (p *Player) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positionLocked()
}

// Duration returns the length of the buffer
func (p *Player) Duration() time.Duration {
	return p.buf.Duration()
}

// State returns the current player state
func (p *Player) State() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Buffer returns the source buffer.
func (p *Player) Buffer() *domain.SampleBuffer {
	return p.buf
}

// AddListener adds an event listener
func (p *Player) AddListener(listener EventListener) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	p.listeners = append(p.listeners, listener)
}

// Close stops playback. The output is left open for the next player.
func (p *Player) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.listenerMu.Lock()
	p.listeners = nil
	p.listenerMu.Unlock()

	return nil
}

func (p *Player) handleFinished(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Completion of a stream that was already stopped or replaced.
	if gen != p.generation || p.state != StatePlaying {
		return
	}

	p.generation++
	p.enterStopped(0)
	p.notifyListeners(EventTrackFinished, p.buf.Duration())

	logger.Debug("Playback finished")
}

func (p *Player) positionLocked() time.Duration {
	if p.state == StatePlaying {
		return p.clamp(p.clock.Now().Sub(p.startEpoch))
	}
	return p.clamp(p.pausedOffset)
}

func (p *Player) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if total := p.buf.Duration(); d > total {
		return total
	}
	return d
}

func (p *Player) enterStopped(offset time.Duration) {
	p.pausedOffset = offset
	p.setState(StateStopped)
}

func (p *Player) setState(state PlayerState) {
	if p.state != state {
		p.state = state
		p.notifyListeners(EventStateChanged, state)
	}
}

func (p *Player) notifyListeners(event PlayerEvent, data interface{}) {
	p.listenerMu.RLock()
	listeners := make([]EventListener, len(p.listeners))
	copy(listeners, p.listeners)
	p.listenerMu.RUnlock()

	for _, listener := range listeners {
		go listener(event, data)
	}
}
