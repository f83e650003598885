package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	oto "github.com/ebitengine/oto/v3"
)

const defaultLatency = 100 * time.Millisecond

// OtoOutput implements Output on an oto context. oto allows one context
// per process, so one OtoOutput should exist at a time.
type OtoOutput struct {
	BaseOutput
	context *oto.Context

	mu     sync.Mutex
	player *oto.Player
	reader *streamReader
	closed bool
}

// DefaultDevice describes the system output used by oto.
func DefaultDevice() *Device {
	return &Device{
		ID:          "default",
		Name:        "Default Audio Device",
		Type:        "Oto",
		IsDefault:   true,
		MaxChannels: 2,
	}
}

// NewOtoOutput creates a new Oto-based audio output
func NewOtoOutput(device *Device) *OtoOutput {
	if device == nil {
		device = DefaultDevice()
	}
	return &OtoOutput{
		BaseOutput: BaseOutput{
			device: device,
			volume: 1.0,
		},
	}
}

// Open opens the audio output with the specified format
func (o *OtoOutput) Open(format Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.context != nil {
		return ErrAlreadyOpen
	}
	if err := format.Validate(); err != nil {
		return err
	}
	if format.Latency <= 0 {
		format.Latency = defaultLatency
	}

	options := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   format.Latency,
	}

	context, ready, err := oto.NewContext(options)
	if err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}

	// Wait for context to be ready
	<-ready

	o.context = context
	o.format = format
	o.closed = false

	return nil
}

// Play starts s on a fresh oto player, replacing the current one.
func (o *OtoOutput) Play(s beep.Streamer, done func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.context == nil {
		return ErrNotOpen
	}
	o.stopLocked()

	var reader *streamReader
	reader = newStreamReader(s, o.GetVolume, func() {
		o.mu.Lock()
		current := o.reader == reader
		o.mu.Unlock()
		if current && done != nil {
			done()
		}
	})
	o.reader = reader
	o.player = o.context.NewPlayer(reader)
	o.player.Play()
	o.setPlaying(true)

	return nil
}

// Stop halts the current player and waits for oto to release it.
func (o *OtoOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *OtoOutput) stopLocked() {
	if o.reader != nil {
		o.reader.cancel()
		o.reader = nil
	}
	if o.player != nil {
		o.player.Pause()
		_ = o.player.Close()
		o.player = nil
	}
	o.setPlaying(false)
}

// IsPlaying reports whether the oto player is still producing sound.
func (o *OtoOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player != nil && o.player.IsPlaying()
}

// Close closes the audio output
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.stopLocked()

	if o.context != nil {
		// oto v3 has no Close for a context; suspending releases the device.
		if err := o.context.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend audio context: %w", err)
		}
		o.context = nil
	}

	return nil
}
