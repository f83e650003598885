package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
)

var (
	ErrDeviceNotFound = errors.New("audio device not found")
	ErrNotOpen        = errors.New("audio output not open")
	ErrAlreadyOpen    = errors.New("audio output already open")
	ErrInvalidFormat  = errors.New("invalid audio format")
	ErrInvalidVolume  = errors.New("volume must be between 0.0 and 1.0")
)

// Format represents audio output format
type Format struct {
	SampleRate int
	Channels   int
	Latency    time.Duration
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 2 {
		return fmt.Errorf("%w: %d channels, outputs are stereo", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// Device represents an audio output device
type Device struct {
	ID          string
	Name        string
	Type        string // "Oto", "Null"
	IsDefault   bool
	MaxChannels int
}

// Output is a device sink that plays at most one stream at a time.
type Output interface {
	// Open opens the audio output with the specified format
	Open(format Format) error

	// Play starts s, replacing any stream already playing. done is called
	// once, from another goroutine, when s is exhausted. It is not called
	// for a stream that is stopped or replaced.
	Play(s beep.Streamer, done func()) error

	// Stop tears the current stream down and returns once the sink no
	// longer reads from it.
	Stop()

	// Close stops playback and releases the device
	Close() error

	// SetVolume sets the output volume (0.0 to 1.0)
	SetVolume(volume float64) error

	// GetVolume returns the current volume
	GetVolume() float64

	// IsPlaying returns true if a stream is active
	IsPlaying() bool

	// GetDevice returns the current device info
	GetDevice() *Device

	// GetLatency returns the configured output latency
	GetLatency() time.Duration

	// Format returns the format the output was opened with
	Format() Format
}

// BaseOutput provides common functionality for outputs
type BaseOutput struct {
	device *Device
	format Format

	mu        sync.RWMutex
	volume    float64
	isPlaying bool
}

func (o *BaseOutput) GetDevice() *Device {
	return o.device
}

func (o *BaseOutput) GetVolume() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.volume
}

func (o *BaseOutput) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return ErrInvalidVolume
	}
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
	return nil
}

func (o *BaseOutput) IsPlaying() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.isPlaying
}

func (o *BaseOutput) setPlaying(playing bool) {
	o.mu.Lock()
	o.isPlaying = playing
	o.mu.Unlock()
}

func (o *BaseOutput) GetLatency() time.Duration {
	return o.format.Latency
}

func (o *BaseOutput) Format() Format {
	return o.format
}

// ApplyVolume applies volume to samples
func ApplyVolume(samples [][2]float64, volume float64) {
	if volume == 1.0 {
		return
	}
	for i := range samples {
		samples[i][0] *= volume
		samples[i][1] *= volume
	}
}
