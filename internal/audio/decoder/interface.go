package decoder

import (
	"fmt"
	"io"
	"time"

	"github.com/sonicforge/sonicforge/internal/domain"
)

// AudioFormat represents the format of the encoded source
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g., 44100)
	Channels   int    // Number of channels (1 = mono, 2 = stereo)
	BitDepth   int    // Bits per sample of the source, 0 for lossy codecs
	Encoding   string // Container name (e.g., "wav", "mp3")
}

// Metadata contains tag information extracted from the audio file
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Year        int
	TrackNumber int
	Comment     string
	Duration    time.Duration
}

// Decoded is the result of a successful decode.
type Decoded struct {
	Buffer   *domain.SampleBuffer
	Format   AudioFormat
	Metadata *Metadata
}

// Decoder turns one complete encoded stream into PCM.
type Decoder interface {
	// Decode reads the whole stream. r is positioned at the start.
	Decode(r io.ReadSeeker) (*Decoded, error)

	// Name returns the container name
	Name() string
}

// newDecoded validates interleaved samples and wraps them in a buffer.
func newDecoded(format AudioFormat, interleaved []float32) (*Decoded, error) {
	if format.Channels < domain.MinChannels || format.Channels > domain.MaxChannels {
		return nil, domain.NewDecodeError(format.Encoding,
			fmt.Errorf("%w: %d channels", domain.ErrUnsupportedFormat, format.Channels))
	}
	if len(interleaved) < format.Channels {
		return nil, domain.NewDecodeError(format.Encoding, domain.ErrEmptyBuffer)
	}

	// Drop a trailing partial frame.
	interleaved = interleaved[:len(interleaved)-len(interleaved)%format.Channels]

	buf, err := domain.NewSampleBufferFromInterleaved(format.SampleRate, format.Channels, interleaved)
	if err != nil {
		return nil, domain.NewDecodeError(format.Encoding, err)
	}

	return &Decoded{
		Buffer:   buf,
		Format:   format,
		Metadata: &Metadata{Duration: buf.Duration()},
	}, nil
}

// intScale returns the divisor that maps signed PCM of the given bit depth to
// [-1.0, 1.0].
func intScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 16:
		return 32768.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		if bitDepth > 0 && bitDepth < 32 {
			return float32(int64(1) << (bitDepth - 1))
		}
		return 32768.0
	}
}
