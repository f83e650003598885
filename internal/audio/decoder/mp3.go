package decoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MPEG-1/2 layer III through go-mp3.
type MP3Decoder struct{}

func (d *MP3Decoder) Name() string { return "mp3" }

func (d *MP3Decoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	// go-mp3 always produces 16-bit little-endian stereo.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}

	format := AudioFormat{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		Encoding:   d.Name(),
	}

	return newDecoded(format, samples)
}
