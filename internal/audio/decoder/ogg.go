package decoder

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// OggDecoder decodes Ogg Vorbis through jfreymuth/oggvorbis.
type OggDecoder struct{}

func (d *OggDecoder) Name() string { return "ogg" }

func (d *OggDecoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	samples, f, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis stream: %w", err)
	}

	format := AudioFormat{
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		Encoding:   d.Name(),
	}

	return newDecoded(format, samples)
}
