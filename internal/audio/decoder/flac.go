package decoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// maxPreallocFrames caps the buffer hint taken from STREAMINFO, which is
// untrusted input.
const maxPreallocFrames = 1 << 22

// FLACDecoder decodes FLAC streams through mewkiz/flac.
type FLACDecoder struct{}

func (d *FLACDecoder) Name() string { return "flac" }

func (d *FLACDecoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC stream: %w", err)
	}

	info := stream.Info
	format := AudioFormat{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   int(info.BitsPerSample),
		Encoding:   d.Name(),
	}
	if format.Channels > 2 {
		return newDecoded(format, nil)
	}

	scale := intScale(format.BitDepth)
	samples := make([]float32, 0, int(min(info.NSamples, maxPreallocFrames))*format.Channels)

	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		if len(frame.Subframes) < format.Channels {
			return nil, fmt.Errorf("FLAC frame has %d subframes, want %d", len(frame.Subframes), format.Channels)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < format.Channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return newDecoded(format, samples)
}
