package decoder

import (
	"errors"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

var (
	ErrNotAiffFile           = errors.New("not a valid AIFF file")
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)

const aiffReadFrames = 4096

// AIFFDecoder decodes AIFF/AIFC files through go-audio/aiff.
type AIFFDecoder struct{}

func (d *AIFFDecoder) Name() string { return "aiff" }

func (d *AIFFDecoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	f := dec.Format()
	if f == nil || f.NumChannels == 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	format := AudioFormat{
		SampleRate: f.SampleRate,
		Channels:   f.NumChannels,
		BitDepth:   int(dec.BitDepth),
		Encoding:   d.Name(),
	}
	scale := intScale(format.BitDepth)

	intBuf := &goaudio.IntBuffer{
		Data:   make([]int, aiffReadFrames*f.NumChannels),
		Format: f,
	}

	var samples []float32
	for {
		n, err := dec.PCMBuffer(intBuf)
		for i := 0; i < n; i++ {
			samples = append(samples, float32(intBuf.Data[i])/scale)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if n == 0 || err != nil {
			break
		}
	}

	return newDecoded(format, samples)
}
