package decoder

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"

	"github.com/sonicforge/sonicforge/internal/domain"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

var ErrNotWavFile = errors.New("not a valid WAV file")

// WAVDecoder decodes PCM RIFF/WAVE files through go-audio/wav.
type WAVDecoder struct{}

func (d *WAVDecoder) Name() string { return "wav" }

func (d *WAVDecoder) Decode(r io.ReadSeeker) (*Decoded, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}

	isFloat := dec.WavAudioFormat == wavFormatFloat
	switch {
	case dec.WavAudioFormat == wavFormatPCM, dec.WavAudioFormat == wavFormatExtensible:
	case isFloat && dec.BitDepth == 32:
	default:
		return nil, domain.NewDecodeError(d.Name(), fmt.Errorf("%w: format tag %d, %d bits",
			domain.ErrUnsupportedFormat, dec.WavAudioFormat, dec.BitDepth))
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	format := AudioFormat{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Encoding:   d.Name(),
	}

	samples := make([]float32, len(pcm.Data))
	switch {
	case isFloat:
		// go-audio hands 32-bit samples back as the raw bit pattern.
		for i, v := range pcm.Data {
			samples[i] = math.Float32frombits(uint32(int32(v)))
		}
	case format.BitDepth == 8:
		// 8-bit WAV is unsigned.
		for i, v := range pcm.Data {
			samples[i] = float32(v-128) / 128.0
		}
	default:
		scale := intScale(format.BitDepth)
		for i, v := range pcm.Data {
			samples[i] = float32(v) / scale
		}
	}

	return newDecoded(format, samples)
}
