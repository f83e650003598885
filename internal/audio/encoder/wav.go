package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/sonicforge/sonicforge/internal/domain"
)

const (
	// HeaderSize is the length of the canonical RIFF/WAVE header.
	HeaderSize    = 44
	BitsPerSample = 16
	MimeType      = "audio/wav"

	bytesPerSample = BitsPerSample / 8
	chunkFrames    = 4096
)

// EncodedSize returns the byte length of an encoded buffer.
func EncodedSize(frames, channels int) int {
	return HeaderSize + frames*channels*bytesPerSample
}

// Encode serialises buf as 16-bit PCM WAV.
func Encode(buf *domain.SampleBuffer) ([]byte, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	out := bytes.NewBuffer(make([]byte, 0, EncodedSize(buf.Frames(), buf.Channels())))
	if err := EncodeTo(out, buf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EncodeTo writes buf to w as a 44-byte header followed by interleaved
// little-endian int16 frames.
func EncodeTo(w io.Writer, buf *domain.SampleBuffer) error {
	if buf == nil {
		return domain.ErrNoBufferLoaded
	}

	channels := buf.Channels()
	frames := buf.Frames()

	if _, err := w.Write(Header(buf.SampleRate(), channels, frames)); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if frames == 0 {
		return nil
	}

	n := min(frames, chunkFrames)
	scratch := make([][]float32, channels)
	for ch := range scratch {
		scratch[ch] = make([]float32, n)
	}
	out := make([]byte, n*channels*bytesPerSample)

	for start := 0; start < frames; start += chunkFrames {
		count := min(chunkFrames, frames-start)
		for ch := range scratch {
			buf.ReadFrames(ch, start, scratch[ch][:count])
		}

		chunk := out[:count*channels*bytesPerSample]
		for i := 0; i < count; i++ {
			for ch := 0; ch < channels; ch++ {
				off := (i*channels + ch) * bytesPerSample
				binary.LittleEndian.PutUint16(chunk[off:off+2], uint16(Quantize(scratch[ch][i])))
			}
		}

		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
	}

	return nil
}

// Header builds the RIFF header for a PCM stream of the given shape.
func Header(sampleRate, channels, frames int) []byte {
	blockAlign := uint16(channels * bytesPerSample)
	byteRate := uint32(sampleRate) * uint32(blockAlign)
	dataSize := uint32(frames) * uint32(blockAlign)

	header := make([]byte, HeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], HeaderSize-8+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], BitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}

// Quantize clamps s to [-1, 1] and scales it to int16, negative values by
// 32768 and the rest by 32767, truncating toward zero. No dither.
func Quantize(s float32) int16 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s < -1:
		s = -1
	case s > 1:
		s = 1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
