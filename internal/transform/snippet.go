package transform

import (
	"time"

	"github.com/sonicforge/sonicforge/internal/audio/encoder"
	"github.com/sonicforge/sonicforge/internal/domain"
)

// MaxSnippet caps how much audio is sent to the transform service.
const MaxSnippet = 20 * time.Second

// Snippet returns a mono downmix of at most the first maxLen of buf.
// maxLen is capped at MaxSnippet.
func Snippet(buf *domain.SampleBuffer, maxLen time.Duration) (*domain.SampleBuffer, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if maxLen <= 0 || maxLen > MaxSnippet {
		maxLen = MaxSnippet
	}

	frames := min(buf.Frames(), buf.FrameAt(maxLen))
	if frames == 0 {
		return nil, domain.ErrEmptyBuffer
	}

	head, err := buf.Slice(0, frames)
	if err != nil {
		return nil, err
	}
	return head.Mono(), nil
}

// EncodeSnippet is Snippet followed by WAV encoding.
func EncodeSnippet(buf *domain.SampleBuffer, maxLen time.Duration) ([]byte, error) {
	snippet, err := Snippet(buf, maxLen)
	if err != nil {
		return nil, err
	}
	return encoder.Encode(snippet)
}
