package dsp

import (
	"fmt"
	"sync"

	"github.com/faiface/beep"
	"github.com/sonicforge/sonicforge/internal/domain"
)

// BlockSize is the number of frames processed per chain call while streaming.
const BlockSize = 512

// Stream is a beep.StreamSeeker that reads a SampleBuffer through a live
// Chain. Mono buffers are duplicated to both output sides.
type Stream struct {
	buf   *domain.SampleBuffer
	chain *Chain

	mu  sync.Mutex
	pos int
	err error

	scratch [][]float32
	block   [][]float32
}

var _ beep.StreamSeeker = (*Stream)(nil)

// NewStream starts streaming buf through chain at frame offset.
func NewStream(buf *domain.SampleBuffer, chain *Chain, offset int) (*Stream, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if buf.Channels() != chain.Channels() {
		return nil, fmt.Errorf("%w: buffer has %d channels, chain has %d",
			domain.ErrChannelMismatch, buf.Channels(), chain.Channels())
	}

	s := &Stream{
		buf:     buf,
		chain:   chain,
		scratch: make([][]float32, buf.Channels()),
		block:   make([][]float32, buf.Channels()),
	}
	for ch := range s.scratch {
		s.scratch[ch] = make([]float32, BlockSize)
	}
	if err := s.Seek(offset); err != nil {
		return nil, err
	}
	return s, nil
}

// Stream fills samples with filtered frames. It returns ok == false once the
// buffer is exhausted.
func (s *Stream) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.buf.Frames()
	if s.pos >= total {
		return 0, false
	}

	for n < len(samples) && s.pos < total {
		want := len(samples) - n
		if want > BlockSize {
			want = BlockSize
		}

		var got int
		for ch := range s.scratch {
			got = s.buf.ReadFrames(ch, s.pos, s.scratch[ch][:want])
			s.block[ch] = s.scratch[ch][:got]
		}
		if got == 0 {
			break
		}

		if err := s.chain.ProcessBlock(s.block); err != nil {
			s.err = err
			return n, n > 0
		}

		left := s.block[0]
		right := left
		if len(s.block) > 1 {
			right = s.block[1]
		}
		for i := 0; i < got; i++ {
			samples[n+i][0] = float64(left[i])
			samples[n+i][1] = float64(right[i])
		}

		n += got
		s.pos += got
	}

	return n, true
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Len is the total number of frames.
func (s *Stream) Len() int {
	return s.buf.Frames()
}

// Position is the index of the next frame to stream.
func (s *Stream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Seek moves the read position. Filter memory is left alone.
func (s *Stream) Seek(p int) error {
	if p < 0 || p > s.buf.Frames() {
		return fmt.Errorf("%w: seek to frame %d of %d", domain.ErrInvalidInput, p, s.buf.Frames())
	}
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
	return nil
}

// Format describes the stream for beep consumers.
func (s *Stream) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.buf.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
}
