package output

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/faiface/beep"
)

const bytesPerFrame = 2 * 4 // stereo float32

// streamReader adapts a beep.Streamer to the float32 little-endian byte
// stream expected by oto.
type streamReader struct {
	s      beep.Streamer
	volume func() float64
	done   func()

	mu        sync.Mutex
	buf       [][2]float64
	cancelled bool
	finished  bool
	frames    int64
}

func newStreamReader(s beep.Streamer, volume func() float64, done func()) *streamReader {
	return &streamReader{
		s:      s,
		volume: volume,
		done:   done,
	}
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelled || r.finished {
		return 0, io.EOF
	}

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames {
		r.buf = make([][2]float64, frames)
	}
	buf := r.buf[:frames]

	n, ok := r.s.Stream(buf)
	ApplyVolume(buf[:n], r.volume())

	for i := 0; i < n; i++ {
		off := i * bytesPerFrame
		binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(buf[i][0])))
		binary.LittleEndian.PutUint32(p[off+4:], math.Float32bits(float32(buf[i][1])))
	}
	r.frames += int64(n)

	if !ok || n == 0 {
		r.finished = true
		if r.done != nil {
			go r.done()
		}
		return n * bytesPerFrame, io.EOF
	}
	return n * bytesPerFrame, nil
}

// cancel stops the reader without reporting completion.
func (r *streamReader) cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

func (r *streamReader) framesRead() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
