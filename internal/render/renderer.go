// Package render re-renders a whole buffer through a private equalizer chain.
package render

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonicforge/sonicforge/internal/audio/dsp"
	"github.com/sonicforge/sonicforge/internal/audio/encoder"
	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

// DefaultBlockSize is the number of frames rendered between cancellation
// checks.
const DefaultBlockSize = 1 << 14

// ProgressFunc receives the rendered fraction in [0, 1]. Calls are
// serialized but may come from any goroutine.
type ProgressFunc func(fraction float64)

type Option func(*Renderer)

// WithBlockSize sets how many frames are rendered between context checks.
func WithBlockSize(frames int) Option {
	return func(r *Renderer) {
		if frames > 0 {
			r.blockSize = frames
		}
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Renderer) { r.progress = fn }
}

// Renderer is stateless between calls; every Render builds its own chain
// with zeroed memory, so it never shares filter state with live playback.
type Renderer struct {
	blockSize int
	progress  ProgressFunc
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{blockSize: DefaultBlockSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render filters every frame of buf with bands as they are at call time.
// Channels are rendered concurrently; the result is identical to a
// sequential dsp.Chain.ProcessBuffer.
func (r *Renderer) Render(ctx context.Context, buf *domain.SampleBuffer, bands []domain.Band) (*domain.SampleBuffer, error) {
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if buf.Frames() == 0 {
		return nil, domain.ErrEmptyBuffer
	}

	snapshot := append([]domain.Band(nil), bands...)
	chain, err := dsp.NewChain(snapshot, buf.SampleRate(), buf.Channels())
	if err != nil {
		return nil, domainRenderError("invalid band set", err)
	}

	start := time.Now()
	frames := buf.Frames()
	total := frames * buf.Channels()

	var (
		progressMu sync.Mutex
		rendered   int
	)
	report := func(n int) {
		if r.progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		rendered += n
		r.progress(float64(rendered) / float64(total))
	}

	out := make([][]float32, buf.Channels())
	g, gctx := errgroup.WithContext(ctx)
	for ch := range out {
		ch := ch
		out[ch] = buf.Channel(ch)
		g.Go(func() error {
			samples := out[ch]
			for pos := 0; pos < frames; pos += r.blockSize {
				if err := gctx.Err(); err != nil {
					return err
				}
				end := min(pos+r.blockSize, frames)
				if err := chain.ProcessChannel(ch, samples[pos:end]); err != nil {
					return err
				}
				report(end - pos)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("render cancelled: %w", ctxErr)
		}
		return nil, domainRenderError("channel render failed", err)
	}

	processed, err := domain.NewSampleBuffer(buf.SampleRate(), out)
	if err != nil {
		return nil, domainRenderError("assemble output", err)
	}

	logger.Debug("Render complete",
		logger.Int("frames", frames),
		logger.Int("channels", buf.Channels()),
		logger.Duration("elapsed", time.Since(start)))

	return processed, nil
}

// Export renders buf and encodes the result as 16-bit PCM WAV.
func (r *Renderer) Export(ctx context.Context, buf *domain.SampleBuffer, bands []domain.Band) ([]byte, error) {
	processed, err := r.Render(ctx, buf, bands)
	if err != nil {
		return nil, err
	}
	data, err := encoder.Encode(processed)
	if err != nil {
		return nil, domainRenderError("encode wav", err)
	}
	return data, nil
}

// ExportTo renders buf and streams the WAV encoding to w.
func (r *Renderer) ExportTo(ctx context.Context, w io.Writer, buf *domain.SampleBuffer, bands []domain.Band) error {
	processed, err := r.Render(ctx, buf, bands)
	if err != nil {
		return err
	}
	if err := encoder.EncodeTo(w, processed); err != nil {
		return domainRenderError("encode wav", err)
	}
	return nil
}

func domainRenderError(details string, err error) error {
	return domain.NewDomainErrorWithDetails(domain.ErrCodeRender, "render failed", details, err)
}
