// Package session is the control surface over one loaded audio file: it owns
// the band settings, the live player and the offline export path.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sonicforge/sonicforge/internal/audio"
	"github.com/sonicforge/sonicforge/internal/audio/decoder"
	"github.com/sonicforge/sonicforge/internal/audio/dsp"
	"github.com/sonicforge/sonicforge/internal/audio/encoder"
	"github.com/sonicforge/sonicforge/internal/audio/output"
	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
	"github.com/sonicforge/sonicforge/internal/render"
	"github.com/sonicforge/sonicforge/internal/transform"
)

const DefaultExportSuffix = "_eq"

// Transformer is the remote audio transform collaborator.
type Transformer interface {
	Transform(ctx context.Context, buf *domain.SampleBuffer, prompt string) (*transform.Result, error)
}

type Options struct {
	// Output plays the live stream. It must be open; the session never
	// closes it.
	Output output.Output

	Decoder      *decoder.Factory
	Renderer     *render.Renderer
	Presets      domain.PresetRepository
	Transformer  Transformer
	ExportSuffix string

	// PlayerOptions are applied to every player the session creates.
	PlayerOptions []audio.Option
}

// Export is a rendered download.
type Export struct {
	Filename string
	MimeType string
	Data     []byte
}

type Session struct {
	opts Options

	mu        sync.Mutex
	bands     [domain.NumBands]domain.Band
	buf       *domain.SampleBuffer
	name      string
	meta      *decoder.Metadata
	player    *audio.Player
	listeners []audio.EventListener
}

func New(opts Options) (*Session, error) {
	if opts.Output == nil {
		return nil, fmt.Errorf("%w: session needs an output", domain.ErrInvalidInput)
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewFactory()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.NewRenderer()
	}
	if opts.ExportSuffix == "" {
		opts.ExportSuffix = DefaultExportSuffix
	}

	return &Session{
		opts:  opts,
		bands: domain.DefaultBands(),
	}, nil
}

// Load decodes r and makes it the current buffer. On failure the previous
// buffer, player and bands are left exactly as they were.
func (s *Session) Load(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	decoded, err := s.opts.Decoder.Decode(name, r)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := audio.NewPlayer(decoded.Buffer, s.bands[:], s.opts.Output, s.opts.PlayerOptions...)
	if err != nil {
		return err
	}
	for _, l := range s.listeners {
		player.AddListener(l)
	}

	if s.player != nil {
		if err := s.player.Close(); err != nil {
			logger.Warn("Failed to close previous player", logger.Error(err))
		}
	}

	s.player = player
	s.buf = decoded.Buffer
	s.name = filepath.Base(name)
	s.meta = decoded.Metadata

	logger.Info("Audio loaded",
		logger.String("name", s.name),
		logger.String("format", decoded.Format.Encoding),
		logger.Int("sample_rate", decoded.Buffer.SampleRate()),
		logger.Int("channels", decoded.Buffer.Channels()),
		logger.Duration("duration", decoded.Buffer.Duration()))

	return nil
}

// LoadFile loads the file at path.
func (s *Session) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return domain.NewDecodeError("open "+filepath.Base(path), err)
	}
	defer f.Close()
	return s.Load(ctx, path, f)
}

func (s *Session) Play(offset time.Duration) error {
	p, err := s.currentPlayer()
	if err != nil {
		return err
	}
	return p.Play(offset)
}

func (s *Session) Resume() error {
	p, err := s.currentPlayer()
	if err != nil {
		return err
	}
	return p.Resume()
}

func (s *Session) Pause() error {
	p, err := s.currentPlayer()
	if err != nil {
		return err
	}
	return p.Pause()
}

func (s *Session) Stop() error {
	p, err := s.currentPlayer()
	if err != nil {
		return err
	}
	return p.Stop()
}

func (s *Session) Seek(position time.Duration) error {
	p, err := s.currentPlayer()
	if err != nil {
		return err
	}
	return p.Seek(position)
}

// SetGain clamps and stores the gain of one band and pushes it to the live
// chain when a file is loaded. It works without a buffer.
func (s *Session) SetGain(index int, gainDB float64) (float64, error) {
	if err := domain.CheckBandIndex(index); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setGainLocked(index, gainDB)
}

func (s *Session) setGainLocked(index int, gainDB float64) (float64, error) {
	stored := domain.ClampGain(gainDB)
	if s.player != nil {
		var err error
		if stored, err = s.player.SetGain(index, gainDB); err != nil {
			return 0, err
		}
	}
	s.bands[index].GainDB = stored
	return stored, nil
}

// SetGains applies a full set of gains.
func (s *Session) SetGains(gains []float64) error {
	if len(gains) != domain.NumBands {
		return fmt.Errorf("%w: expected %d gains, got %d", domain.ErrInvalidInput, domain.NumBands, len(gains))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range gains {
		if _, err := s.setGainLocked(i, g); err != nil {
			return err
		}
	}
	return nil
}

// ResetGains sets every band back to 0 dB.
func (s *Session) ResetGains() error {
	return s.SetGains(make([]float64, domain.NumBands))
}

// ApplyPreset loads a built-in preset, or a stored one when no built-in
// has that name.
func (s *Session) ApplyPreset(name string) error {
	gains, err := s.lookupPreset(name)
	if err != nil {
		return err
	}
	if err := s.SetGains(gains); err != nil {
		return err
	}
	logger.Debug("Preset applied", logger.String("preset", name))
	return nil
}

func (s *Session) lookupPreset(name string) ([]float64, error) {
	name = strings.TrimSpace(name)
	if gains, ok := dsp.Preset(name); ok {
		return gains, nil
	}
	if s.opts.Presets == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrPresetNotFound, name)
	}
	preset, err := s.opts.Presets.FindByName(name)
	if err != nil {
		return nil, err
	}
	return preset.Gains, nil
}

// SavePreset stores the current gains under name, replacing a stored preset
// of the same name. Built-in names are reserved.
func (s *Session) SavePreset(name string) (*domain.Preset, error) {
	if s.opts.Presets == nil {
		return nil, fmt.Errorf("%w: no preset store configured", domain.ErrInvalidInput)
	}
	if _, builtin := dsp.Preset(strings.TrimSpace(name)); builtin {
		return nil, fmt.Errorf("%w: %q is a built-in preset", domain.ErrAlreadyExists, name)
	}

	bands := s.Bands()
	preset, err := domain.NewPreset(name, bands[:])
	if err != nil {
		return nil, err
	}

	existing, err := s.opts.Presets.FindByName(preset.Name)
	switch {
	case err == nil:
		existing.Gains = preset.Gains
		if err := s.opts.Presets.Update(existing); err != nil {
			return nil, err
		}
		preset = existing
	case domain.IsNotFound(err):
		if err := s.opts.Presets.Create(preset); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	logger.Info("Preset saved", logger.String("preset", preset.Name))
	return preset, nil
}

// PresetNames lists built-in presets followed by stored ones.
func (s *Session) PresetNames() ([]string, error) {
	names := dsp.PresetNames()
	if s.opts.Presets == nil {
		return names, nil
	}
	stored, err := s.opts.Presets.FindAll()
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		names = append(names, p.Name)
	}
	return names, nil
}

// Bands returns a copy of the band settings.
func (s *Session) Bands() [domain.NumBands]domain.Band {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bands
}

// Duration is 0 when nothing is loaded.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return 0
	}
	return s.buf.Duration()
}

// CurrentTime is the playback position, 0 when nothing is loaded.
func (s *Session) CurrentTime() time.Duration {
	s.mu.Lock()
	p := s.player
	s.mu.Unlock()
	if p == nil {
		return 0
	}
	return p.Position()
}

func (s *Session) State() audio.PlayerState {
	s.mu.Lock()
	p := s.player
	s.mu.Unlock()
	if p == nil {
		return audio.StateStopped
	}
	return p.State()
}

// Loaded reports the name and metadata of the current file.
func (s *Session) Loaded() (name string, meta *decoder.Metadata, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.meta, s.buf != nil
}

func (s *Session) Buffer() *domain.SampleBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// AddListener receives events from the current and every later player.
func (s *Session) AddListener(l audio.EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	if s.player != nil {
		s.player.AddListener(l)
	}
}

// ExportProcessed renders the whole buffer with the current bands and
// encodes it as WAV named after the loaded file.
func (s *Session) ExportProcessed(ctx context.Context) (*Export, error) {
	s.mu.Lock()
	buf, name, bands := s.buf, s.name, s.bands
	s.mu.Unlock()

	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}

	data, err := s.opts.Renderer.Export(ctx, buf, bands[:])
	if err != nil {
		return nil, err
	}

	return &Export{
		Filename: ExportName(name, s.opts.ExportSuffix),
		MimeType: encoder.MimeType,
		Data:     data,
	}, nil
}

// Transform sends the start of the loaded audio to the remote transform
// service. The result is returned as is and never touches the chain.
func (s *Session) Transform(ctx context.Context, prompt string) (*transform.Result, error) {
	buf := s.Buffer()
	if buf == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	if s.opts.Transformer == nil {
		return nil, domain.NewRemoteTransformError("transform service not configured", nil)
	}
	return s.opts.Transformer.Transform(ctx, buf, prompt)
}

// Close stops playback and releases the player. The output stays open.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}

// ExportName turns "song.mp3" into "song_eq.wav".
func ExportName(name, suffix string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "audio"
	}
	return base + suffix + ".wav"
}

func (s *Session) currentPlayer() (*audio.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil, domain.ErrNoBufferLoaded
	}
	return s.player, nil
}
