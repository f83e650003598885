package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/sonicforge/sonicforge/internal/audio"
	"github.com/sonicforge/sonicforge/internal/audio/analysis"
	"github.com/sonicforge/sonicforge/internal/audio/decoder"
	"github.com/sonicforge/sonicforge/internal/audio/output"
	"github.com/sonicforge/sonicforge/internal/config"
	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/infrastructure/db"
	"github.com/sonicforge/sonicforge/internal/logger"
	"github.com/sonicforge/sonicforge/internal/render"
	"github.com/sonicforge/sonicforge/internal/session"
	"github.com/sonicforge/sonicforge/internal/transform"
)

// RunOptions is one invocation of the command line.
type RunOptions struct {
	Input       string
	Preset      string
	Gains       []float64
	OutDir      string
	Play        bool
	Prompt      string
	SavePreset  string
	ListPresets bool
	Analyze     bool
}

type App struct {
	config   *config.Config
	output   output.Output
	database *db.Database
	session  *session.Session
	stdout   io.Writer

	closeOnce sync.Once
}

// NewApp opens the output device, the preset store and the session.
func NewApp(cfg *config.Config) (*App, error) {
	out, err := openOutput(cfg.Audio)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, output: out, stdout: os.Stdout}

	var presets domain.PresetRepository
	if cfg.Database.Enabled {
		dbConfig := db.DefaultConfig()
		dbConfig.Path = cfg.Database.Path
		if a.database, err = db.Open(dbConfig); err != nil {
			// Presets are optional; built-ins still work.
			logger.Warn("Preset store unavailable", logger.String("path", cfg.Database.Path), logger.Error(err))
		} else {
			presets = db.NewPresetRepository(a.database)
		}
	}

	var transformer session.Transformer
	if cfg.Transform.APIKey != "" {
		transformer = transform.NewClient(transform.Config{
			Endpoint:          cfg.Transform.Endpoint,
			Model:             cfg.Transform.Model,
			APIKey:            cfg.Transform.APIKey,
			Timeout:           cfg.Transform.Timeout,
			SnippetLength:     cfg.Transform.SnippetLength,
			SystemInstruction: cfg.Transform.SystemInstruction,
		})
	}

	a.session, err = session.New(session.Options{
		Output:       out,
		Decoder:      decoder.NewFactory(),
		Renderer:     render.NewRenderer(),
		Presets:      presets,
		Transformer:  transformer,
		ExportSuffix: cfg.Export.Suffix,
		PlayerOptions: []audio.Option{
			audio.WithResampleQuality(cfg.Audio.ResampleQuality),
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.applyConfiguredGains(); err != nil {
		logger.Warn("Ignoring configured equalizer", logger.Error(err))
	}

	return a, nil
}

func openOutput(cfg config.AudioConfig) (output.Output, error) {
	var out output.Output
	switch cfg.Output {
	case "null":
		out = output.NewNullOutput(0)
	default:
		out = output.NewOtoOutput(nil)
	}

	if err := out.Open(output.Format{SampleRate: cfg.SampleRate, Channels: 2, Latency: cfg.Latency}); err != nil {
		return nil, fmt.Errorf("failed to open %s output: %w", cfg.Output, err)
	}
	if err := out.SetVolume(cfg.Volume); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// Run executes opts in a fixed order: gains first, then load, analysis,
// export, transform and playback.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if opts.ListPresets {
		if err := a.listPresets(); err != nil {
			return err
		}
	}

	if opts.Preset != "" {
		if err := a.session.ApplyPreset(opts.Preset); err != nil {
			return err
		}
	}
	if opts.Gains != nil {
		if err := a.session.SetGains(opts.Gains); err != nil {
			return err
		}
	}
	if opts.SavePreset != "" {
		p, err := a.session.SavePreset(opts.SavePreset)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "saved preset %q\n", p.Name)
	}

	if opts.Input == "" {
		if opts.Play || opts.Prompt != "" || opts.OutDir != "" {
			return fmt.Errorf("%w: -in is required", domain.ErrInvalidInput)
		}
		if opts.Analyze {
			return a.printResponse()
		}
		return nil
	}

	if err := a.session.LoadFile(ctx, opts.Input); err != nil {
		return err
	}

	if opts.Analyze {
		if err := a.printResponse(); err != nil {
			return err
		}
	}

	if opts.OutDir != "" {
		if err := a.export(ctx, opts.OutDir); err != nil {
			return err
		}
	}

	if opts.Prompt != "" {
		if err := a.transform(ctx, opts.Prompt, a.outDir(opts.OutDir)); err != nil {
			return err
		}
	}

	if opts.Play {
		return a.play(ctx)
	}
	return nil
}

func (a *App) outDir(dir string) string {
	if dir != "" {
		return dir
	}
	return a.config.Export.Dir
}

func (a *App) listPresets() error {
	names, err := a.session.PresetNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}

func (a *App) printResponse() error {
	bands := a.session.Bands()
	rate := a.config.Audio.SampleRate
	if buf := a.session.Buffer(); buf != nil {
		rate = buf.SampleRate()
	}

	resp, err := analysis.Response(bands[:], rate)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "band\tgain dB\texpected dB\tmeasured dB\tstage\t")
	for _, r := range resp {
		stage := "active"
		if r.Bypassed {
			stage = "bypass"
		}
		fmt.Fprintf(w, "%s\t%+.1f\t%+.2f\t%+.2f\t%s\t\n", r.Label, r.GainDB, r.ExpectedDB, r.MeasuredDB, stage)
	}
	return w.Flush()
}

func (a *App) export(ctx context.Context, dir string) error {
	exp, err := a.session.ExportProcessed(ctx)
	if err != nil {
		return err
	}
	path, err := writeFile(dir, exp.Filename, exp.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "exported %s\n", path)
	return nil
}

func (a *App) transform(ctx context.Context, prompt, dir string) error {
	res, err := a.session.Transform(ctx, prompt)
	if err != nil {
		return err
	}

	name, _, _ := a.session.Loaded()
	base := strings.TrimSuffix(session.ExportName(name, "_transformed"), ".wav")
	path, err := writeFile(dir, base+"."+decoder.ExtensionForContentType(res.MimeType), res.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "transformed audio (%s) written to %s\n", res.MimeType, path)
	return nil
}

// play blocks until the track ends or ctx is cancelled. Config edits to the
// equalizer section are applied while playing.
func (a *App) play(ctx context.Context) error {
	finished := make(chan struct{})
	var once sync.Once
	a.session.AddListener(func(event audio.PlayerEvent, _ interface{}) {
		if event == audio.EventTrackFinished {
			once.Do(func() { close(finished) })
		}
	})

	a.config.Watch(func(*config.Config) {
		if err := a.applyConfiguredGains(); err != nil {
			logger.Warn("Ignoring equalizer change", logger.Error(err))
		}
	})

	if err := a.session.Play(0); err != nil {
		return err
	}
	name, meta, _ := a.session.Loaded()
	title := name
	if meta != nil && meta.Title != "" {
		title = meta.Title
	}
	fmt.Fprintf(a.stdout, "playing %s (%s)\n", title, a.session.Duration().Round(time.Millisecond))

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		logger.Info("Playback interrupted", logger.Duration("position", a.session.CurrentTime()))
		return a.session.Stop()
	}
}

// applyConfiguredGains applies equalizer.gains when set, else
// equalizer.preset.
func (a *App) applyConfiguredGains() error {
	preset, gains := a.config.EqualizerGains()
	if len(gains) > 0 {
		return a.session.SetGains(gains)
	}
	if preset != "" {
		return a.session.ApplyPreset(preset)
	}
	return nil
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.session != nil {
			if err := a.session.Close(); err != nil {
				logger.Warn("Failed to close session", logger.Error(err))
			}
		}
		if err := a.output.Close(); err != nil {
			logger.Warn("Failed to close output", logger.Error(err))
		}
		if a.database != nil {
			if err := a.database.Close(); err != nil {
				logger.Warn("Failed to close database", logger.Error(err))
			}
		}
	})
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("File written", logger.String("path", path), logger.Int("bytes", len(data)))
	return path, nil
}
