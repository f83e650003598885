package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sonicforge/sonicforge/internal/config"
	"github.com/sonicforge/sonicforge/internal/domain"
	"github.com/sonicforge/sonicforge/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		version     = flag.Bool("version", false, "Show version information")
		input       = flag.String("in", "", "Audio file to load")
		preset      = flag.String("preset", "", "Equalizer preset to apply")
		gains       = flag.String("gains", "", "Comma-separated gains in dB for the 10 bands")
		outDir      = flag.String("out", "", "Directory for exported files")
		play        = flag.Bool("play", false, "Play the file through the equalizer")
		prompt      = flag.String("transform", "", "Prompt for the remote audio transform")
		savePreset  = flag.String("save-preset", "", "Store the current gains under this name")
		listPresets = flag.Bool("list-presets", false, "List built-in and stored presets")
		analyze     = flag.Bool("analyze", false, "Print the measured response of the current gains")
		sealSecret  = flag.String("seal-secret", "", "Print an encrypted form of a value for transform.api_key")
	)
	flag.Parse()

	if *version {
		fmt.Printf("SonicForge %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	if *sealSecret != "" {
		sealer, err := config.NewSealer()
		if err == nil {
			var sealed string
			if sealed, err = sealer.Seal(*sealSecret); err == nil {
				fmt.Println(sealed)
				os.Exit(0)
			}
		}
		fmt.Fprintf(os.Stderr, "sonicforge: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonicforge: %v\n", err)
		os.Exit(1)
	}

	logConfig := cfg.Logging
	if *logLevel != "" {
		logConfig.Level = *logLevel
	}
	logger.Initialize(logConfig)
	defer logger.Get().Close()

	logger.Info("SonicForge starting",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
		logger.String("config", cfg.File()))

	opts := RunOptions{
		Input:       *input,
		Preset:      *preset,
		OutDir:      *outDir,
		Play:        *play,
		Prompt:      *prompt,
		SavePreset:  *savePreset,
		ListPresets: *listPresets,
		Analyze:     *analyze,
	}
	if *gains != "" {
		if opts.Gains, err = parseGains(*gains); err != nil {
			logger.Fatal("Invalid -gains", logger.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Fatal("Failed to start", logger.Error(err))
	}
	defer app.Close()

	if err := app.Run(ctx, opts); err != nil {
		logger.ErrorLog("Run failed", logger.Error(err))
		app.Close()
		os.Exit(1)
	}
}

func parseGains(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != domain.NumBands {
		return nil, fmt.Errorf("%w: want %d gains, got %d", domain.ErrInvalidInput, domain.NumBands, len(fields))
	}
	gains := make([]float64, len(fields))
	for i, f := range fields {
		g, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: gain %d: %v", domain.ErrInvalidInput, i, err)
		}
		gains[i] = g
	}
	return gains, nil
}
