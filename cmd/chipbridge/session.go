package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
	"github.com/valerio/go-chipbridge/chipbridge/audio"
	"github.com/valerio/go-chipbridge/chipbridge/config"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/midiseq"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
)

// vrc7Channels is the melodic channel count left when the rhythm section
// or the VRC7 layout is active.
const vrc7Channels = 6

// loadConfig reads --config (or the defaults) and applies the global flag
// overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if lib := c.GlobalString("library"); lib != "" {
		cfg.Hardware.Enabled = true
		cfg.Hardware.Library = lib
	}
	if rate := c.GlobalInt("sample-rate"); rate > 0 {
		cfg.SampleRate = rate
	}
	if rate := c.GlobalInt("tick-rate"); rate > 0 {
		cfg.TickRate = rate
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loaderFor(cfg *config.Config) hw.Loader {
	if !cfg.Hardware.Enabled {
		return nil
	}
	return hw.DynamicLoader{Path: cfg.Hardware.Library}
}

// buildEngine creates the engine, instruments and systems described by cfg.
// The engine is not started.
func buildEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	e := engine.New(loaderFor(cfg),
		engine.WithSampleRate(cfg.SampleRate),
		engine.WithTickRate(cfg.TickRate),
		engine.WithLogger(logger))

	if len(cfg.Instruments) == 0 {
		e.AddInstrument(instrument.New("default"))
	}
	for _, ins := range cfg.Instruments {
		e.AddInstrument(ins)
	}

	for _, sys := range cfg.Systems {
		opts := append(sys.Options(cfg.Hardware), opll.WithLogger(logger))
		e.AddSystem(sys.DisplayName(), opll.New(opts...), sys.Flags(), sys.Hardware)
	}
	return e
}

// loadSequence reads a MIDI file routed to the first system.
func loadSequence(cfg *config.Config, e *engine.Engine, path string, logger *slog.Logger) (*midiseq.Sequence, error) {
	systems := e.Systems()
	if len(systems) == 0 {
		return nil, errors.New("no systems to play on")
	}

	first := cfg.Systems[0]
	drums := first.Chip == config.ChipOPLLDrums
	channels := systems[0].Channels
	if drums || first.Chip == config.ChipVRC7 {
		channels = min(channels, vrc7Channels)
	}

	var clock uint32 = opll.ClockNTSC
	if p, ok := e.System(0).(*opll.Platform); ok {
		clock = p.Clock()
	}

	return midiseq.LoadFile(path,
		midiseq.WithSystem(0),
		midiseq.WithChannels(channels),
		midiseq.WithTickRate(e.TickRate()),
		midiseq.WithClock(clock),
		midiseq.WithDrums(drums),
		midiseq.WithInstruments(e.Instruments()),
		midiseq.WithLogger(logger))
}

// wavFile opens a WAV writer on path. The returned close function finalizes
// the header and closes the file.
func wavFile(path string, sampleRate int) (*audio.WavWriter, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := audio.NewWavWriter(f, sampleRate)
	closeFn := func() error {
		werr := w.Close()
		ferr := f.Close()
		if werr != nil {
			return werr
		}
		return ferr
	}
	return w, closeFn, nil
}

func defaultWavPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".wav"
}

func requireArg(c *cli.Context, what string) (string, error) {
	if c.NArg() == 0 {
		cli.ShowCommandHelp(c, c.Command.Name)
		return "", fmt.Errorf("no %s provided", what)
	}
	return c.Args().First(), nil
}
