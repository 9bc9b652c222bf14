// Package config loads a session description: output rates, the hardware
// driver and the chip systems to create.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/valerio/go-chipbridge/chipbridge/fmcore"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSampleRate = 44100
	DefaultTickRate   = 60
)

// Chip kinds accepted in systems[].chip.
const (
	ChipOPLL      = "opll"
	ChipVRC7      = "vrc7"
	ChipOPLLDrums = "opll-drums"
)

// Hardware modes accepted in hardware.mode.
const (
	ModePassthrough = "passthrough"
	ModeParallel    = "parallel"
)

type Hardware struct {
	Enabled bool   `yaml:"enabled"`
	Library string `yaml:"library"`
	Mode    string `yaml:"mode"`
}

type System struct {
	Name     string `yaml:"name"`
	Chip     string `yaml:"chip"`
	Clock    string `yaml:"clock"`
	PatchSet string `yaml:"patch_set"`
	Hardware bool   `yaml:"hardware"`
}

type Output struct {
	Wav string `yaml:"wav"`
}

type Config struct {
	SampleRate  int                      `yaml:"sample_rate"`
	TickRate    int                      `yaml:"tick_rate"`
	Hardware    Hardware                 `yaml:"hardware"`
	Systems     []System                 `yaml:"systems"`
	Instruments []*instrument.Instrument `yaml:"instruments"`
	Output      Output                   `yaml:"output"`
}

// Default returns a config with a single emulated OPLL.
func Default() *Config {
	return &Config{
		SampleRate: DefaultSampleRate,
		TickRate:   DefaultTickRate,
		Hardware:   Hardware{Mode: ModePassthrough},
		Systems:    []System{{Name: "opll", Chip: ChipOPLL, Clock: "ntsc"}},
	}
}

// Load reads a YAML config from path on top of Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML config on top of Default and validates it.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var clocks = map[string]uint32{
	"":     0,
	"ntsc": 0,
	"pal":  1,
	"4mhz": 2,
	"half": 3,
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate %d out of range 8000-192000", c.SampleRate)
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		return fmt.Errorf("tick_rate %d out of range 1-1000", c.TickRate)
	}

	switch c.Hardware.Mode {
	case "", ModePassthrough, ModeParallel:
	default:
		return fmt.Errorf("hardware.mode %q: want %s or %s", c.Hardware.Mode, ModePassthrough, ModeParallel)
	}
	if c.Hardware.Enabled && c.Hardware.Library == "" {
		return errors.New("hardware.enabled needs hardware.library")
	}

	if len(c.Systems) == 0 {
		return errors.New("no systems configured")
	}
	for i, s := range c.Systems {
		if err := s.validate(); err != nil {
			return fmt.Errorf("systems[%d]: %w", i, err)
		}
	}

	for i, ins := range c.Instruments {
		if ins == nil {
			return fmt.Errorf("instruments[%d]: empty entry", i)
		}
		if err := ins.Validate(); err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
	}
	return nil
}

func (s System) validate() error {
	switch s.Chip {
	case ChipOPLL, ChipVRC7, ChipOPLLDrums:
	default:
		return fmt.Errorf("unknown chip %q", s.Chip)
	}
	if _, ok := clocks[strings.ToLower(s.Clock)]; !ok {
		return fmt.Errorf("unknown clock %q", s.Clock)
	}
	if s.PatchSet != "" {
		if _, err := fmcore.ParsePatchSet(s.PatchSet); err != nil {
			return err
		}
	}
	return nil
}

// Flags encodes the system settings as OPLL init flags.
func (s System) Flags() uint32 {
	flags := clocks[strings.ToLower(s.Clock)]
	if ps, err := fmcore.ParsePatchSet(s.PatchSet); err == nil {
		flags |= uint32(ps) << opll.FlagPatchSetShift
	}
	if s.Chip == ChipOPLLDrums {
		flags |= opll.FlagProperDrums
	}
	return flags
}

// Options returns the OPLL options matching the system and hardware mode.
func (s System) Options(hw Hardware) []opll.Option {
	opts := []opll.Option{opll.WithVRC7(s.Chip == ChipVRC7)}
	if hw.Mode == ModeParallel {
		opts = append(opts, opll.WithHardwareMode(opll.HardwareParallel))
	}
	return opts
}

// DisplayName returns the configured name or the chip kind.
func (s System) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Chip
}
