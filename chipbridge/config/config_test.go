package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/fmcore"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
)

const fullConfig = `
sample_rate: 48000
tick_rate: 50
hardware:
  enabled: true
  library: /usr/lib/libscci.so
  mode: parallel
systems:
  - name: main
    chip: opll
    clock: pal
    patch_set: ymf281
    hardware: true
  - chip: opll-drums
  - chip: vrc7
instruments:
  - name: lead
    fm: {fb: 5, mod: {mult: 2}}
output:
  wav: out.wav
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse(strings.NewReader(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 50, cfg.TickRate)
	assert.True(t, cfg.Hardware.Enabled)
	assert.Equal(t, ModeParallel, cfg.Hardware.Mode)
	require.Len(t, cfg.Systems, 3, "systems replace the default list")
	assert.Equal(t, "main", cfg.Systems[0].DisplayName())
	assert.Equal(t, ChipOPLLDrums, cfg.Systems[1].DisplayName())
	require.Len(t, cfg.Instruments, 1)
	assert.Equal(t, uint8(5), cfg.Instruments[0].FM.FB)
	assert.Equal(t, -1, cfg.Instruments[0].Std.Vol.Loop)
	assert.Equal(t, "out.wav", cfg.Output.Wav)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 100 }, "sample_rate"},
		{"tick rate", func(c *Config) { c.TickRate = 0 }, "tick_rate"},
		{"mode", func(c *Config) { c.Hardware.Mode = "mirror" }, "hardware.mode"},
		{"library", func(c *Config) { c.Hardware.Enabled = true }, "hardware.library"},
		{"no systems", func(c *Config) { c.Systems = nil }, "no systems"},
		{"chip", func(c *Config) { c.Systems[0].Chip = "opn" }, "systems[0]: unknown chip"},
		{"clock", func(c *Config) { c.Systems[0].Clock = "fast" }, "unknown clock"},
		{"patch set", func(c *Config) { c.Systems[0].PatchSet = "ym9999" }, "unknown patch set"},
		{"instrument", func(c *Config) {
			bad := instrument.New("bad")
			bad.FM.FB = 9
			c.Instruments = []*instrument.Instrument{bad}
		}, "instruments[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSystemFlags(t *testing.T) {
	tests := []struct {
		sys  System
		want uint32
	}{
		{System{Chip: ChipOPLL}, 0},
		{System{Chip: ChipOPLL, Clock: "PAL"}, 1},
		{System{Chip: ChipOPLL, Clock: "half", PatchSet: "ym2423"}, 3 | uint32(fmcore.PatchYM2423)<<opll.FlagPatchSetShift},
		{System{Chip: ChipOPLLDrums, Clock: "4mhz"}, 2 | opll.FlagProperDrums},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sys.Flags(), "%+v", tt.sys)
	}
}

func TestSystemOptionsBuildPlatform(t *testing.T) {
	sys := System{Chip: ChipVRC7}
	p := opll.New(sys.Options(Hardware{Mode: ModeParallel})...)
	assert.Equal(t, 6, p.Init(nil, 0, 44100, sys.Flags()))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate: 120\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.TickRate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("tick_rate: [1, 2]\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
