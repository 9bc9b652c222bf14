package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPatchRegisters(t *testing.T) {
	fm := FM{
		Mod: Operator{AM: true, EGT: true, Mult: 2, KSL: 1, TL: 0x1F, Wave: 1, AR: 15, DR: 3, SL: 5, RR: 7},
		Car: Operator{Vib: true, KSR: true, Mult: 1, KSL: 2, Wave: 0, AR: 12, DR: 4, SL: 6, RR: 8},
		FB:  6,
	}

	regs := fm.PatchRegisters()
	assert.Equal(t, uint8(0xA2), regs[0], "mod flags")
	assert.Equal(t, uint8(0x51), regs[1], "car flags")
	assert.Equal(t, uint8(0x5F), regs[2], "mod KSL/TL")
	assert.Equal(t, uint8(0x8E), regs[3], "car KSL, DM, FB")
	assert.Equal(t, uint8(0xF3), regs[4])
	assert.Equal(t, uint8(0xC4), regs[5])
	assert.Equal(t, uint8(0x57), regs[6])
	assert.Equal(t, uint8(0x68), regs[7])

	assert.Equal(t, fm, DecodePatch(regs))
}

func TestIsDrums(t *testing.T) {
	ins := New("kit")
	assert.False(t, ins.IsDrums())
	ins.FM.Preset = PresetDrums
	assert.True(t, ins.IsDrums())

	var none *Instrument
	assert.False(t, none.IsDrums())
}

func TestUnmarshalYAMLKeepsDefaults(t *testing.T) {
	doc := `
name: bell
fm:
  preset: 0
  fb: 3
  mod: {mult: 4, ar: 12}
std:
  vol: {values: [15, 12, 8], loop: 1}
`
	var ins Instrument
	require.NoError(t, yaml.Unmarshal([]byte(doc), &ins))

	assert.Equal(t, "bell", ins.Name)
	assert.Equal(t, uint8(3), ins.FM.FB)
	assert.Equal(t, uint8(4), ins.FM.Mod.Mult)
	assert.Equal(t, uint8(12), ins.FM.Mod.AR)
	assert.Equal(t, uint8(0x20), ins.FM.Mod.TL, "untouched fields keep the defaults")
	assert.Equal(t, []int{15, 12, 8}, ins.Std.Vol.Values)
	assert.Equal(t, 1, ins.Std.Vol.Loop)
	assert.Equal(t, -1, ins.Std.Vol.Release)
	assert.Equal(t, -1, ins.Std.Arp.Loop)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Instrument)
		wantErr string
	}{
		{"default", func(*Instrument) {}, ""},
		{"drums", func(i *Instrument) { i.FM.Preset = PresetDrums }, ""},
		{"mult", func(i *Instrument) { i.FM.Mod.Mult = 16 }, "mod.mult"},
		{"tl", func(i *Instrument) { i.FM.Mod.TL = 64 }, "mod.tl"},
		{"carrier rr", func(i *Instrument) { i.FM.Car.RR = 20 }, "car.rr"},
		{"feedback", func(i *Instrument) { i.FM.FB = 8 }, "fb"},
		{"preset", func(i *Instrument) { i.FM.Preset = 17 }, "preset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := New("x")
			tt.mutate(ins)
			err := ins.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
