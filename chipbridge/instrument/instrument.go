package instrument

import "github.com/valerio/go-chipbridge/chipbridge/bit"

// Preset numbers for the OPLL family. 0 selects the user patch held in
// registers 0x00-0x07, 1-15 select ROM patches.
const (
	PresetCustom = 0
	PresetDrums  = 16
)

// Operator holds one FM operator of a 2-op OPLL patch.
type Operator struct {
	AM   bool  `yaml:"am"`
	Vib  bool  `yaml:"vib"`
	EGT  bool  `yaml:"egt"` // sustained envelope
	KSR  bool  `yaml:"ksr"`
	Mult uint8 `yaml:"mult"`
	KSL  uint8 `yaml:"ksl"`
	TL   uint8 `yaml:"tl"` // only meaningful on the modulator
	Wave uint8 `yaml:"wave"`
	AR   uint8 `yaml:"ar"`
	DR   uint8 `yaml:"dr"`
	SL   uint8 `yaml:"sl"`
	RR   uint8 `yaml:"rr"`
}

// FM is the OPLL flavour of an FM instrument.
type FM struct {
	Mod Operator `yaml:"mod"`
	Car Operator `yaml:"car"`
	FB  uint8    `yaml:"fb"`

	Preset  int  `yaml:"preset"`
	Sustain bool `yaml:"sustain"` // sets the channel sustain bit on key-on

	// Fixed drum frequencies, raw block<<9|fnum values for channels 6, 7, 8.
	FixedDrums   bool `yaml:"fixed_drums"`
	KickFreq     int  `yaml:"kick_freq"`
	SnareHatFreq int  `yaml:"snare_hat_freq"`
	TomTopFreq   int  `yaml:"tom_top_freq"`
}

// Macro is a stepped value sequence evaluated once per tick.
type Macro struct {
	Values  []int `yaml:"values"`
	Loop    int   `yaml:"loop"`    // index to jump back to, -1 for none
	Release int   `yaml:"release"` // index to hold at until key-off, -1 for none
	Mode    int   `yaml:"mode"`    // arp: 1 = fixed note; pitch: 1 = relative
}

// Len reports the number of steps.
func (m Macro) Len() int {
	return len(m.Values)
}

// Std holds the macros the OPLL dispatch understands.
type Std struct {
	Vol   Macro `yaml:"vol"`
	Arp   Macro `yaml:"arp"`
	Pitch Macro `yaml:"pitch"`
	Wave  Macro `yaml:"wave"` // patch number
}

// Instrument is an FM instrument plus its macros.
type Instrument struct {
	Name string `yaml:"name"`
	FM   FM     `yaml:"fm"`
	Std  Std    `yaml:"std"`
}

// New returns an instrument using the custom patch with a plain sine-ish
// envelope, useful as a starting point.
func New(name string) *Instrument {
	return &Instrument{
		Name: name,
		FM: FM{
			Mod: Operator{Mult: 1, TL: 0x20, AR: 15, DR: 4, SL: 4, RR: 7, EGT: true},
			Car: Operator{Mult: 1, AR: 15, DR: 2, SL: 2, RR: 7, EGT: true},
		},
		Std: Std{
			Vol:   Macro{Loop: -1, Release: -1},
			Arp:   Macro{Loop: -1, Release: -1},
			Pitch: Macro{Loop: -1, Release: -1},
			Wave:  Macro{Loop: -1, Release: -1},
		},
	}
}

// IsDrums reports whether the instrument requests rhythm mode.
func (ins *Instrument) IsDrums() bool {
	return ins != nil && ins.FM.Preset == PresetDrums
}

func encodeOp(op Operator) uint8 {
	return bit.Flag(op.AM)<<7 | bit.Flag(op.Vib)<<6 | bit.Flag(op.EGT)<<5 | bit.Flag(op.KSR)<<4 | op.Mult&0x0F
}

func decodeOp(v uint8) Operator {
	return Operator{
		AM:   bit.IsSet(7, v),
		Vib:  bit.IsSet(6, v),
		EGT:  bit.IsSet(5, v),
		KSR:  bit.IsSet(4, v),
		Mult: bit.LowNibble(v),
	}
}

// PatchRegisters encodes the instrument as the eight user patch registers.
//
//	0: mod AM/VIB/EGT/KSR/MULT   1: car AM/VIB/EGT/KSR/MULT
//	2: mod KSL/TL                3: car KSL, DC, DM, FB
//	4: mod AR/DR                 5: car AR/DR
//	6: mod SL/RR                 7: car SL/RR
func (f FM) PatchRegisters() [8]uint8 {
	var r [8]uint8
	r[0] = encodeOp(f.Mod)
	r[1] = encodeOp(f.Car)
	r[2] = bit.Pack(f.Mod.KSL, 2, 6) | f.Mod.TL&0x3F
	r[3] = bit.Pack(f.Car.KSL, 2, 6) | bit.Pack(f.Car.Wave, 1, 4) | bit.Pack(f.Mod.Wave, 1, 3) | f.FB&0x07
	r[4] = bit.Nibbles(f.Mod.AR, f.Mod.DR)
	r[5] = bit.Nibbles(f.Car.AR, f.Car.DR)
	r[6] = bit.Nibbles(f.Mod.SL, f.Mod.RR)
	r[7] = bit.Nibbles(f.Car.SL, f.Car.RR)
	return r
}

// DecodePatch is the inverse of PatchRegisters.
func DecodePatch(r [8]uint8) FM {
	f := FM{
		Mod: decodeOp(r[0]),
		Car: decodeOp(r[1]),
		FB:  r[3] & 0x07,
	}
	f.Mod.KSL = bit.ExtractBits(r[2], 7, 6)
	f.Mod.TL = r[2] & 0x3F
	f.Car.KSL = bit.ExtractBits(r[3], 7, 6)
	f.Car.Wave = bit.ExtractBits(r[3], 4, 4)
	f.Mod.Wave = bit.ExtractBits(r[3], 3, 3)
	f.Mod.AR, f.Mod.DR = bit.HighNibble(r[4]), bit.LowNibble(r[4])
	f.Car.AR, f.Car.DR = bit.HighNibble(r[5]), bit.LowNibble(r[5])
	f.Mod.SL, f.Mod.RR = bit.HighNibble(r[6]), bit.LowNibble(r[6])
	f.Car.SL, f.Car.RR = bit.HighNibble(r[7]), bit.LowNibble(r[7])
	return f
}
