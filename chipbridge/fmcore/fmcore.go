// Package fmcore is an approximate software model of the YM2413 (OPLL)
// family: nine 2-operator FM voices, a five piece rhythm section and the
// VRC7 variant. It is not bit-exact; it exists so the OPLL dispatch can be
// heard without a physical chip.
package fmcore

import (
	"math"

	"github.com/valerio/go-chipbridge/chipbridge/bit"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
)

const (
	sinTableSize = 8192
	sinTableMask = sinTableSize - 1
)

var sinTable [sinTableSize]float64

func init() {
	for i := range sinTable {
		sinTable[i] = math.Sin(2 * math.Pi * float64(i) / sinTableSize)
	}
}

// sinCycles returns sin(2*pi*x).
func sinCycles(x float64) float64 {
	return sinTable[int(x*sinTableSize)&sinTableMask]
}

var multTable = [16]float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 12, 12, 15, 15}

type voice struct {
	fnum    uint16
	block   uint8
	key     bool
	sustain bool
	inst    uint8
	vol     uint8

	mod operator
	car operator
}

// Chip is one OPLL. Writes go through a latched address port (port 0) and
// a data port (port 1), like the real part. Render produces one frame at the
// configured output rate.
type Chip struct {
	clock    uint32
	rate     int
	patchSet PatchSet

	latch     uint8
	registers [registerCount]uint8
	voices    [melodicChannels]voice

	lfsr     uint32
	amPhase  float64
	vibPhase float64
}

// New creates a chip running at clock Hz, rendering at rate frames per
// second.
func New(clock uint32, rate int, set PatchSet) *Chip {
	if rate <= 0 {
		rate = 44100
	}
	c := &Chip{clock: clock, rate: rate, patchSet: set}
	c.Reset()
	return c
}

// Reset clears every register and silences all voices.
func (c *Chip) Reset() {
	c.latch = 0
	c.registers = [registerCount]uint8{}
	for i := range c.voices {
		c.voices[i] = voice{}
		c.voices[i].mod.silence()
		c.voices[i].car.silence()
	}
	c.lfsr = lfsrInitialValue
	c.amPhase = 0
	c.vibPhase = 0
}

// SetPatchSet switches the instrument ROM.
func (c *Chip) SetPatchSet(set PatchSet) {
	c.patchSet = set
}

func (c *Chip) PatchSet() PatchSet { return c.patchSet }
func (c *Chip) Clock() uint32      { return c.clock }
func (c *Chip) Rate() int          { return c.rate }

// Register returns the last value written to addr.
func (c *Chip) Register(addr uint8) uint8 {
	if int(addr) >= registerCount {
		return 0
	}
	return c.registers[addr]
}

// Write drives one of the two bus ports: port 0 latches an address, port 1
// writes data to the latched address.
func (c *Chip) Write(port int, data uint8) {
	if port&1 == 0 {
		c.latch = data
		return
	}
	c.writeRegister(c.latch, data)
}

func (c *Chip) rhythmMode() bool {
	return c.patchSet != PatchVRC7 && bit.IsSet(rhythmEnable, c.registers[regRhythm])
}

func (c *Chip) writeRegister(addr, value uint8) {
	if int(addr) >= registerCount {
		return
	}
	old := c.registers[addr]
	c.registers[addr] = value

	switch {
	case addr == regRhythm:
		c.updateRhythm(old, value)
	case addr >= regFnumLow && addr < regFnumLow+melodicChannels:
		v := &c.voices[addr-regFnumLow]
		v.fnum = v.fnum&0x100 | uint16(value)
	case addr >= regKeyBlock && addr < regKeyBlock+melodicChannels:
		v := &c.voices[addr-regKeyBlock]
		v.fnum = v.fnum&0xFF | uint16(value&1)<<8
		v.block = bit.ExtractBits(value, 3, 1)
		v.sustain = bit.IsSet(5, value)
		key := bit.IsSet(4, value)
		if key && !v.key {
			v.mod.keyOn()
			v.car.keyOn()
		} else if !key && v.key {
			v.mod.keyOff()
			v.car.keyOff()
		}
		v.key = key
	case addr >= regInstVol && addr < regInstVol+melodicChannels:
		v := &c.voices[addr-regInstVol]
		v.inst = bit.HighNibble(value)
		v.vol = bit.LowNibble(value)
	}
}

func (c *Chip) updateRhythm(old, value uint8) {
	if c.patchSet == PatchVRC7 {
		return
	}

	if !bit.IsSet(rhythmEnable, value) {
		if bit.IsSet(rhythmEnable, old) {
			for i := SlotBD; i < melodicChannels; i++ {
				c.voices[i].mod.keyOff()
				c.voices[i].car.keyOff()
			}
		}
		return
	}

	edge := func(b uint8, ops ...*operator) {
		was, now := bit.IsSet(b, old) && bit.IsSet(rhythmEnable, old), bit.IsSet(b, value)
		for _, op := range ops {
			if now && !was {
				op.keyOn()
			} else if !now && was {
				op.keyOff()
			}
		}
	}
	edge(rhythmBD, &c.voices[6].mod, &c.voices[6].car)
	edge(rhythmHH, &c.voices[7].mod)
	edge(rhythmSD, &c.voices[7].car)
	edge(rhythmTOM, &c.voices[8].mod)
	edge(rhythmTOP, &c.voices[8].car)
}

// patch returns the instrument driving voice ch.
func (c *Chip) patch(ch int) instrument.FM {
	if ch >= SlotBD && c.rhythmMode() {
		return instrument.DecodePatch(rhythmPatches[ch-SlotBD])
	}
	v := &c.voices[ch]
	if v.inst == instrument.PresetCustom {
		var regs [8]uint8
		copy(regs[:], c.registers[regCustomPatch:regCustomPatch+8])
		return instrument.DecodePatch(regs)
	}
	regs, _ := ROMPatch(c.patchSet, int(v.inst))
	return instrument.DecodePatch(regs)
}

func (c *Chip) baseFrequency(v *voice) float64 {
	return float64(v.fnum) * float64(uint32(1)<<v.block) * float64(c.clock) / 72 / (1 << 19)
}

func (c *Chip) increment(base float64, op instrument.Operator) float64 {
	f := base * multTable[op.Mult&0x0F]
	if op.Vib {
		f *= 1 + vibDepth*sinCycles(c.vibPhase)
	}
	return f / float64(c.rate)
}

func (c *Chip) tremolo(op instrument.Operator) float64 {
	if !op.AM {
		return 0
	}
	return amDepth * (1 + sinCycles(c.amPhase)) / 2
}

func waveform(halfSine bool, s float64) float64 {
	if halfSine && s < 0 {
		return 0
	}
	return s
}

func releaseRate(op instrument.Operator, sustain bool) uint8 {
	if sustain {
		return sustainReleaseRate
	}
	return op.RR
}

func advance(op *operator, inc float64) {
	op.phase += inc
	op.phase -= math.Floor(op.phase)
}

func (c *Chip) stepOp(op *operator, p instrument.Operator, sustain bool) {
	op.step(p.AR, p.DR, p.SL, p.RR, p.EGT, releaseRate(p, sustain), float64(c.rate))
}

// renderFM runs one 2-op voice and returns its output in [-1, 1].
func (c *Chip) renderFM(v *voice, p instrument.FM, vol uint8) float64 {
	c.stepOp(&v.mod, p.Mod, v.sustain)
	c.stepOp(&v.car, p.Car, v.sustain)

	base := c.baseFrequency(v)

	fb := 0.0
	if p.FB > 0 {
		fb = (v.mod.out + v.mod.prev) / 2 * 0.25 / float64(uint32(1)<<(7-p.FB))
	}
	m := waveform(p.Mod.Wave != 0, sinCycles(v.mod.phase+fb)) *
		gain(v.mod.att+float64(p.Mod.TL)*tlStep+c.tremolo(p.Mod))
	v.mod.prev, v.mod.out = v.mod.out, m

	out := waveform(p.Car.Wave != 0, sinCycles(v.car.phase+m)) *
		gain(v.car.att+float64(vol)*volumeStep+c.tremolo(p.Car))

	advance(&v.mod, c.increment(base, p.Mod))
	advance(&v.car, c.increment(base, p.Car))
	return out
}

func square(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return -1
}

func (c *Chip) noise() float64 {
	if c.lfsr&1 != 0 {
		return 1
	}
	return -1
}

func (c *Chip) stepNoise() {
	b := (c.lfsr ^ c.lfsr>>14) & 1
	c.lfsr = c.lfsr>>1 | b<<22
}

func (c *Chip) renderRhythm(out []int32) {
	bd := &c.voices[6]
	sdhh := &c.voices[7]
	tomtop := &c.voices[8]

	bdVol := bit.LowNibble(c.registers[regInstVol+6])
	hhVol, sdVol := bit.HighNibble(c.registers[regInstVol+7]), bit.LowNibble(c.registers[regInstVol+7])
	tomVol, topVol := bit.HighNibble(c.registers[regInstVol+8]), bit.LowNibble(c.registers[regInstVol+8])

	out[SlotBD] = int32(2 * voiceScale * c.renderFM(bd, c.patch(6), bdVol))

	p7 := c.patch(7)
	p8 := c.patch(8)
	c.stepOp(&sdhh.mod, p7.Mod, false)
	c.stepOp(&sdhh.car, p7.Car, false)
	c.stepOp(&tomtop.mod, p8.Mod, false)
	c.stepOp(&tomtop.car, p8.Car, false)

	n := c.noise()
	hh := (n + square(sdhh.mod.phase)) / 2 * gain(sdhh.mod.att+float64(hhVol)*volumeStep)
	sd := square(sdhh.car.phase) * n * gain(sdhh.car.att+float64(sdVol)*volumeStep)
	tom := sinCycles(tomtop.mod.phase) * gain(tomtop.mod.att+float64(tomVol)*volumeStep)
	top := square(tomtop.car.phase) * square(sdhh.mod.phase) * gain(tomtop.car.att+float64(topVol)*volumeStep)

	out[SlotSD] = int32(voiceScale * sd)
	out[SlotTOM] = int32(voiceScale * tom)
	out[SlotTOP] = int32(voiceScale * top)
	out[SlotHH] = int32(voiceScale * hh)

	advance(&sdhh.mod, c.increment(c.baseFrequency(sdhh), p7.Mod))
	advance(&sdhh.car, c.increment(c.baseFrequency(sdhh), p7.Car))
	advance(&tomtop.mod, c.increment(c.baseFrequency(tomtop), p8.Mod))
	advance(&tomtop.car, c.increment(c.baseFrequency(tomtop), p8.Car))
}

// Render produces one output frame. out must hold at least Voices entries;
// each receives the output of one voice.
func (c *Chip) Render(out []int32) {
	if len(out) < Voices {
		return
	}

	c.stepNoise()
	c.amPhase += amFrequency / float64(c.rate)
	c.amPhase -= math.Floor(c.amPhase)
	c.vibPhase += vibFrequency / float64(c.rate)
	c.vibPhase -= math.Floor(c.vibPhase)

	rhythm := c.rhythmMode()
	for i := 0; i < melodicChannels; i++ {
		if rhythm && i >= SlotBD {
			break
		}
		v := &c.voices[i]
		out[i] = int32(voiceScale * c.renderFM(v, c.patch(i), v.vol))
	}

	if rhythm {
		c.renderRhythm(out)
		return
	}
	out[SlotTOP] = 0
	out[SlotHH] = 0
}
