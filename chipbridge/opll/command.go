package opll

import (
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
)

// Default rhythm frequencies (block<<9|fnum) for channels 6, 7 and 8 when
// a drum instrument does not fix its own.
var defaultDrumFreq = [3]int{0x0520, 0x0550, 0x01C0}

// Dispatch handles one sequencer command. Unknown commands and out of
// range channels are ignored and return 0.
func (p *Platform) Dispatch(c dispatch.Command) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !c.Cmd.Valid() || c.Chan < 0 || c.Chan >= p.channels {
		p.logger.Debug("Ignoring OPLL command", "command", c)
		return 0
	}

	ch := &p.chans[c.Chan]

	switch c.Cmd {
	case dispatch.CmdNoteOn:
		ins := p.instrumentAt(ch.Ins)
		if ch.InsChanged {
			p.applyInstrument(c.Chan, ins)
		}
		if c.Value != dispatch.NoteNull {
			ch.BaseFreq = NoteToFreq(c.Value, p.clock)
			ch.Note = c.Value
			ch.FreqChanged = true
		}
		if ch.Active {
			// retrigger: the tick sends the key-off edge first
			ch.KeyOff = true
		}
		ch.KeyOn = true
		ch.Active = true
		ch.Std.Init(ins)
		ch.Pitch2 = 0
		if !ch.Std.Vol.Will {
			ch.OutVol = ch.Vol
			p.writeVolume(c.Chan)
		}

	case dispatch.CmdNoteOff:
		ch.KeyOff = true
		ch.KeyOn = false
		ch.Active = false

	case dispatch.CmdNoteOffEnv:
		ch.KeyOff = true
		ch.KeyOn = false
		ch.Active = false
		ch.Std.Release()

	case dispatch.CmdEnvRelease:
		ch.Std.Release()

	case dispatch.CmdInstrument:
		if ch.Ins != c.Value || c.Value2 != 0 {
			ch.InsChanged = true
		}
		ch.Ins = c.Value

	case dispatch.CmdVolume:
		ch.Vol = c.Value
		if !ch.Std.Vol.Will {
			ch.OutVol = c.Value
		}
		p.writeVolume(c.Chan)

	case dispatch.CmdGetVolume:
		return ch.Vol

	case dispatch.CmdGetVolMax:
		return 15

	case dispatch.CmdPitch:
		ch.Pitch = c.Value
		ch.FreqChanged = true

	case dispatch.CmdNotePorta:
		return p.notePorta(ch, c.Value, c.Value2)

	case dispatch.CmdLegato:
		ch.BaseFreq = NoteToFreq(c.Value, p.clock)
		ch.Note = c.Value
		ch.FreqChanged = true

	case dispatch.CmdPrePorta:
		if ch.Active && c.Value2 != 0 {
			ch.Std.Init(p.instrumentAt(ch.Ins))
		}
		ch.InPorta = c.Value != 0

	case dispatch.CmdPanning:
		// the chip is mono; remembered for the visualizer only
		ch.Pan = uint8(c.Value)

	case dispatch.CmdFixedFreq:
		ch.FixedFreq = c.Value & 0x0FFF
		ch.FreqChanged = true

	case dispatch.CmdRegWrite:
		p.forceWrite(uint16(c.Value), uint8(c.Value2))

	case dispatch.CmdDrumMode:
		p.setLegacyDrums(c.Value != 0, nil)

	default:
		if !p.fmParam(c.Chan, c) {
			return 0
		}
	}
	return 1
}

func (p *Platform) notePorta(ch *Channel, speed, target int) int {
	dest := NoteToFreq(target, p.clock)
	reached := false

	if dest > ch.BaseFreq {
		ch.BaseFreq += speed * Octave(ch.BaseFreq)
		if ch.BaseFreq >= dest {
			ch.BaseFreq = dest
			reached = true
		}
	} else {
		ch.BaseFreq -= speed * Octave(ch.BaseFreq)
		if ch.BaseFreq <= dest {
			ch.BaseFreq = dest
			reached = true
		}
	}
	ch.FreqChanged = true

	if reached {
		ch.InPorta = false
		ch.Note = target
		return 2
	}
	return 1
}

// applyInstrument loads ins into channel index: patch, rhythm mode and
// volume register. The user patch is uploaded only when it differs from
// the last one sent.
func (p *Platform) applyInstrument(index int, ins *instrument.Instrument) {
	ch := &p.chans[index]
	ch.State = ins.FM
	ch.InsChanged = false

	if p.legacyDrumSlot(index) {
		if ins.IsDrums() {
			p.setLegacyDrums(true, ins)
		} else if p.drums {
			p.setLegacyDrums(false, nil)
		}
	}

	if p.drumChannel(index) {
		ch.FixedFreq = 0
		if ins.FM.FixedDrums {
			ch.FixedFreq = p.fixedDrumFreq(index, ins)
		}
		ch.FreqChanged = true
		p.writeVolume(index)
		return
	}

	if ch.State.Preset == instrument.PresetCustom && p.lastCustomMemory != ch.Ins {
		p.writePatch(ch.State)
		p.lastCustomMemory = ch.Ins
	}
	p.writeVolume(index)
}

func (p *Platform) fixedDrumFreq(index int, ins *instrument.Instrument) int {
	switch index {
	case 6:
		return ins.FM.KickFreq
	case 7, 10:
		return ins.FM.SnareHatFreq
	default:
		return ins.FM.TomTopFreq
	}
}

func (p *Platform) writePatch(fm instrument.FM) {
	for i, v := range fm.PatchRegisters() {
		p.immWrite(uint16(i), v)
	}
}

// setLegacyDrums switches rhythm mode on channels 6-8. ins may carry fixed
// drum frequencies.
func (p *Platform) setLegacyDrums(on bool, ins *instrument.Instrument) {
	if p.properDrums || p.vrc7 || on == p.drums {
		return
	}
	p.drums = on
	p.drumState = 0

	if !on {
		p.immWrite(0x0E, 0)
		return
	}

	p.immWrite(0x0E, 0x20)
	freqs := defaultDrumFreq
	if ins != nil && ins.FM.FixedDrums {
		freqs = [3]int{ins.FM.KickFreq, ins.FM.SnareHatFreq, ins.FM.TomTopFreq}
	}
	for i, f := range freqs {
		p.immWrite(uint16(0x16+i), uint8(f))
		p.immWrite(uint16(0x26+i), uint8(f>>8)&0x0F)
	}
}

// fmParam edits one field of the channel's patch. Only the user patch lives
// in registers, so nothing is written for ROM presets.
func (p *Platform) fmParam(index int, c dispatch.Command) bool {
	ch := &p.chans[index]
	fm := &ch.State

	ops := func(fn func(op *instrument.Operator)) {
		switch c.Value {
		case 0:
			fn(&fm.Mod)
		case 1:
			fn(&fm.Car)
		default:
			fn(&fm.Mod)
			fn(&fm.Car)
		}
	}
	v := uint8(c.Value2)

	switch c.Cmd {
	case dispatch.CmdFMFeedback:
		fm.FB = uint8(c.Value) & 0x07
	case dispatch.CmdFMMult:
		ops(func(op *instrument.Operator) { op.Mult = v & 0x0F })
	case dispatch.CmdFMTL:
		ops(func(op *instrument.Operator) { op.TL = v & 0x3F })
	case dispatch.CmdFMAR:
		ops(func(op *instrument.Operator) { op.AR = v & 0x0F })
	case dispatch.CmdFMDR:
		ops(func(op *instrument.Operator) { op.DR = v & 0x0F })
	case dispatch.CmdFMSL:
		ops(func(op *instrument.Operator) { op.SL = v & 0x0F })
	case dispatch.CmdFMRR:
		ops(func(op *instrument.Operator) { op.RR = v & 0x0F })
	case dispatch.CmdFMAM:
		ops(func(op *instrument.Operator) { op.AM = v != 0 })
	case dispatch.CmdFMVib:
		ops(func(op *instrument.Operator) { op.Vib = v != 0 })
	case dispatch.CmdFMKSR:
		ops(func(op *instrument.Operator) { op.KSR = v != 0 })
	case dispatch.CmdFMEGT:
		ops(func(op *instrument.Operator) { op.EGT = v != 0 })
	case dispatch.CmdFMWave:
		ops(func(op *instrument.Operator) { op.Wave = v & 1 })
	default:
		return false
	}

	if fm.Preset == instrument.PresetCustom && !p.drumChannel(index) {
		p.writePatch(*fm)
		// the uploaded patch no longer matches any instrument
		p.lastCustomMemory = noCustomPatch
	}
	return true
}
