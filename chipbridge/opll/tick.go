package opll

import "github.com/valerio/go-chipbridge/chipbridge/instrument"

// drumBits maps a channel to its bits in the rhythm register.
func (p *Platform) drumBits(ch int) uint8 {
	if p.properDrums {
		return 0x10 >> (ch - firstDrum)
	}
	switch ch {
	case 6:
		return 0x10 // BD
	case 7:
		return 0x09 // SD + HH
	case 8:
		return 0x06 // TOM + TOP
	}
	return 0
}

// freqChannel is the register channel holding ch's frequency. Rhythm voices
// share: SD and HH use channel 7, TOM and TOP use channel 8.
var freqChannel = [maxChannels]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 8, 7}

// Tick runs one sequencer tick: macros, then every key-off edge, then
// frequency updates and key-on edges.
func (p *Platform) Tick(sysTick bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.channels; i++ {
		p.tickMacros(i)
	}

	for i := 0; i < p.channels; i++ {
		ch := &p.chans[i]
		if ch.InsChanged && ch.Active {
			p.applyInstrument(i, p.instrumentAt(ch.Ins))
		}
	}

	for i := 0; i < p.channels; i++ {
		ch := &p.chans[i]
		if !ch.KeyOff {
			continue
		}
		if p.drumChannel(i) {
			p.drumState &^= p.drumBits(i)
			p.forceWrite(0x0E, 0x20|p.drumState)
		} else if i < melodicChannels {
			p.forceWrite(uint16(0x20+i), p.keyReg(ch, false))
		}
		ch.KeyOff = false
	}

	for i := 0; i < p.channels; i++ {
		ch := &p.chans[i]
		if ch.FreqChanged {
			p.updateFreq(i)
		}

		switch {
		case ch.KeyOn:
			if p.drumChannel(i) {
				p.drumState |= p.drumBits(i)
				p.forceWrite(0x0E, 0x20|p.drumState)
			} else if i < melodicChannels {
				p.forceWrite(uint16(0x20+i), p.keyReg(ch, true))
			}
			ch.KeyOn = false
		case ch.FreqChanged && !p.drumChannel(i) && i < melodicChannels:
			p.immWrite(uint16(0x20+i), p.keyReg(ch, ch.Active))
		}
		ch.FreqChanged = false
	}
}

func (p *Platform) keyReg(ch *Channel, key bool) uint8 {
	v := ch.FreqH
	if key {
		v |= 0x10
	}
	if ch.State.Sustain {
		v |= 0x20
	}
	return v
}

func (p *Platform) tickMacros(i int) {
	ch := &p.chans[i]
	ch.Std.Next()

	if ch.Std.Vol.Had {
		ch.OutVol = ch.Vol * min(15, ch.Std.Vol.Val) / 15
		p.writeVolume(i)
	}

	if ch.Std.Arp.Had {
		if !ch.InPorta {
			if ch.Std.Arp.Mode == 1 {
				ch.BaseFreq = NoteToFreq(ch.Std.Arp.Val, p.clock)
			} else {
				ch.BaseFreq = NoteToFreq(ch.Note+ch.Std.Arp.Val, p.clock)
			}
		}
		ch.FreqChanged = true
	} else if ch.Std.Arp.Mode == 1 && !ch.Std.Arp.Will && ch.Active {
		// fixed arpeggio finished: back to the played note
		ch.BaseFreq = NoteToFreq(ch.Note, p.clock)
		ch.FreqChanged = true
		ch.Std.Arp.Mode = 0
	}

	if ch.Std.Wave.Had && ch.State.Preset != instrument.PresetDrums && !p.drumChannel(i) {
		ch.State.Preset = ch.Std.Wave.Val & 0x0F
		if ch.State.Preset == instrument.PresetCustom && p.lastCustomMemory != ch.Ins {
			p.writePatch(ch.State)
			p.lastCustomMemory = ch.Ins
		}
		p.writeVolume(i)
	}

	if ch.Std.Pitch.Had {
		if ch.Std.Pitch.Mode == 1 {
			ch.Pitch2 += ch.Std.Pitch.Val
		} else {
			ch.Pitch2 = ch.Std.Pitch.Val
		}
		ch.FreqChanged = true
	}
}

// updateFreq recomputes the channel frequency and writes the F-number.
func (p *Platform) updateFreq(i int) {
	ch := &p.chans[i]

	ch.Freq = ch.BaseFreq + (ch.Pitch+ch.Pitch2)*Octave(ch.BaseFreq)
	if ch.Freq < 0 {
		ch.Freq = 0
	}
	if ch.Freq > MaxFreq {
		ch.Freq = MaxFreq
	}

	raw := ToFreq(ch.Freq)
	if ch.FixedFreq > 0 {
		raw = ch.FixedFreq
	}
	ch.FreqH = uint8(raw >> 8)
	ch.FreqL = uint8(raw)

	reg := i
	if p.drumChannel(i) {
		reg = freqChannel[i]
		p.immWrite(uint16(0x10+reg), ch.FreqL)
		p.immWrite(uint16(0x20+reg), ch.FreqH)
		return
	}
	if reg < melodicChannels {
		p.immWrite(uint16(0x10+reg), ch.FreqL)
	}
}
