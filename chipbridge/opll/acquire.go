package opll

import (
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/fmcore"
)

// replayOrder is the register order used to rebuild chip state on a path
// switch: patch and rhythm volumes first, key registers last.
var replayOrder = func() []uint16 {
	var regs []uint16
	for a := uint16(0x00); a < 0x08; a++ {
		regs = append(regs, a)
	}
	for a := uint16(0x10); a < 0x19; a++ {
		regs = append(regs, a)
	}
	for a := uint16(0x30); a < 0x39; a++ {
		regs = append(regs, a)
	}
	regs = append(regs, 0x0E)
	for a := uint16(0x20); a < 0x29; a++ {
		regs = append(regs, a)
	}
	return regs
}()

// Acquire renders length frames into bufL and bufR starting at start. With
// a physical chip attached, pending writes are mirrored to it instead.
func (p *Platform) Acquire(bufL, bufR []int16, start, length int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.core == nil || start < 0 || length <= 0 || start+length > len(bufL) || start+length > len(bufR) {
		return
	}

	var bridge dispatch.HardwareBridge
	if p.host != nil {
		bridge = p.host.Hardware()
	}
	attached := bridge != nil && bridge.HasAttached(p)

	if attached != p.onHardware {
		p.switchPath(attached, bridge)
	}

	if attached {
		p.sendDataToRealChip(bridge)
		if p.hwMode == HardwarePassthrough {
			p.renderSilence(bufL, bufR, start, length)
			return
		}
	}
	p.acquireEmulated(bufL, bufR, start, length)
}

// switchPath replays the register pool into the path becoming active, so
// the chip and the core both reflect the same logical state.
func (p *Platform) switchPath(toHardware bool, bridge dispatch.HardwareBridge) {
	p.onHardware = toHardware

	if toHardware {
		p.logger.Debug("OPLL output moved to hardware", "writes", len(replayOrder))
		if p.vrc7 {
			p.logger.Warn("VRC7 mode is played on a YM2413; ROM presets 1-15 will sound different")
		}
		for _, a := range replayOrder {
			bridge.Write(p, uint32(a), uint32(p.regPool[a]))
		}
		return
	}

	p.logger.Debug("OPLL output moved to emulation")
	if p.hwMode == HardwareParallel {
		return
	}
	p.core.Reset()
	for _, a := range replayOrder {
		p.core.Write(0, uint8(a))
		p.core.Write(1, p.regPool[a])
	}
}

// sendDataToRealChip drains the whole queue to the attached chip in FIFO
// order. In parallel mode the core receives the same writes.
func (p *Platform) sendDataToRealChip(bridge dispatch.HardwareBridge) {
	for !p.writes.Empty() {
		w := p.writes.Front()
		if !bridge.Write(p, uint32(w.Addr), uint32(w.Val)) {
			p.logger.Debug("Hardware register write failed", "addr", w.Addr, "val", w.Val)
		}
		if p.hwMode == HardwareParallel {
			if !w.AddrOrVal {
				p.core.Write(0, uint8(w.Addr))
			}
			p.core.Write(1, w.Val)
		}
		p.commit(w)
		p.writes.Pop()
	}
	p.delay = 0
}

func (p *Platform) commit(w *dispatch.QueuedWrite) {
	p.regPool[w.Addr&0xFF] = w.Val
	if p.dumping {
		p.dump = append(p.dump, dispatch.RegWrite{Addr: uint32(w.Addr), Val: uint16(w.Val)})
	}
}

func (p *Platform) acquireEmulated(bufL, bufR []int16, start, length int) {
	for h := start; h < start+length; h++ {
		if !p.writes.Empty() {
			p.delay--
			if p.delay < 0 {
				w := p.writes.Front()
				if w.AddrOrVal {
					p.core.Write(1, w.Val)
					p.commit(w)
					p.writes.Pop()
					p.delay = writeDelay
				} else {
					p.core.Write(0, uint8(w.Addr))
					w.AddrOrVal = true
					p.delay = 0
				}
			}
		}

		p.core.Render(p.voiceOut[:])

		var mix int32
		for i := 0; i < fmcore.Voices; i++ {
			out := p.voiceOut[i]
			if i < maxChannels && p.muted[i] {
				out = 0
			}
			mix += out
			if i < p.channels && p.osc[i] != nil {
				p.osc[i].Push(clamp16(out))
			}
		}

		s := clamp16(mix)
		bufL[h] = s
		bufR[h] = s
	}
}

func (p *Platform) renderSilence(bufL, bufR []int16, start, length int) {
	for h := start; h < start+length; h++ {
		bufL[h] = 0
		bufR[h] = 0
		for i := 0; i < p.channels; i++ {
			if p.osc[i] != nil {
				p.osc[i].Push(0)
			}
		}
	}
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
