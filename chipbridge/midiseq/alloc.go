package midiseq

// voice is one chip channel as seen by the allocator.
type voice struct {
	active bool
	midiCh uint8
	note   uint8
	ins    int
	stamp  uint64 // allocation or release time, for oldest-first choice
}

// allocator hands out chip channels to MIDI notes. Free voices are reused
// oldest-released first; with none free, the oldest sounding voice is
// stolen.
type allocator struct {
	voices []voice
	clock  uint64
}

func newAllocator(channels int) *allocator {
	a := &allocator{voices: make([]voice, channels)}
	for i := range a.voices {
		a.voices[i].ins = -1
	}
	return a
}

// alloc returns the voice to use and whether it was stolen from a sounding
// note.
func (a *allocator) alloc(midiCh, note uint8) (int, bool) {
	a.clock++

	if i := a.find(midiCh, note); i >= 0 {
		a.voices[i].stamp = a.clock
		return i, false
	}

	best, stolen := -1, false
	for i, v := range a.voices {
		switch {
		case best < 0:
			best, stolen = i, v.active
		case !v.active && (stolen || v.stamp < a.voices[best].stamp):
			best, stolen = i, false
		case v.active && stolen && v.stamp < a.voices[best].stamp:
			best = i
		}
	}
	if best < 0 {
		return -1, false
	}

	v := &a.voices[best]
	v.active = true
	v.midiCh = midiCh
	v.note = note
	v.stamp = a.clock
	return best, stolen
}

// release frees the voice playing note on midiCh, returning its index or -1.
func (a *allocator) release(midiCh, note uint8) int {
	i := a.find(midiCh, note)
	if i < 0 {
		return -1
	}
	a.clock++
	a.voices[i].active = false
	a.voices[i].stamp = a.clock
	return i
}

func (a *allocator) find(midiCh, note uint8) int {
	for i, v := range a.voices {
		if v.active && v.midiCh == midiCh && v.note == note {
			return i
		}
	}
	return -1
}

// playing returns the indices of active voices on midiCh.
func (a *allocator) playing(midiCh uint8) []int {
	var out []int
	for i, v := range a.voices {
		if v.active && v.midiCh == midiCh {
			out = append(out, i)
		}
	}
	return out
}

func (a *allocator) activeCount() int {
	n := 0
	for _, v := range a.voices {
		if v.active {
			n++
		}
	}
	return n
}
