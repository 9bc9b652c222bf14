package opll

import "math"

// Frequencies inside the backend are linear: F = fnum << block, so one unit
// is the pitch of F-number 1 at block 0. The chip itself takes a 3 bit block
// and a 9 bit F-number.

const (
	maxFnum  = 511
	maxBlock = 7

	// MaxFreq is the highest linear frequency the chip can play.
	MaxFreq = maxFnum << maxBlock
)

// Clock rates selectable through the low flag nibble.
const (
	ClockNTSC     = 3579545
	ClockPAL      = 3546895
	Clock4MHz     = 4000000
	ClockHalfNTSC = 1789772
)

// NoteToFreq returns the linear frequency of a MIDI-style note (69 = A4 at
// 440 Hz) on a chip running at clock Hz.
func NoteToFreq(note int, clock uint32) int {
	if clock == 0 {
		return 0
	}
	hz := 440 * math.Pow(2, float64(note-69)/12)
	return int(math.Round(hz * (1 << 19) / (float64(clock) / 72)))
}

// FreqToNote is the inverse of NoteToFreq, rounded to the nearest note.
func FreqToNote(freq int, clock uint32) int {
	if freq <= 0 || clock == 0 {
		return 0
	}
	hz := float64(freq) * (float64(clock) / 72) / (1 << 19)
	return int(math.Round(69 + 12*math.Log2(hz/440)))
}

// splitFreq picks the smallest block whose rounded F-number fits in 9 bits.
func splitFreq(freq int) (block, fnum int) {
	if freq <= 0 {
		return 0, 0
	}
	for block = 0; block <= maxBlock; block++ {
		fnum = freq
		if block > 0 {
			fnum = (freq + 1<<(block-1)) >> block
		}
		if fnum <= maxFnum {
			return block, fnum
		}
	}
	return maxBlock, maxFnum
}

// ToFreq converts a linear frequency to the chip's block<<9 | fnum form.
func ToFreq(freq int) int {
	block, fnum := splitFreq(freq)
	return block<<9 | fnum
}

// FromFreq converts block<<9 | fnum back to a linear frequency.
func FromFreq(raw int) int {
	return (raw & maxFnum) << ((raw >> 9) & maxBlock)
}

// Octave returns the size of one F-number step at freq, in linear units.
// Pitch offsets are scaled by it so they sound the same in every octave.
func Octave(freq int) int {
	block, _ := splitFreq(freq)
	return 1 << block
}
