package fmcore

import (
	"fmt"
	"strings"
)

// PatchSet selects the built-in instrument ROM.
type PatchSet int

const (
	PatchYM2413 PatchSet = iota
	PatchYMF281
	PatchYM2423
	PatchVRC7
)

func (p PatchSet) String() string {
	switch p {
	case PatchYM2413:
		return "ym2413"
	case PatchYMF281:
		return "ymf281"
	case PatchYM2423:
		return "ym2423"
	case PatchVRC7:
		return "vrc7"
	}
	return fmt.Sprintf("patchset(%d)", int(p))
}

// ParsePatchSet accepts the names returned by String.
func ParsePatchSet(s string) (PatchSet, error) {
	for p := PatchYM2413; p <= PatchVRC7; p++ {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown patch set %q", s)
}

// ROM patches 1-15, eight registers each in user patch layout. The values
// are approximate dumps, good enough for the non bit-exact core.
var romPatches = [4][15][8]uint8{
	PatchYM2413: {
		{0x71, 0x61, 0x1E, 0x17, 0xD0, 0x78, 0x00, 0x17}, // violin
		{0x13, 0x41, 0x1A, 0x0D, 0xD8, 0xF7, 0x23, 0x13}, // guitar
		{0x13, 0x01, 0x99, 0x00, 0xF2, 0xC4, 0x21, 0x23}, // piano
		{0x11, 0x61, 0x0E, 0x07, 0x8D, 0x64, 0x70, 0x27}, // flute
		{0x32, 0x21, 0x1E, 0x06, 0xE1, 0x76, 0x01, 0x28}, // clarinet
		{0x31, 0x22, 0x16, 0x05, 0xE0, 0x71, 0x00, 0x18}, // oboe
		{0x21, 0x61, 0x1D, 0x07, 0x82, 0x81, 0x11, 0x07}, // trumpet
		{0x33, 0x21, 0x2D, 0x13, 0xB0, 0x70, 0x00, 0x07}, // organ
		{0x61, 0x61, 0x1B, 0x06, 0x64, 0x65, 0x10, 0x17}, // horn
		{0x41, 0x61, 0x0B, 0x18, 0x85, 0xF0, 0x81, 0x07}, // synthesizer
		{0x33, 0x01, 0x83, 0x11, 0xEA, 0xEF, 0x10, 0x04}, // harpsichord
		{0x17, 0xC1, 0x24, 0x07, 0xF8, 0xF8, 0x22, 0x12}, // vibraphone
		{0x61, 0x50, 0x0C, 0x05, 0xD2, 0xF5, 0x40, 0x42}, // synth bass
		{0x01, 0x01, 0x55, 0x03, 0xE9, 0x90, 0x03, 0x02}, // wood bass
		{0x41, 0x41, 0x89, 0x03, 0xF1, 0xE4, 0xC0, 0x13}, // electric guitar
	},
	PatchYMF281: {
		{0x62, 0x21, 0x1A, 0x07, 0xF0, 0x6F, 0x00, 0x16}, // electric strings
		{0x40, 0x10, 0x45, 0x00, 0xF6, 0x83, 0x73, 0x63}, // bow wow
		{0x13, 0x01, 0x99, 0x00, 0xF2, 0xC3, 0x21, 0x23}, // electric guitar
		{0x01, 0x61, 0x0B, 0x0F, 0xF9, 0x64, 0x70, 0x17}, // organ
		{0x32, 0x21, 0x1E, 0x06, 0xE1, 0x76, 0x01, 0x28}, // clarinet
		{0x60, 0x01, 0x82, 0x0E, 0xF9, 0x61, 0x20, 0x27}, // saxophone
		{0x21, 0x61, 0x1C, 0x07, 0x84, 0x81, 0x11, 0x07}, // trumpet
		{0x37, 0x32, 0xC9, 0x01, 0x66, 0x64, 0x40, 0x28}, // street organ
		{0x01, 0x21, 0x07, 0x03, 0xA5, 0x71, 0x51, 0x07}, // synth brass
		{0x06, 0x01, 0x5E, 0x07, 0xF3, 0xF3, 0xF6, 0x13}, // electric piano
		{0x00, 0x00, 0x18, 0x06, 0xF5, 0xF3, 0x20, 0x23}, // bass
		{0x17, 0xC1, 0x24, 0x07, 0xF8, 0xF8, 0x22, 0x12}, // vibraphone
		{0x35, 0x64, 0x00, 0x00, 0xFF, 0xF3, 0x77, 0xF5}, // chimes
		{0x11, 0x31, 0x00, 0x07, 0xDD, 0xF3, 0xFF, 0xFB}, // tom tom
		{0x3A, 0x21, 0x00, 0x07, 0x80, 0x84, 0x0F, 0xF5}, // noise
	},
	PatchYM2423: {
		{0x61, 0x61, 0x1B, 0x07, 0x84, 0x80, 0x17, 0x17}, // strings
		{0x00, 0x31, 0x13, 0x07, 0xF4, 0xF3, 0x28, 0x13}, // guitar
		{0x23, 0x01, 0x2B, 0x05, 0xF3, 0xF3, 0xF0, 0x2F}, // electric guitar
		{0x21, 0x61, 0x14, 0x05, 0x96, 0x64, 0x15, 0x17}, // electric piano
		{0x31, 0x22, 0x16, 0x05, 0xE0, 0x71, 0x00, 0x18}, // flute
		{0x60, 0x01, 0x82, 0x0E, 0xF9, 0x61, 0x20, 0x27}, // marimba
		{0x21, 0x21, 0x1E, 0x07, 0xF0, 0xC2, 0x03, 0x07}, // trumpet
		{0x33, 0x21, 0x2D, 0x13, 0xB0, 0x70, 0x00, 0x07}, // harmonica
		{0x31, 0x21, 0x1E, 0x04, 0x94, 0x92, 0x33, 0x05}, // tuba
		{0x13, 0x01, 0x0A, 0x05, 0xD9, 0x64, 0x75, 0x35}, // synth brass
		{0x03, 0x01, 0x86, 0x06, 0xFB, 0xF3, 0xC0, 0x74}, // short saw
		{0x17, 0xC1, 0x24, 0x07, 0xF8, 0xF8, 0x22, 0x12}, // vibraphone
		{0x61, 0x50, 0x0C, 0x05, 0xD2, 0xF5, 0x40, 0x42}, // electric guitar 2
		{0x01, 0x01, 0x55, 0x03, 0xE9, 0x90, 0x03, 0x02}, // synth bass
		{0x41, 0x41, 0x89, 0x03, 0xF1, 0xE4, 0xC0, 0x13}, // sitar
	},
	PatchVRC7: {
		{0x03, 0x21, 0x05, 0x06, 0xE8, 0x81, 0x42, 0x27}, // bell
		{0x13, 0x41, 0x14, 0x0D, 0xD8, 0xF6, 0x23, 0x12}, // guitar
		{0x11, 0x11, 0x08, 0x08, 0xFA, 0xB2, 0x20, 0x12}, // piano
		{0x31, 0x61, 0x0C, 0x07, 0xA8, 0x64, 0x61, 0x27}, // flute
		{0x32, 0x21, 0x1E, 0x06, 0xE1, 0x76, 0x01, 0x28}, // clarinet
		{0x02, 0x01, 0x06, 0x00, 0xA3, 0xE2, 0xF4, 0xF4}, // rattling bell
		{0x21, 0x61, 0x1D, 0x07, 0x82, 0x81, 0x11, 0x07}, // trumpet
		{0x23, 0x21, 0x22, 0x17, 0xA2, 0x72, 0x01, 0x17}, // reed organ
		{0x35, 0x11, 0x25, 0x00, 0x40, 0x73, 0x72, 0x01}, // soft bell
		{0xB5, 0x01, 0x0F, 0x0F, 0xA8, 0xA5, 0x51, 0x02}, // xylophone
		{0x17, 0xC1, 0x24, 0x07, 0xF8, 0xF8, 0x22, 0x12}, // vibraphone
		{0x71, 0x23, 0x11, 0x06, 0x65, 0x74, 0x18, 0x16}, // brass
		{0x01, 0x02, 0xD3, 0x05, 0xC9, 0x95, 0x03, 0x02}, // bass guitar
		{0x61, 0x63, 0x0C, 0x00, 0x94, 0xC0, 0x33, 0xF6}, // synthesizer
		{0x21, 0x72, 0x0D, 0x00, 0xC1, 0xD5, 0x56, 0x06}, // chorus
	},
}

// Rhythm patches for channels 6, 7 and 8, shared by every set with rhythm.
var rhythmPatches = [3][8]uint8{
	{0x01, 0x01, 0x18, 0x0F, 0xDF, 0xF8, 0x6A, 0x6D}, // BD
	{0x01, 0x01, 0x00, 0x00, 0xC8, 0xD8, 0xA7, 0x68}, // HH / SD
	{0x05, 0x01, 0x00, 0x00, 0xF8, 0xAA, 0x59, 0x55}, // TOM / TOP
}

// ROMPatch returns the registers of ROM patch n (1-15) of the set.
func ROMPatch(set PatchSet, n int) ([8]uint8, bool) {
	if set < PatchYM2413 || set > PatchVRC7 || n < 1 || n > 15 {
		return [8]uint8{}, false
	}
	return romPatches[set][n-1], true
}
