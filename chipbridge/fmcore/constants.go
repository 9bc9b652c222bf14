package fmcore

// Register map of the OPLL family.
// Reference: YM2413 application manual, section "Register map"
const (
	regCustomPatch = 0x00 // 0x00-0x07 user patch
	regRhythm      = 0x0E
	regFnumLow     = 0x10 // + channel
	regKeyBlock    = 0x20 // + channel
	regInstVol     = 0x30 // + channel

	registerCount = 0x40
)

// Rhythm register bits.
const (
	rhythmEnable = 5
	rhythmBD     = 4
	rhythmSD     = 3
	rhythmTOM    = 2
	rhythmTOP    = 1
	rhythmHH     = 0
)

// Voice output slots of Render. 0-8 are the melodic channels; with rhythm
// mode on, slots 6-10 carry BD, SD, TOM, TOP and HH.
const (
	Voices = 11

	SlotBD  = 6
	SlotSD  = 7
	SlotTOM = 8
	SlotTOP = 9
	SlotHH  = 10

	melodicChannels = 9
)

// Envelope constants, in dB of attenuation.
const (
	maxAttenuation = 96.0
	sustainStep    = 3.0  // SL step
	volumeStep     = 3.0  // channel volume step
	tlStep         = 0.75 // modulator total level step

	// full scale of one voice output
	voiceScale = 2048.0

	// rate used for a released note with the sustain bit set
	sustainReleaseRate = 5
)

// LFO constants.
const (
	amFrequency  = 3.7   // Hz
	amDepth      = 4.8   // dB
	vibFrequency = 6.4   // Hz
	vibDepth     = 0.004 // relative pitch deviation (about 7 cents)
)

const lfsrInitialValue = 1
