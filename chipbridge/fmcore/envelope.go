package fmcore

import "math"

type envPhase int

const (
	envOff envPhase = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// operator is one FM slot: a phase accumulator and an envelope.
type operator struct {
	phase float64 // in cycles, [0, 1)
	env   envPhase
	att   float64 // envelope attenuation in dB

	// last two outputs, for modulator feedback
	out  float64
	prev float64
}

func (op *operator) keyOn() {
	op.phase = 0
	op.env = envAttack
	if op.att > maxAttenuation {
		op.att = maxAttenuation
	}
}

func (op *operator) keyOff() {
	if op.env != envOff {
		op.env = envRelease
	}
}

func (op *operator) silence() {
	*op = operator{env: envOff, att: maxAttenuation}
}

// attackSeconds is the 0 to full scale time of attack rate r.
func attackSeconds(r uint8) float64 {
	return 2.8 / float64(uint32(1)<<(r-1))
}

// decaySeconds is the time to fall by maxAttenuation at rate r.
func decaySeconds(r uint8) float64 {
	return 39.3 / float64(uint32(1)<<(r-1))
}

// step advances the envelope by one output frame. egt selects sustained
// envelopes; releaseRate is the rate used once the key is released.
func (op *operator) step(ar, dr, sl, rr uint8, egt bool, releaseRate uint8, rate float64) {
	switch op.env {
	case envOff:
		op.att = maxAttenuation
	case envAttack:
		switch {
		case ar == 15:
			op.att = 0
		case ar == 0:
			return
		default:
			op.att -= maxAttenuation / (attackSeconds(ar) * rate)
		}
		if op.att <= 0 {
			op.att = 0
			op.env = envDecay
		}
	case envDecay:
		target := float64(sl) * sustainStep
		if dr > 0 {
			op.att += maxAttenuation / (decaySeconds(dr) * rate)
		}
		if op.att >= target {
			op.att = target
			op.env = envSustain
		}
	case envSustain:
		// percussive envelopes keep falling at the release rate
		if !egt && rr > 0 {
			op.att += maxAttenuation / (decaySeconds(rr) * rate)
		}
	case envRelease:
		if releaseRate > 0 {
			op.att += maxAttenuation / (decaySeconds(releaseRate) * rate)
		}
	}

	if op.att >= maxAttenuation {
		op.att = maxAttenuation
		if op.env == envRelease || op.env == envSustain {
			op.env = envOff
		}
	}
}

// gain converts an attenuation in dB to a linear factor.
func gain(db float64) float64 {
	if db >= maxAttenuation {
		return 0
	}
	return math.Pow(10, -db/20)
}
