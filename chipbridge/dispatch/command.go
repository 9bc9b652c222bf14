package dispatch

import (
	"fmt"
	"math"
	"strings"
)

// CmdType is the tag of a sequencer command.
type CmdType int

const (
	CmdNoteOn     CmdType = iota // Value: note (NoteNull keeps the current one)
	CmdNoteOff                   // hard key-off
	CmdNoteOffEnv                // key-off letting the envelope release
	CmdEnvRelease                // release macros only
	CmdInstrument                // Value: instrument index, Value2: non-zero forces reapply
	CmdVolume                    // Value: volume
	CmdGetVolume
	CmdGetVolMax
	CmdPitch     // Value: pitch offset
	CmdNotePorta // Value: speed, Value2: target note; returns 2 when the target is reached
	CmdLegato    // Value: note, changes pitch without retriggering
	CmdPrePorta  // Value: non-zero when a portamento is about to start
	CmdPanning   // Value: pan bits
	CmdFixedFreq // Value: raw block<<9|fnum, 0 clears the override
	CmdRegWrite  // Value: address, Value2: data

	CmdFMFeedback // Value: feedback
	CmdFMMult     // Value: operator, Value2: multiplier
	CmdFMTL       // Value: operator, Value2: total level
	CmdFMAR       // Value: operator (-1 = both), Value2: attack rate
	CmdFMDR
	CmdFMSL
	CmdFMRR
	CmdFMAM
	CmdFMVib
	CmdFMKSR
	CmdFMEGT
	CmdFMWave

	CmdDrumMode // Value: non-zero enables legacy rhythm mode

	cmdMax
)

// NoteNull marks a note-on that retriggers without changing the note.
const NoteNull = math.MinInt32

var cmdNames = [...]string{
	CmdNoteOn:     "NOTE_ON",
	CmdNoteOff:    "NOTE_OFF",
	CmdNoteOffEnv: "NOTE_OFF_ENV",
	CmdEnvRelease: "ENV_RELEASE",
	CmdInstrument: "INSTRUMENT",
	CmdVolume:     "VOLUME",
	CmdGetVolume:  "GET_VOLUME",
	CmdGetVolMax:  "GET_VOLMAX",
	CmdPitch:      "PITCH",
	CmdNotePorta:  "NOTE_PORTA",
	CmdLegato:     "LEGATO",
	CmdPrePorta:   "PRE_PORTA",
	CmdPanning:    "PANNING",
	CmdFixedFreq:  "FIXED_FREQ",
	CmdRegWrite:   "REG_WRITE",
	CmdFMFeedback: "FM_FB",
	CmdFMMult:     "FM_MULT",
	CmdFMTL:       "FM_TL",
	CmdFMAR:       "FM_AR",
	CmdFMDR:       "FM_DR",
	CmdFMSL:       "FM_SL",
	CmdFMRR:       "FM_RR",
	CmdFMAM:       "FM_AM",
	CmdFMVib:      "FM_VIB",
	CmdFMKSR:      "FM_KSR",
	CmdFMEGT:      "FM_EGT",
	CmdFMWave:     "FM_WS",
	CmdDrumMode:   "DRUM_MODE",
}

func (c CmdType) String() string {
	if c >= 0 && c < cmdMax {
		return cmdNames[c]
	}
	return fmt.Sprintf("CMD(%d)", int(c))
}

// ParseCmdType looks a command up by the name String returns, ignoring
// case.
func ParseCmdType(name string) (CmdType, bool) {
	for c := CmdType(0); c < cmdMax; c++ {
		if strings.EqualFold(cmdNames[c], name) {
			return c, true
		}
	}
	return 0, false
}

// Valid reports whether c is a known command tag.
func (c CmdType) Valid() bool {
	return c >= 0 && c < cmdMax
}

// Command is one sequencer command addressed to a channel.
type Command struct {
	Cmd    CmdType
	Chan   int
	Value  int
	Value2 int
}

// NewCommand builds a command; missing values default to 0.
func NewCommand(cmd CmdType, ch int, values ...int) Command {
	c := Command{Cmd: cmd, Chan: ch}
	if len(values) > 0 {
		c.Value = values[0]
	}
	if len(values) > 1 {
		c.Value2 = values[1]
	}
	return c
}

func (c Command) String() string {
	return fmt.Sprintf("%s ch=%d v=%d v2=%d", c.Cmd, c.Chan, c.Value, c.Value2)
}
