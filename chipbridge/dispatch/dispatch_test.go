package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteQueueFIFO(t *testing.T) {
	q := NewWriteQueue(2)

	for i := 0; i < 5; i++ {
		q.Push(uint16(0x10+i), uint8(i))
	}
	assert.Equal(t, 5, q.Len())

	// wrap around after a partial drain
	q.Pop()
	q.Push(0x20, 0xAA)

	var got []uint16
	for !q.Empty() {
		w := q.Front()
		require.NotNil(t, w)
		assert.False(t, w.AddrOrVal, "pushed writes start in address phase")
		got = append(got, w.Addr)
		q.Pop()
	}
	assert.Equal(t, []uint16{0x11, 0x12, 0x13, 0x14, 0x20}, got)
	assert.Nil(t, q.Front())
}

func TestWriteQueueFrontInPlace(t *testing.T) {
	q := NewWriteQueue(4)
	q.Push(0x30, 0x0F)

	q.Front().AddrOrVal = true
	assert.True(t, q.Front().AddrOrVal)

	q.Clear()
	assert.True(t, q.Empty())
	q.Pop() // no-op on empty
	assert.Equal(t, 0, q.Len())
}

func TestZeroValueQueue(t *testing.T) {
	var q WriteQueue
	q.Push(1, 2)
	assert.Equal(t, 1, q.Len())
}

func TestOscBufferLast(t *testing.T) {
	o := NewOscBuffer(44100)
	for i := 0; i < 10; i++ {
		o.Push(int16(i))
	}

	got := o.Last(nil, 3)
	assert.Equal(t, []int16{7, 8, 9}, got)

	o.Clear()
	assert.Equal(t, uint32(0), o.Needle)
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, "NOTE_ON", CmdNoteOn.String())
	assert.Equal(t, "DRUM_MODE", CmdDrumMode.String())
	assert.False(t, CmdType(-1).Valid())
	assert.False(t, cmdMax.Valid())

	for c := CmdType(0); c < cmdMax; c++ {
		assert.NotEmpty(t, cmdNames[c], "command %d has no name", c)
	}

	c := NewCommand(CmdNotePorta, 2, 4, 60)
	assert.Equal(t, Command{Cmd: CmdNotePorta, Chan: 2, Value: 4, Value2: 60}, c)
}

func TestParseCmdType(t *testing.T) {
	for c := CmdType(0); c < cmdMax; c++ {
		got, ok := ParseCmdType(c.String())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}

	got, ok := ParseCmdType("note_off_env")
	assert.True(t, ok)
	assert.Equal(t, CmdNoteOffEnv, got)

	_, ok = ParseCmdType("SING")
	assert.False(t, ok)
}
