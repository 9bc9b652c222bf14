package script

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/hw/hwtest"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
	lua "github.com/yuin/gopher-lua"
)

func newEngine(t *testing.T, chips ...*hwtest.Chip) *engine.Engine {
	t.Helper()
	e := engine.New(hwtest.NewDriver(chips), engine.WithSampleRate(6000), engine.WithTickRate(60))
	e.AddInstrument(instrument.New("piano"))
	e.AddSystem("opll", opll.New(), 0, false)
	e.Start()
	t.Cleanup(e.Close)
	return e
}

func TestNoteReachesRegisters(t *testing.T) {
	e := newEngine(t)
	r := New(e)
	defer r.Close()

	require.NoError(t, r.DoString(`
		ins(0, 0, 0)
		vol(0, 0, 15)
		note_on(0, 0, 69)
		tick(2)
		key = reg(0, 0x20)
		fnum = reg(0, 0x10)
	`))

	assert.Equal(t, lua.LNumber(0x10|4<<1|290>>8), r.L.GetGlobal("key"))
	assert.Equal(t, lua.LNumber(290&0xFF), r.L.GetGlobal("fnum"))
	assert.Equal(t, 2, r.Ticks())
}

func TestPokeAndGenericCommand(t *testing.T) {
	e := newEngine(t)
	r := New(e)
	defer r.Close()

	require.NoError(t, r.DoString(`
		poke(0, 0x0E, 0x20)
		max = cmd(0, "get_volmax", 0)
		tick(1)
		rhythm = reg(0, 0x0E)
	`))
	assert.Equal(t, lua.LNumber(15), r.L.GetGlobal("max"))
	assert.Equal(t, lua.LNumber(0x20), r.L.GetGlobal("rhythm"))
}

func TestHardwareFunctions(t *testing.T) {
	fake := hwtest.NewChip(chip.YM2413)
	e := newEngine(t, fake)
	r := New(e)
	defer r.Close()

	require.NoError(t, r.DoString(`
		before = attached(0)
		ok = attach(0)
		after = attached(0)
		list = chips()
		n = #list
		name = list[1].name
		serving = list[1].serving
		sys = systems()[1]
		released = detach(0)
	`))

	assert.Equal(t, lua.LFalse, r.L.GetGlobal("before"))
	assert.Equal(t, lua.LTrue, r.L.GetGlobal("ok"))
	assert.Equal(t, lua.LTrue, r.L.GetGlobal("after"))
	assert.Equal(t, lua.LNumber(1), r.L.GetGlobal("n"))
	assert.Equal(t, lua.LString("YM2413"), r.L.GetGlobal("name"))
	assert.Equal(t, lua.LString("YM2413"), r.L.GetGlobal("serving"))
	assert.Equal(t, lua.LTrue, r.L.GetGlobal("released"))

	sys, ok := r.L.GetGlobal("sys").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LString("opll"), sys.RawGetString("name"))
	assert.Equal(t, lua.LNumber(9), sys.RawGetString("channels"))
	assert.Equal(t, lua.LTrue, sys.RawGetString("attached"), "captured while attached")
}

func TestSinkReceivesBlocks(t *testing.T) {
	e := newEngine(t)

	var frames, calls int
	r := New(e, WithSink(func(l, rr []int16) error {
		calls++
		frames += len(l)
		return nil
	}))
	defer r.Close()

	require.NoError(t, r.DoString(`tick(3)`))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 300, frames, "one tick is sample rate / tick rate frames")
	assert.Equal(t, uint64(3), e.Ticks())
}

func TestScriptErrors(t *testing.T) {
	e := newEngine(t)
	failing := New(e, WithSink(func(l, r []int16) error { return errors.New("disk full") }))
	defer failing.Close()

	tests := []struct {
		name    string
		r       *Runner
		src     string
		wantErr string
	}{
		{"missing system", nil, `note_on(5, 0, 60)`, "no system 5"},
		{"bad command", nil, `cmd(0, "sing", 0)`, "unknown command"},
		{"register range", nil, `reg(0, 4096)`, "outside the pool"},
		{"argument type", nil, `note_on(0, 0, "high")`, "number expected"},
		{"syntax", nil, `note_on(`, "script failed"},
		{"sink", failing, `tick(1)`, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.r
			if r == nil {
				r = New(e)
				defer r.Close()
			}
			err := r.DoString(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New(newEngine(t), WithLogger(logger))
	defer r.Close()

	require.NoError(t, r.DoString(`log("tick", 3, true)`))
	assert.Contains(t, buf.String(), `msg="tick 3 true"`)
}

func TestDoFileMissing(t *testing.T) {
	r := New(newEngine(t))
	defer r.Close()

	assert.Error(t, r.DoFile("/nonexistent/song.lua"))
}
