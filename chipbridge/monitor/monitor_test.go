package monitor

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-chipbridge/chipbridge/chip"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/hw/hwtest"
	"github.com/valerio/go-chipbridge/chipbridge/instrument"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
)

func startMonitor(t *testing.T, e *engine.Engine, logs *LogBuffer, w, h int) (*Monitor, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	m := New(s, e, logs)
	require.NoError(t, m.Init())
	s.SetSize(w, h)
	t.Cleanup(m.Close)
	return m, s
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, h := s.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(c.Runes[0])
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func opllEngine(t *testing.T, loader *hwtest.Driver) *engine.Engine {
	t.Helper()
	var e *engine.Engine
	if loader != nil {
		e = engine.New(loader, engine.WithSampleRate(6000))
	} else {
		e = engine.New(nil, engine.WithSampleRate(6000))
	}
	e.AddInstrument(instrument.New("piano"))
	e.AddSystem("lead", opll.New(), 0, false)
	t.Cleanup(e.Close)
	return e
}

func TestDrawSystemsAndChannels(t *testing.T) {
	e := opllEngine(t, nil)
	e.Command(0, dispatch.NewCommand(dispatch.CmdInstrument, 0, 0))
	e.Command(0, dispatch.NewCommand(dispatch.CmdNoteOn, 0, 60))
	e.Render(make([]int16, 200), make([]int16, 200))

	m, s := startMonitor(t, e, nil, 100, 40)
	assert.True(t, m.Update())

	text := screenText(s)
	assert.Contains(t, text, "chipbridge")
	assert.Contains(t, text, "lead")
	assert.Contains(t, text, "emulated")
	assert.Contains(t, text, "C-4")
	assert.Contains(t, text, "lead:8", "every channel gets a row")
	assert.Contains(t, text, "no hardware")
}

func TestTooSmall(t *testing.T) {
	e := opllEngine(t, nil)
	m, s := startMonitor(t, e, nil, 30, 8)
	m.Update()
	assert.Contains(t, screenText(s), "Terminal too small")
}

func TestKeys(t *testing.T) {
	e := opllEngine(t, nil)
	m, _ := startMonitor(t, e, nil, 100, 40)

	m.HandleKey(key('m'))
	assert.False(t, e.ChannelStatus()[0])

	m.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	assert.Equal(t, 1, m.Selected())
	m.HandleKey(key('s'))
	status := e.ChannelStatus()
	assert.True(t, status[1])
	assert.False(t, status[0])
	assert.False(t, status[2])

	m.HandleKey(key('u'))
	for _, on := range e.ChannelStatus() {
		assert.True(t, on)
	}

	m.HandleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	m.HandleKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	assert.Equal(t, 8, m.Selected(), "selection wraps")

	m.HandleKey(key('q'))
	assert.False(t, m.Running())
	assert.False(t, m.Update())
}

func TestUpdateDrainsEvents(t *testing.T) {
	e := opllEngine(t, nil)
	m, s := startMonitor(t, e, nil, 100, 40)

	s.InjectKey(tcell.KeyRune, 'm', tcell.ModNone)
	assert.Eventually(t, func() bool {
		m.Update()
		return !e.ChannelStatus()[0]
	}, time.Second, 10*time.Millisecond)
}

func TestAttachDetach(t *testing.T) {
	drv := hwtest.NewDriver([]*hwtest.Chip{hwtest.NewChip(chip.YM2413)})
	e := opllEngine(t, drv)
	e.Start()

	m, s := startMonitor(t, e, nil, 100, 40)
	m.HandleKey(key('a'))
	require.True(t, e.Systems()[0].Attached)

	m.Update()
	text := screenText(s)
	assert.Contains(t, text, "hardware")
	assert.Contains(t, text, "serving YM2413")

	m.HandleKey(key('d'))
	assert.False(t, e.Systems()[0].Attached)
}

func TestLogPanel(t *testing.T) {
	logs := NewLogBuffer(16)
	logger := slog.New(NewLogBufferHandler(logs, slog.LevelDebug))
	logger.Info("chip attached", "slot", 2)

	e := opllEngine(t, nil)
	m, s := startMonitor(t, e, logs, 100, 40)
	m.Update()
	assert.Contains(t, screenText(s), "chip attached slot=2")

	m.HandleKey(key('-'))
	assert.Equal(t, slog.LevelWarn, m.LogLevel())
	m.Update()
	assert.NotContains(t, screenText(s), "chip attached")

	m.HandleKey(key('+'))
	m.HandleKey(key('+'))
	m.HandleKey(key('+'))
	assert.Equal(t, slog.LevelDebug, m.LogLevel(), "stops at debug")
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note int
		want string
	}{
		{60, "C-4"},
		{69, "A-4"},
		{61, "C#4"},
		{12, "C-0"},
		{-1, "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NoteName(tt.note))
	}
}
