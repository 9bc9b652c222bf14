// Package monitor is a terminal view of a running engine: systems and the
// chips they run on, per-channel state with level meters, and recent logs.
package monitor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/opll"
)

const (
	minTermWidth  = 60
	minTermHeight = 16
	meterWidth    = 16
	meterSamples  = 256
	logPanelLines = 6
)

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

var (
	titleStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	dimStyle    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	hwStyle     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	selStyle    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	meterStyle  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	mutedStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	errorStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	warnStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	debugStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle   = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	headerStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// Monitor draws engine state on a tcell screen and turns key presses into
// engine actions.
type Monitor struct {
	screen   tcell.Screen
	e        *engine.Engine
	logs     *LogBuffer
	logLevel slog.Level
	selected int
	running  bool

	scratch []int16
}

// New creates a monitor. logs may be nil, in which case no log panel is
// drawn.
func New(screen tcell.Screen, e *engine.Engine, logs *LogBuffer) *Monitor {
	return &Monitor{
		screen:   screen,
		e:        e,
		logs:     logs,
		logLevel: slog.LevelInfo,
		scratch:  make([]int16, meterSamples),
	}
}

// Init initializes the screen.
func (m *Monitor) Init() error {
	if err := m.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	m.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	m.screen.Clear()
	m.running = true
	return nil
}

// Running reports whether the user has not asked to quit.
func (m *Monitor) Running() bool { return m.running }

// Selected returns the flat index of the highlighted channel.
func (m *Monitor) Selected() int { return m.selected }

func (m *Monitor) Close() {
	m.screen.Fini()
}

// Update handles pending input and redraws. It returns false once the user
// quits.
func (m *Monitor) Update() bool {
	for m.screen.HasPendingEvent() {
		switch ev := m.screen.PollEvent().(type) {
		case *tcell.EventKey:
			m.HandleKey(ev)
		case *tcell.EventResize:
			m.screen.Sync()
		}
	}

	m.draw()
	m.screen.Show()
	return m.running
}

// HandleKey applies one key press.
func (m *Monitor) HandleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		m.running = false
		return
	case tcell.KeyUp:
		m.moveSelection(-1)
		return
	case tcell.KeyDown:
		m.moveSelection(1)
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ev.Rune() {
	case 'q':
		m.running = false
	case 'm':
		m.e.ToggleChannel(m.selected)
	case 's':
		m.e.SoloChannel(m.selected)
	case 'u':
		m.e.UnmuteAll()
	case 'a':
		if sys, ok := m.selectedSystem(); ok && !m.e.AttachHardware(sys) {
			slog.Warn("No chip available", "system", sys)
		}
	case 'd':
		if sys, ok := m.selectedSystem(); ok {
			m.e.DetachHardware(sys)
		}
	case '+', '=':
		m.changeLogLevel(1)
	case '-':
		m.changeLogLevel(-1)
	}
}

func (m *Monitor) moveSelection(delta int) {
	total := len(m.e.ChannelStatus())
	if total == 0 {
		m.selected = 0
		return
	}
	m.selected = (m.selected + delta + total) % total
}

func (m *Monitor) selectedSystem() (int, bool) {
	flat := m.selected
	for _, s := range m.e.Systems() {
		if flat < s.Channels {
			return s.Index, true
		}
		flat -= s.Channels
	}
	return 0, false
}

// changeLogLevel moves the log panel filter. Positive shows more.
func (m *Monitor) changeLogLevel(direction int) {
	old := m.logLevel
	switch {
	case direction > 0 && m.logLevel > slog.LevelDebug:
		m.logLevel -= 4
	case direction < 0 && m.logLevel < slog.LevelError:
		m.logLevel += 4
	}
	if old != m.logLevel {
		slog.Info("Log filter changed", "from", old, "to", m.logLevel)
	}
}

// LogLevel returns the log panel filter.
func (m *Monitor) LogLevel() slog.Level { return m.logLevel }

func (m *Monitor) draw() {
	w, h := m.screen.Size()
	m.screen.Clear()
	if w < minTermWidth || h < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		m.text(0, h/2, w, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	m.text(0, 0, w, fmt.Sprintf(" chipbridge  %d Hz  tick %d @ %d Hz", m.e.SampleRate(), m.e.Ticks(), m.e.TickRate()), titleStyle)
	y := 2

	logsY := h
	if m.logs != nil {
		logsY = h - logPanelLines - 1
	}

	y = m.drawSystems(y, w, logsY)
	y = m.drawChannels(y+1, w, logsY)
	m.drawChips(y+1, w, logsY)

	if m.logs != nil {
		m.text(0, logsY, w, strings.Repeat("─", w), dimStyle)
		m.drawLogs(logsY+1, w, h)
	}
}

func (m *Monitor) drawSystems(y, w, limit int) int {
	m.text(0, y, w, "Systems", headerStyle)
	y++
	for _, s := range m.e.Systems() {
		if y >= limit {
			break
		}
		where, style := "emulated", textStyle
		if s.Attached {
			where, style = "hardware", hwStyle
		}
		m.text(1, y, w-1, fmt.Sprintf("[%d] %-12s %-8s %2d ch  %s", s.Index, s.Name, s.Type, s.Channels, where), style)
		y++
	}
	return y
}

func (m *Monitor) drawChannels(y, w, limit int) int {
	if y >= limit {
		return y
	}
	m.text(0, y, w, "Ch  System       Note Ins Vol Key", headerStyle)
	y++

	status := m.e.ChannelStatus()
	flat := 0
	for _, s := range m.e.Systems() {
		d := m.e.System(s.Index)
		for ch := 0; ch < s.Channels; ch, flat = ch+1, flat+1 {
			if y >= limit {
				return y
			}
			audible := flat < len(status) && status[flat]
			m.drawChannel(y, w, flat, s.Name, d, ch, audible)
			y++
		}
	}
	return y
}

func (m *Monitor) drawChannel(y, w, flat int, name string, d dispatch.Dispatch, ch int, audible bool) {
	style := textStyle
	if !audible {
		style = mutedStyle
	}
	if flat == m.selected {
		style = selStyle
	}

	note, ins, vol, key := "...", "..", "..", " "
	if st, ok := d.ChanState(ch).(*opll.Channel); ok && st != nil {
		if st.Active {
			note = NoteName(st.Note)
		}
		if st.Ins >= 0 {
			ins = fmt.Sprintf("%02X", st.Ins)
		}
		vol = fmt.Sprintf("%02d", st.OutVol)
		if st.KeyOn || st.Active {
			key = "*"
		}
	}

	mute := " "
	if !audible {
		mute = "M"
	}
	line := fmt.Sprintf("%2d%s %-12s %-4s %-3s %-3s  %s ", flat, mute, name+":"+fmt.Sprint(ch), note, ins, vol, key)
	m.text(0, y, w, line, style)

	x := len(line)
	if x+meterWidth+2 > w {
		return
	}
	m.screen.SetContent(x, y, '[', nil, dimStyle)
	bars := m.meter(d.OscBuffer(ch))
	for i := 0; i < meterWidth; i++ {
		r := ' '
		if i < bars {
			r = '|'
		}
		m.screen.SetContent(x+1+i, y, r, nil, meterStyle)
	}
	m.screen.SetContent(x+1+meterWidth, y, ']', nil, dimStyle)
}

// meter returns how many cells of the level meter the recent peak fills.
func (m *Monitor) meter(osc *dispatch.OscBuffer) int {
	if osc == nil {
		return 0
	}
	samples := osc.Last(m.scratch[:0], meterSamples)
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	return min(meterWidth, peak*meterWidth/32768)
}

func (m *Monitor) drawChips(y, w, limit int) {
	if y >= limit {
		return
	}
	chips := m.e.Manager().Chips()
	m.text(0, y, w, fmt.Sprintf("Chips (%d free)", m.e.Manager().UnusedCount()), headerStyle)
	y++
	if len(chips) == 0 && y < limit {
		m.text(1, y, w-1, "no hardware", dimStyle)
		return
	}
	for _, c := range chips {
		if y >= limit {
			return
		}
		state, style := "free", textStyle
		if c.Attached {
			state, style = "serving "+c.Serving.String(), hwStyle
		}
		m.text(1, y, w-1, fmt.Sprintf("%d:%d %-16s %-8s %8d Hz  %s", c.Interface, c.Slot, c.Name, c.Type, c.Clock, state), style)
		y++
	}
}

func (m *Monitor) drawLogs(startY, w, h int) {
	avail := h - startY
	if avail <= 0 {
		return
	}

	y := startY
	for _, entry := range m.logs.GetRecent(avail * 4) {
		if entry.Level < m.logLevel {
			continue
		}
		if y >= h {
			break
		}

		style := infoStyle
		switch {
		case entry.Level >= slog.LevelError:
			style = errorStyle
		case entry.Level >= slog.LevelWarn:
			style = warnStyle
		case entry.Level < slog.LevelInfo:
			style = debugStyle
		}

		line := FormatLogEntry(entry)
		if len(line) > w && w > 3 {
			line = line[:w-3] + "..."
		}
		m.text(0, y, w, line, style)
		y++
	}
}

func (m *Monitor) text(x, y, width int, s string, style tcell.Style) {
	i := 0
	for _, r := range s {
		if i >= width {
			return
		}
		m.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

// NoteName formats a MIDI note number as C-4 style text.
func NoteName(note int) string {
	if note < 0 {
		return "..."
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}
