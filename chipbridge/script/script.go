// Package script drives an engine from Lua. Scripts send commands, poke
// registers, move systems between hardware and emulation and advance time
// tick by tick.
//
//	ins(0, 0, 1)
//	note_on(0, 0, 60)
//	tick(30)
//	note_off(0, 0)
//	if attached(0) then detach(0) end
package script

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/valerio/go-chipbridge/chipbridge/dispatch"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/timing"
	lua "github.com/yuin/gopher-lua"
)

// Sink receives every block rendered by tick.
type Sink func(l, r []int16) error

// Runner is one Lua state bound to an engine.
type Runner struct {
	L *lua.LState
	e *engine.Engine

	sink    Sink
	limiter timing.Limiter
	frames  int
	bufL    []int16
	bufR    []int16
	ticks   int

	logger *slog.Logger
}

type Option func(*Runner)

// WithSink sends rendered audio to s. Without a sink, audio is discarded.
func WithSink(s Sink) Option { return func(r *Runner) { r.sink = s } }

// WithLimiter paces tick in wall-clock time.
func WithLimiter(l timing.Limiter) Option { return func(r *Runner) { r.limiter = l } }

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

func New(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		L:       lua.NewState(),
		e:       e,
		limiter: timing.NewNoOpLimiter(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.frames = max(1, timing.FramesFor(e.SampleRate(), float64(e.TickRate())))
	r.bufL = make([]int16, r.frames)
	r.bufR = make([]int16, r.frames)

	r.register()
	return r
}

func (r *Runner) Close() {
	r.L.Close()
}

// Ticks returns how many ticks scripts have advanced.
func (r *Runner) Ticks() int { return r.ticks }

func (r *Runner) DoString(src string) error {
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

func (r *Runner) DoFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s failed: %w", path, err)
	}
	return nil
}

func (r *Runner) register() {
	funcs := map[string]lua.LGFunction{
		"note_on":  r.noteOn,
		"note_off": r.noteOff,
		"ins":      r.instrument,
		"vol":      r.volume,
		"cmd":      r.command,
		"poke":     r.poke,
		"reg":      r.reg,
		"tick":     r.tick,
		"attach":   r.attach,
		"detach":   r.detach,
		"attached": r.attached,
		"chips":    r.chips,
		"systems":  r.systems,
		"log":      r.log,
	}
	for name, fn := range funcs {
		r.L.SetGlobal(name, r.L.NewFunction(fn))
	}
}

// checkSystem returns the system argument at n, raising a Lua error when
// it does not exist.
func (r *Runner) checkSystem(L *lua.LState, n int) int {
	sys := L.CheckInt(n)
	if r.e.System(sys) == nil {
		L.ArgError(n, fmt.Sprintf("no system %d", sys))
	}
	return sys
}

func (r *Runner) send(L *lua.LState, c dispatch.CmdType, values ...int) int {
	sys := r.checkSystem(L, 1)
	ch := L.CheckInt(2)
	res := r.e.Command(sys, dispatch.NewCommand(c, ch, values...))
	L.Push(lua.LNumber(res))
	return 1
}

// note_on(sys, ch, note)
func (r *Runner) noteOn(L *lua.LState) int {
	return r.send(L, dispatch.CmdNoteOn, L.CheckInt(3))
}

// note_off(sys, ch)
func (r *Runner) noteOff(L *lua.LState) int {
	return r.send(L, dispatch.CmdNoteOff)
}

// ins(sys, ch, index)
func (r *Runner) instrument(L *lua.LState) int {
	return r.send(L, dispatch.CmdInstrument, L.CheckInt(3))
}

// vol(sys, ch, volume)
func (r *Runner) volume(L *lua.LState) int {
	return r.send(L, dispatch.CmdVolume, L.CheckInt(3))
}

// cmd(sys, name, ch, [value], [value2])
func (r *Runner) command(L *lua.LState) int {
	sys := r.checkSystem(L, 1)
	name := L.CheckString(2)
	c, ok := dispatch.ParseCmdType(name)
	if !ok {
		L.ArgError(2, fmt.Sprintf("unknown command %q", name))
		return 0
	}
	res := r.e.Command(sys, dispatch.NewCommand(c, L.CheckInt(3), L.OptInt(4, 0), L.OptInt(5, 0)))
	L.Push(lua.LNumber(res))
	return 1
}

// poke(sys, addr, value)
func (r *Runner) poke(L *lua.LState) int {
	sys := r.checkSystem(L, 1)
	r.e.System(sys).Poke(uint32(L.CheckInt(2)), uint16(L.CheckInt(3)))
	return 0
}

// reg(sys, addr) returns the register pool value at addr.
func (r *Runner) reg(L *lua.LState) int {
	sys := r.checkSystem(L, 1)
	addr := L.CheckInt(2)
	pool := r.e.System(sys).RegisterPool()
	if addr < 0 || addr >= len(pool) {
		L.ArgError(2, fmt.Sprintf("register 0x%X outside the pool", addr))
		return 0
	}
	L.Push(lua.LNumber(pool[addr]))
	return 1
}

// tick([n]) renders n ticks, default 1.
func (r *Runner) tick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n; i++ {
		r.limiter.WaitForNextFrame()
		r.e.Render(r.bufL, r.bufR)
		r.ticks++
		if r.sink == nil {
			continue
		}
		if err := r.sink(r.bufL, r.bufR); err != nil {
			L.RaiseError("audio sink: %v", err)
			return 0
		}
	}
	return 0
}

// attach(sys) returns whether a physical chip was attached.
func (r *Runner) attach(L *lua.LState) int {
	L.Push(lua.LBool(r.e.AttachHardware(r.checkSystem(L, 1))))
	return 1
}

// detach(sys)
func (r *Runner) detach(L *lua.LState) int {
	L.Push(lua.LBool(r.e.DetachHardware(r.checkSystem(L, 1))))
	return 1
}

// attached(sys)
func (r *Runner) attached(L *lua.LState) int {
	sys := r.checkSystem(L, 1)
	L.Push(lua.LBool(r.e.Manager().HasAttached(r.e.System(sys))))
	return 1
}

// chips() returns an array of {name, type, attached, serving}.
func (r *Runner) chips(L *lua.LState) int {
	out := L.NewTable()
	for _, c := range r.e.Manager().Chips() {
		t := L.NewTable()
		t.RawSetString("name", lua.LString(c.Name))
		t.RawSetString("type", lua.LString(c.Type.String()))
		t.RawSetString("clock", lua.LNumber(c.Clock))
		t.RawSetString("attached", lua.LBool(c.Attached))
		if c.Attached {
			t.RawSetString("serving", lua.LString(c.Serving.String()))
		}
		out.Append(t)
	}
	L.Push(out)
	return 1
}

// systems() returns an array of {name, type, channels, attached}.
func (r *Runner) systems(L *lua.LState) int {
	out := L.NewTable()
	for _, s := range r.e.Systems() {
		t := L.NewTable()
		t.RawSetString("name", lua.LString(s.Name))
		t.RawSetString("type", lua.LString(s.Type.String()))
		t.RawSetString("channels", lua.LNumber(s.Channels))
		t.RawSetString("attached", lua.LBool(s.Attached))
		out.Append(t)
	}
	L.Push(out)
	return 1
}

// log(...)
func (r *Runner) log(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.Get(i).String())
	}
	r.logger.Info("script", "msg", strings.Join(parts, " "))
	return 0
}
