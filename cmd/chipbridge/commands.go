package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"
	"github.com/valerio/go-chipbridge/chipbridge/audio"
	"github.com/valerio/go-chipbridge/chipbridge/config"
	"github.com/valerio/go-chipbridge/chipbridge/engine"
	"github.com/valerio/go-chipbridge/chipbridge/hw"
	"github.com/valerio/go-chipbridge/chipbridge/monitor"
	"github.com/valerio/go-chipbridge/chipbridge/script"
	"github.com/valerio/go-chipbridge/chipbridge/timing"
)

const (
	monitorRate    = 30
	monitorLogSize = 200
)

func runRender(c *cli.Context) error {
	midiPath, err := requireArg(c, "MIDI file")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := slog.Default()
	e := buildEngine(cfg, logger)
	defer e.Close()
	e.Start()

	seq, err := loadSequence(cfg, e, midiPath, logger)
	if err != nil {
		return err
	}
	e.SetSource(seq)

	out := c.String("out")
	if out == "" {
		out = cfg.Output.Wav
	}
	if out == "" {
		out = defaultWavPath(midiPath)
	}

	w, closeWav, err := wavFile(out, cfg.SampleRate)
	if err != nil {
		return err
	}

	frames, err := renderSequence(e, w, c.Float64("tail"))
	if cerr := closeWav(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	slog.Info("Rendered",
		"input", midiPath,
		"output", out,
		"frames", frames,
		"seconds", float64(frames)/float64(cfg.SampleRate))
	return nil
}

// renderSequence renders one tick at a time until the source is done, then
// tail more seconds so releases ring out.
func renderSequence(e *engine.Engine, w *audio.WavWriter, tail float64) (int, error) {
	block := max(1, timing.FramesFor(e.SampleRate(), float64(e.TickRate())))
	l := make([]int16, block)
	r := make([]int16, block)

	for !e.Done() {
		e.Render(l, r)
		if err := w.Write(l, r); err != nil {
			return w.Frames(), err
		}
	}

	remaining := int(tail * float64(e.SampleRate()))
	for remaining > 0 {
		n := min(block, remaining)
		e.Render(l[:n], r[:n])
		if err := w.Write(l[:n], r[:n]); err != nil {
			return w.Frames(), err
		}
		remaining -= n
	}
	return w.Frames(), nil
}

func runPlay(c *cli.Context) error {
	midiPath, err := requireArg(c, "MIDI file")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var (
		screen tcell.Screen
		logs   *monitor.LogBuffer
	)
	if c.Bool("monitor") {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		logs = monitor.NewLogBuffer(monitorLogSize)
		prev := slog.Default()
		slog.SetDefault(slog.New(monitor.NewLogBufferHandler(logs, slog.LevelDebug)))
		defer slog.SetDefault(prev)
	}

	e := buildEngine(cfg, slog.Default())
	defer e.Close()

	var mon *monitor.Monitor
	if screen != nil {
		mon = monitor.New(screen, e, logs)
		if err := mon.Init(); err != nil {
			return err
		}
		defer mon.Close()
	}
	return play(e, cfg, midiPath, mon)
}

// play runs the session until the sequence ends or the user quits. With an
// audio device the device pulls samples and drives the tick clock.
// Otherwise a limiter paces Render and only attached chips are audible.
func play(e *engine.Engine, cfg *config.Config, midiPath string, mon *monitor.Monitor) error {
	e.Start()

	seq, err := loadSequence(cfg, e, midiPath, slog.Default())
	if err != nil {
		return err
	}
	e.SetSource(seq)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		pace    timing.Limiter
		pump    func()
		stopper func()
	)

	player, err := audio.NewOtoPlayer(cfg.SampleRate)
	if err == nil {
		defer player.Close()
		player.SetProvider(e)
		player.Start()

		ticker := timing.NewTickerLimiter(monitorRate)
		pace, stopper = ticker, ticker.Stop
	} else {
		slog.Warn("No audio device, pacing the engine in real time", "error", err)
		pace = timing.NewAdaptiveLimiter(float64(cfg.TickRate))

		frames := max(1, timing.FramesFor(cfg.SampleRate, float64(cfg.TickRate)))
		l := make([]int16, frames)
		r := make([]int16, frames)
		pump = func() { e.Render(l, r) }
	}
	if stopper != nil {
		defer stopper()
	}

	slog.Info("Playing", "file", midiPath, "seconds", seq.Duration())
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		pace.WaitForNextFrame()
		if pump != nil {
			pump()
		}
		if mon != nil && !mon.Update() {
			return nil
		}
		if e.Done() {
			slog.Info("Playback finished", "ticks", e.Ticks())
			return nil
		}
	}
}

func runProbe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Hardware.Enabled {
		return errors.New("probe needs --library or hardware.enabled in the config")
	}

	m := hw.NewManager(loaderFor(cfg), hw.WithLogger(slog.Default()))
	defer m.Close()

	if !m.LoadDriver() {
		return fmt.Errorf("failed to load driver %s", cfg.Hardware.Library)
	}
	if !m.InitializeChips() {
		return errors.New("failed to initialize chips")
	}

	printChips(c.App.Writer, m.Chips())
	return nil
}

func printChips(w io.Writer, chips []hw.ChipStatus) {
	if len(chips) == 0 {
		fmt.Fprintln(w, "no chips found")
		return
	}
	for _, ch := range chips {
		compat := make([]string, 0, len(ch.Compatible))
		for _, t := range ch.Compatible {
			compat = append(compat, t.String())
		}
		line := fmt.Sprintf("%d:%d  %-16s %-8s %9d Hz", ch.Interface, ch.Slot, ch.Name, ch.Type, ch.Clock)
		if len(compat) > 0 {
			line += "  compatible: " + strings.Join(compat, ", ")
		}
		fmt.Fprintln(w, line)
	}
}

func runScript(c *cli.Context) error {
	path, err := requireArg(c, "Lua file")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := slog.Default()
	e := buildEngine(cfg, logger)
	defer e.Close()
	e.Start()

	opts := []script.Option{script.WithLogger(logger)}
	if out := c.String("out"); out != "" {
		w, closeWav, err := wavFile(out, cfg.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeWav(); err != nil {
				slog.Error("Failed to finalize wav", "path", out, "error", err)
			}
		}()
		opts = append(opts, script.WithSink(w.Write))
	} else {
		opts = append(opts, script.WithLimiter(timing.NewAdaptiveLimiter(float64(cfg.TickRate))))
	}

	r := script.New(e, opts...)
	defer r.Close()

	if err := r.DoFile(path); err != nil {
		return err
	}
	slog.Info("Script finished", "path", path, "ticks", r.Ticks())
	return nil
}
