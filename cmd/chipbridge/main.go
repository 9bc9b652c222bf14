package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Error running chipbridge", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "chipbridge"
	app.Description = "Drive OPLL sound chips from MIDI files and Lua scripts, on real hardware or emulated"
	app.Usage = "chipbridge [options] <command> [arguments]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to a YAML session config",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		cli.StringFlag{
			Name:  "library",
			Usage: "Hardware driver shared library (enables hardware)",
		},
		cli.IntFlag{
			Name:  "sample-rate",
			Usage: "Output sample rate in Hz (overrides config)",
		},
		cli.IntFlag{
			Name:  "tick-rate",
			Usage: "Sequencer tick rate in Hz (overrides config)",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		{
			Name:      "render",
			Usage:     "Render a MIDI file to a WAV file",
			ArgsUsage: "<MIDI file>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "Output WAV path (default: <MIDI file>.wav)"},
				cli.Float64Flag{Name: "tail", Usage: "Seconds rendered after the last event", Value: 1},
			},
			Action: runRender,
		},
		{
			Name:      "play",
			Usage:     "Play a MIDI file live",
			ArgsUsage: "<MIDI file>",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "monitor, m", Usage: "Show the terminal monitor"},
			},
			Action: runPlay,
		},
		{
			Name:   "probe",
			Usage:  "Load the hardware driver and list its chips",
			Action: runProbe,
		},
		{
			Name:      "script",
			Usage:     "Run a Lua script against the configured systems",
			ArgsUsage: "<Lua file>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "Write rendered audio to this WAV path instead of pacing in real time"},
			},
			Action: runScript,
		},
	}
	return app
}

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.GlobalBool("verbose") {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}
