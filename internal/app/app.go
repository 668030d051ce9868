// Package app wires parsed commands to the interview runtime and its services.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/cli"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/doctor"
	"github.com/rbright/parley/internal/logging"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/version"
)

const (
	binaryName     = "parley"
	forwardTimeout = 220 * time.Millisecond
)

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// provider and microphone replace the live voice stack when set.
	provider   session.Provider
	microphone session.Capability
}

// Execute runs args and returns the process exit code: 0 ok, 1 failure, 2 usage.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfgLoaded)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.commandStop(ctx)
	case cli.CommandInterview:
		return r.commandInterview(ctx, cfgLoaded.Config, parsed.AgentID, logRuntime, logger)
	case cli.CommandResults:
		return r.commandResults(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandAsk:
		return r.commandAsk(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logRuntime, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, loaded config.Loaded) int {
	report := doctor.Run(ctx, loaded)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return 1
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}
	if err := writeDevices(r.Stdout, devices); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// writeDevices prints one aligned row per input; the default source is starred.
func writeDevices(w io.Writer, devices []audio.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tDESCRIPTION\tSTATE\tAVAILABLE\tMUTED")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, d.ID, d.Description, d.State, yesNo(d.Available), yesNo(d.Muted))
	}
	return tw.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
