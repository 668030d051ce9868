// Package cli parses parley's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandInterview Command = "interview"
	CommandStop      Command = "stop"
	CommandStatus    Command = "status"
	CommandResults   Command = "results"
	CommandAsk       Command = "ask"
	CommandServe     Command = "serve"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandInterview: {},
	CommandStop:      {},
	CommandStatus:    {},
	CommandResults:   {},
	CommandAsk:       {},
	CommandServe:     {},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// AgentID overrides the configured default agent for interview.
	AgentID string
	// InterviewID selects a stored interview for results and ask.
	InterviewID string
	// ErrorCode renders an error-mode results view.
	ErrorCode string
	Question  string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if err := parseCommandArgs(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseCommandArgs(parsed *Parsed, rest []string) error {
	var positional []string

	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}

		value := func() (string, error) {
			i++
			if i >= len(rest) || strings.TrimSpace(rest[i]) == "" {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			return rest[i], nil
		}

		var err error
		switch {
		case arg == "--agent" && parsed.Command == CommandInterview:
			parsed.AgentID, err = value()
		case arg == "--id" && (parsed.Command == CommandResults || parsed.Command == CommandAsk):
			parsed.InterviewID, err = value()
		case arg == "--error" && parsed.Command == CommandResults:
			parsed.ErrorCode, err = value()
		default:
			return fmt.Errorf("unknown flag for %s: %s", parsed.Command, arg)
		}
		if err != nil {
			return err
		}
	}

	switch parsed.Command {
	case CommandResults:
		if len(positional) > 0 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		if parsed.InterviewID != "" && parsed.ErrorCode != "" {
			return errors.New("results accepts --id or --error, not both")
		}
	case CommandAsk:
		if parsed.InterviewID == "" {
			return errors.New("ask requires --id")
		}
		parsed.Question = strings.TrimSpace(strings.Join(positional, " "))
		if parsed.Question == "" {
			return errors.New("ask requires a question")
		}
	default:
		if len(positional) > 0 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Commands:
  interview [--agent ID]          Run a voice interview, then score and store it
  stop                            End the running interview gracefully
  status                          Print the running interview's state
  results --id ID | --error CODE  Render a results view
  ask --id ID QUESTION            Ask a follow-up question about a stored interview
  serve                           Run the HTTP API and gRPC scoring service
  devices                         List available input devices
  doctor                          Run configuration and environment checks
  version                         Print version information
  help                            Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/parley/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
