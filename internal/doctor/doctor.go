// Package doctor runs readiness diagnostics for config, audio, scoring, and storage.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/remote"
	"github.com/rbright/parley/internal/rubric"
	"github.com/rbright/parley/internal/scoringrpc"
	"github.com/rbright/parley/internal/store"
)

const probeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}
	checks = append(checks, checkAgents(cfg)...)
	checks = append(checks, checkMicrophone(ctx, cfg.Audio))
	checks = append(checks, checkScoring(ctx, cfg))
	checks = append(checks, checkStore(ctx, cfg))
	if cfg.Clipboard.Enable {
		checks = append(checks, checkCommand(cfg.Clipboard.Argv, "clipboard_cmd"))
	}
	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" (%d warnings)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkAgents resolves every configured agent against the embedded rubrics.
func checkAgents(cfg config.Config) []Check {
	agents := cfg.AgentTypes()
	checks := make([]Check, 0, len(cfg.Agents)+1)
	rubrics, err := rubric.Builtin()
	if err != nil {
		return append(checks, Check{Name: "rubrics", Pass: false, Message: err.Error()})
	}
	for _, agent := range cfg.Agents {
		name := "agent." + agent.ID
		if _, err := rubrics.Lookup(agent.InterviewType); err != nil {
			message := fmt.Sprintf("%v (known: %s)", err, strings.Join(rubrics.Types(), ", "))
			checks = append(checks, Check{Name: name, Pass: false, Message: message})
			continue
		}
		checks = append(checks, Check{Name: name, Pass: true, Message: agent.InterviewType})
	}

	interviewType, err := rubric.ResolveAgent(agents, cfg.DefaultAgent)
	if err != nil {
		return append(checks, Check{Name: "default_agent", Pass: false, Message: err.Error()})
	}
	return append(checks, Check{
		Name:    "default_agent",
		Pass:    true,
		Message: fmt.Sprintf("%s (%s)", cfg.DefaultAgent, interviewType),
	})
}

// checkMicrophone runs live device selection to surface selection/fallback issues.
func checkMicrophone(ctx context.Context, cfg config.AudioConfig) Check {
	mic := audio.NewMicrophone(audio.Preference{Input: cfg.Input, Fallback: cfg.Fallback}, nil)
	selection, err := mic.Resolve(ctx)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkScoring(ctx context.Context, cfg config.Config) Check {
	const name = "scoring"
	switch cfg.Scoring.Backend {
	case config.BackendOpenAI:
		return checkSecret(name, "OPENAI_API_KEY", cfg.Secrets.OpenAIKey)
	case config.BackendGemini:
		return checkSecret(name, "GEMINI_API_KEY", cfg.Secrets.GeminiKey)
	case config.BackendRemote:
		return checkHTTPAPI(ctx, name, cfg.Scoring.RemoteURL)
	case config.BackendGRPC:
		return checkGRPC(ctx, name, cfg.Scoring.GRPCAddr)
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Scoring.Backend)}
	}
}

func checkStore(ctx context.Context, cfg config.Config) Check {
	const name = "store"
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return Check{Name: name, Pass: true, Message: "memory store; interviews are lost on exit"}
	case config.StoreRemote:
		return checkHTTPAPI(ctx, name, cfg.Store.RemoteURL)
	case config.StorePostgres:
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		db, err := store.OpenPostgres(probeCtx, cfg.Store.DSN, nil, nil)
		if err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		defer func() { _ = db.Close() }()
		if err := db.Ping(probeCtx); err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		return Check{Name: name, Pass: true, Message: "postgres reachable"}
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown store kind %q", cfg.Store.Kind)}
	}
}

func checkSecret(name, envName, value string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Message: envName + " is not set"}
	}
	return Check{Name: name, Pass: true, Message: envName + " is set"}
}

// checkHTTPAPI probes a running `parley serve` readiness endpoint.
func checkHTTPAPI(ctx context.Context, name, baseURL string) Check {
	client, err := remote.New(baseURL, probeTimeout)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if err := client.Ping(ctx); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s: %v", baseURL, err)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("ready at %s", baseURL)}
}

// checkGRPC dials the scoring RPC and queries the standard health service.
func checkGRPC(ctx context.Context, name, addr string) Check {
	client, err := scoringrpc.Dial(ctx, addr, probeTimeout)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	defer func() { _ = client.Close() }()

	healthCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Health(healthCtx); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
