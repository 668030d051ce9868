package config

import (
	"fmt"
	"strings"

	"github.com/rbright/parley/internal/rubric"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("agents must not be empty")
	}
	rubrics, err := rubric.Builtin()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(cfg.Agents))
	for i, agent := range cfg.Agents {
		id := strings.TrimSpace(agent.ID)
		if id == "" {
			return nil, fmt.Errorf("agents[%d].id must not be empty", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("agents[%d]: duplicate agent id %q", i, id)
		}
		seen[id] = true
		if _, err := rubrics.Lookup(agent.InterviewType); err != nil {
			return nil, fmt.Errorf("agents[%d] (%s): %w", i, id, err)
		}
	}
	if id := strings.TrimSpace(cfg.DefaultAgent); id != "" {
		if !seen[id] {
			return nil, fmt.Errorf("default_agent %q is not listed in agents", id)
		}
	}
	if strings.TrimSpace(cfg.ResultsBaseURL) == "" {
		return nil, fmt.Errorf("results_base_url must not be empty")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Scoring.Backend)) {
	case BackendOpenAI, BackendGemini:
	case BackendRemote:
		if strings.TrimSpace(cfg.Scoring.RemoteURL) == "" {
			return nil, fmt.Errorf("scoring.remote_url must not be empty when scoring.backend=remote")
		}
	case BackendGRPC:
		if strings.TrimSpace(cfg.Scoring.GRPCAddr) == "" {
			return nil, fmt.Errorf("scoring.grpc_addr must not be empty when scoring.backend=grpc")
		}
	default:
		return nil, fmt.Errorf("scoring.backend must be one of: openai, gemini, remote, grpc")
	}
	if cfg.Pipeline.ScoreTimeout <= 0 {
		return nil, fmt.Errorf("pipeline.score_timeout must be > 0")
	}
	if cfg.Pipeline.PersistTimeout <= 0 {
		return nil, fmt.Errorf("pipeline.persist_timeout must be > 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Store.Kind)) {
	case StoreMemory:
		warnings = append(warnings, Warning{Message: "store.kind=memory keeps interviews only for the life of the process"})
	case StorePostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return nil, fmt.Errorf("store.dsn (or PARLEY_DATABASE_DSN) must be set when store.kind=postgres")
		}
	case StoreRemote:
		if strings.TrimSpace(cfg.Store.RemoteURL) == "" {
			return nil, fmt.Errorf("store.remote_url must not be empty when store.kind=remote")
		}
	default:
		return nil, fmt.Errorf("store.kind must be one of: memory, postgres, remote")
	}

	if strings.TrimSpace(cfg.Voice.SocketURL) == "" {
		return nil, fmt.Errorf("voice.socket_url must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Clipboard.Enable && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard.argv must not be empty when clipboard.enable=true")
	}

	if strings.TrimSpace(cfg.Server.HTTPAddr) == "" {
		return nil, fmt.Errorf("server.http_addr must not be empty")
	}
	if cfg.Server.RateLimit < 0 {
		return nil, fmt.Errorf("server.rate_limit must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
