package config

import (
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/rbright/parley/internal/rubric"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendRemote = "remote"
	BackendGRPC   = "grpc"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRemote   = "remote"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Agents:         defaultAgents(),
		DefaultAgent:   "Ykg1OlN7H58nquphXgmt",
		ResultsBaseURL: "http://127.0.0.1:8787",
		Scoring: ScoringConfig{
			Backend:   BackendOpenAI,
			RemoteURL: "http://127.0.0.1:8787",
			GRPCAddr:  "127.0.0.1:50061",
			Timeout:   2 * time.Minute,
		},
		Pipeline: PipelineConfig{
			ScoreTimeout:   90 * time.Second,
			PersistTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Kind:      StoreMemory,
			RemoteURL: "http://127.0.0.1:8787",
		},
		Voice: VoiceConfig{
			APIBaseURL:  "https://api.elevenlabs.io",
			SocketURL:   "wss://api.elevenlabs.io",
			Uplink:      true,
			DialTimeout: 10 * time.Second,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "parley",
			ErrorTimeoutMS: 4000,
		},
		Clipboard: ClipboardConfig{Enable: true, Argv: []string{"wl-copy", "--trim-newline"}},
		Server: ServerConfig{
			HTTPAddr:   "127.0.0.1:8787",
			GRPCAddr:   "127.0.0.1:50061",
			RateLimit:  20,
			RateWindow: time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults registers every key so PARLEY_* environment overrides resolve.
func setDefaults(v *viper.Viper, cfg Config) {
	agents := make([]map[string]any, 0, len(cfg.Agents))
	for _, agent := range cfg.Agents {
		agents = append(agents, map[string]any{"id": agent.ID, "interview_type": agent.InterviewType})
	}
	v.SetDefault("agents", agents)
	v.SetDefault("default_agent", cfg.DefaultAgent)
	v.SetDefault("results_base_url", cfg.ResultsBaseURL)

	v.SetDefault("scoring.backend", cfg.Scoring.Backend)
	v.SetDefault("scoring.model", cfg.Scoring.Model)
	v.SetDefault("scoring.base_url", cfg.Scoring.BaseURL)
	v.SetDefault("scoring.remote_url", cfg.Scoring.RemoteURL)
	v.SetDefault("scoring.grpc_addr", cfg.Scoring.GRPCAddr)
	v.SetDefault("scoring.timeout", cfg.Scoring.Timeout)

	v.SetDefault("pipeline.score_timeout", cfg.Pipeline.ScoreTimeout)
	v.SetDefault("pipeline.persist_timeout", cfg.Pipeline.PersistTimeout)

	v.SetDefault("store.kind", cfg.Store.Kind)
	v.SetDefault("store.dsn", cfg.Store.DSN)
	v.SetDefault("store.remote_url", cfg.Store.RemoteURL)

	v.SetDefault("voice.api_base_url", cfg.Voice.APIBaseURL)
	v.SetDefault("voice.socket_url", cfg.Voice.SocketURL)
	v.SetDefault("voice.uplink", cfg.Voice.Uplink)
	v.SetDefault("voice.dial_timeout", cfg.Voice.DialTimeout)
	v.SetDefault("voice.debug_dump", cfg.Voice.DebugDump)

	v.SetDefault("audio.input", cfg.Audio.Input)
	v.SetDefault("audio.fallback", cfg.Audio.Fallback)

	v.SetDefault("indicator.enable", cfg.Indicator.Enable)
	v.SetDefault("indicator.backend", cfg.Indicator.Backend)
	v.SetDefault("indicator.desktop_app_name", cfg.Indicator.DesktopAppName)
	v.SetDefault("indicator.error_timeout_ms", cfg.Indicator.ErrorTimeoutMS)

	v.SetDefault("clipboard.enable", cfg.Clipboard.Enable)
	v.SetDefault("clipboard.argv", cfg.Clipboard.Argv)

	v.SetDefault("server.http_addr", cfg.Server.HTTPAddr)
	v.SetDefault("server.grpc_addr", cfg.Server.GRPCAddr)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("server.rate_window", cfg.Server.RateWindow)

	v.SetDefault("log.level", cfg.Log.Level)
}

func defaultAgents() []AgentConfig {
	stock := rubric.DefaultAgents()
	ids := make([]string, 0, len(stock))
	for id := range stock {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	agents := make([]AgentConfig, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, AgentConfig{ID: id, InterviewType: stock[id]})
	}
	return agents
}
