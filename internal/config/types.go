// Package config resolves, loads, validates, and defaults parley configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by parley.
type Config struct {
	Agents         []AgentConfig `mapstructure:"agents"`
	DefaultAgent   string        `mapstructure:"default_agent"`
	ResultsBaseURL string        `mapstructure:"results_base_url"`

	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Store     StoreConfig     `mapstructure:"store"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`

	// Secrets come from the environment (and .env), never from the config file.
	Secrets Secrets `mapstructure:"-"`
}

// AgentConfig maps one voice agent to the rubric it is graded against. Agents are a list
// because viper folds map keys to lower case and agent ids are case-sensitive.
type AgentConfig struct {
	ID            string `mapstructure:"id"`
	InterviewType string `mapstructure:"interview_type"`
}

// AgentTypes returns the agent id to interview type mapping.
func (c Config) AgentTypes() map[string]string {
	out := make(map[string]string, len(c.Agents))
	for _, agent := range c.Agents {
		out[agent.ID] = agent.InterviewType
	}
	return out
}

// ScoringConfig selects the model backend. Backend "remote" uses the HTTP API at
// RemoteURL; "grpc" uses the scoring RPC at GRPCAddr.
type ScoringConfig struct {
	Backend   string        `mapstructure:"backend"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	RemoteURL string        `mapstructure:"remote_url"`
	GRPCAddr  string        `mapstructure:"grpc_addr"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// PipelineConfig bounds each evaluation stage.
type PipelineConfig struct {
	ScoreTimeout   time.Duration `mapstructure:"score_timeout"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// StoreConfig selects the interview store.
type StoreConfig struct {
	Kind      string `mapstructure:"kind"`
	DSN       string `mapstructure:"dsn"`
	RemoteURL string `mapstructure:"remote_url"`
}

// VoiceConfig controls the conversational agent connection.
type VoiceConfig struct {
	APIBaseURL  string        `mapstructure:"api_base_url"`
	SocketURL   string        `mapstructure:"socket_url"`
	Uplink      bool          `mapstructure:"uplink"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	DebugDump   bool          `mapstructure:"debug_dump"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `mapstructure:"input"`
	Fallback string `mapstructure:"fallback"`
}

// IndicatorConfig controls session notifications.
type IndicatorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	Backend        string `mapstructure:"backend"`
	DesktopAppName string `mapstructure:"desktop_app_name"`
	ErrorTimeoutMS int    `mapstructure:"error_timeout_ms"`
}

// ClipboardConfig controls copying the results URL after a session. Argv receives the
// URL on stdin.
type ClipboardConfig struct {
	Enable bool     `mapstructure:"enable"`
	Argv   []string `mapstructure:"argv"`
}

// ServerConfig controls `parley serve`.
type ServerConfig struct {
	HTTPAddr   string        `mapstructure:"http_addr"`
	GRPCAddr   string        `mapstructure:"grpc_addr"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// LogConfig controls the runtime logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Secrets are credentials resolved from the environment.
type Secrets struct {
	OpenAIKey     string
	GeminiKey     string
	ElevenLabsKey string
	DatabaseDSN   string
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}
