package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PARLEY"

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, and validates the runtime configuration. A missing file yields
// defaults plus a warning. A .env file in the working directory is loaded first.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	var warnings []Warning
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("ignoring .env: %v", err)})
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	exists := true
	if _, statErr := os.Stat(resolvedPath); statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, statErr)
		}
		exists = false
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	} else {
		v.SetConfigFile(resolvedPath)
		if err := v.ReadInConfig(); err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Loaded{}, fmt.Errorf("decode config %q: %w", resolvedPath, err)
	}

	validationWarnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}
	warnings = append(warnings, validationWarnings...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Secrets = secretsFromEnv()
	if strings.TrimSpace(cfg.Store.DSN) == "" {
		cfg.Store.DSN = cfg.Secrets.DatabaseDSN
	}
	return cfg, nil
}

func secretsFromEnv() Secrets {
	return Secrets{
		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		GeminiKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ElevenLabsKey: strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		DatabaseDSN:   strings.TrimSpace(os.Getenv("PARLEY_DATABASE_DSN")),
	}
}
