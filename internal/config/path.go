package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "parley"

// ResolvePath returns the explicit path when given, otherwise parley/config.yaml under
// the XDG config home.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir is where parley keeps logs and debug dumps.
func StateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env string, homeFallback string) (string, error) {
	if base := strings.TrimSpace(os.Getenv(env)); base != "" {
		return filepath.Join(base, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve %s fallback: %w", env, err)
	}
	return filepath.Join(home, homeFallback, appDir), nil
}
