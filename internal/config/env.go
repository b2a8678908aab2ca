package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overlays a handful of env vars on top of the loaded file, so a
// dev shell can point the engine at a staging backend without editing yaml.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("JOBXPRESS_BASE_URL")); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBXPRESS_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = n
		}
	}
}
