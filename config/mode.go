package config

import (
	"os"
	"strings"
)

// ModeEnvKey selects the environment specific config files.
const ModeEnvKey = "GO_ENV_MODE"

// Mode is the runtime environment.
type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode normalises an environment name; unknown values mean development.
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads GO_ENV_MODE.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(ModeEnvKey))
}

// suffixes lists the file name suffixes tried for a mode, lowest priority first.
func (m Mode) suffixes() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
