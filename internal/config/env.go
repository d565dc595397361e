package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "DRIVEPULL_CONFIG"
	EnvLogLevel = "DRIVEPULL_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DRIVEPULL_CONFIG: override config file path
	LogLevel   string // DRIVEPULL_LOG_LEVEL: override log level
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}

// CLIOverrides holds values the command line supplies. Empty fields are
// "not set".
type CLIOverrides struct {
	ConfigPath string
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// CLI flags win, matching user expectations for one-off overrides.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	path := ConfigPath()
	if env.ConfigPath != "" {
		path = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		path = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
