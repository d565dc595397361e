package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "drivepull"

// File names inside the application directory.
const (
	configFileName = "config.toml"
	tokenFileName  = "token.json"
)

// DefaultConfigDir returns the platform-specific directory for config
// and token files. On Linux, respects XDG_CONFIG_HOME (defaults to
// ~/.config/drivepull). On macOS, uses ~/Library/Application Support/drivepull
// per Apple guidelines. Other platforms fall back to ~/.config/drivepull.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), configFileName)
}

// TokenPath returns the default token file location.
func TokenPath() string {
	return filepath.Join(DefaultConfigDir(), tokenFileName)
}
