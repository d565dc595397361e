package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// minChunkSize guards against pathologically small ranged downloads.
const minChunkSize = 64 << 10

// Load reads and parses a TOML config file, validates it, and returns
// the resulting Config. Unknown keys are fatal errors — silently
// ignoring a typo in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the
// zero-config first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// checkUnknownKeys fails on any TOML key that did not decode into the
// Config struct, naming the offending keys.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
}

// validLogLevels enumerates accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the semantic constraints the TOML decoder cannot express.
func Validate(cfg *Config) error {
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", cfg.LogLevel)
	}

	if cfg.Transfers.MaxRetryAttempts < 1 {
		return fmt.Errorf("transfers.max_retry_attempts must be at least 1 (got %d)", cfg.Transfers.MaxRetryAttempts)
	}

	if cfg.Transfers.ParallelTransfers < 1 {
		return fmt.Errorf("transfers.parallel_transfers must be at least 1 (got %d)", cfg.Transfers.ParallelTransfers)
	}

	if _, err := cfg.ChunkSizeBytes(); err != nil {
		return err
	}

	return nil
}

// ChunkSizeBytes parses the chunk_size value into bytes.
func (c *Config) ChunkSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Transfers.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("transfers.chunk_size %q is not a valid size: %w", c.Transfers.ChunkSize, err)
	}

	if n < minChunkSize {
		return 0, fmt.Errorf("transfers.chunk_size must be at least 64KiB (got %s)", c.Transfers.ChunkSize)
	}

	return int64(n), nil
}
