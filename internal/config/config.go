// Package config loads and validates drivepull's TOML configuration,
// applying the override chain defaults -> config file -> environment ->
// CLI flags.
package config

// Config is the top-level configuration structure, mirroring the TOML
// file layout.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	LogFile   string          `toml:"log_file"`
	Transfers TransfersConfig `toml:"transfers"`
	Auth      AuthConfig      `toml:"auth"`
}

// TransfersConfig tunes the transfer engine.
type TransfersConfig struct {
	// MaxRetryAttempts bounds exponential-backoff retry around every
	// remote operation.
	MaxRetryAttempts int `toml:"max_retry_attempts"`

	// ChunkSize is the ranged-download chunk, as a human-readable size
	// string ("8MiB").
	ChunkSize string `toml:"chunk_size"`

	// ParallelTransfers is the per-folder file transfer worker count.
	// 1 means strictly sequential.
	ParallelTransfers int `toml:"parallel_transfers"`
}

// AuthConfig identifies the OAuth2 installed-app client.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}
