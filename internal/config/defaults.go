package config

// Default values for configuration options — the "layer 0" of the
// override chain, chosen so the tool works without any config file.
const (
	defaultLogLevel          = "info"
	defaultMaxRetryAttempts  = 5
	defaultChunkSize         = "8MiB"
	defaultParallelTransfers = 1
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: defaultLogLevel,
		Transfers: TransfersConfig{
			MaxRetryAttempts:  defaultMaxRetryAttempts,
			ChunkSize:         defaultChunkSize,
			ParallelTransfers: defaultParallelTransfers,
		},
	}
}
