package store

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to every collection name, e.g. "staging_".
	// Resolved once per operation, never per row. Default: "" (no prefix).
	TablePrefix string
}

// DefaultConfig returns the default configuration: no table prefix.
func DefaultConfig() Config {
	return Config{}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	// No bounds today; kept so additions default in one place.
}
