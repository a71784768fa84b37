package config

// Config holds all CLI configuration options.
type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string `koanf:"database"`

	// MigrationsDir holds <name>.up.sql / <name>.down.sql pairs.
	MigrationsDir string `koanf:"migrations_dir"`

	// EncryptionKey enables column encryption when non-empty. Prefer the
	// STRATA_ENCRYPTION_KEY environment variable over the config file.
	EncryptionKey string `koanf:"encryption_key"`

	// BusyTimeout is the SQLite lock wait in seconds.
	BusyTimeout int `koanf:"busy_timeout"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Output selects the query result format (table|json|csv|markdown).
	Output string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultDatabase      = "strata.db"
	DefaultMigrationsDir = "migrations"
	DefaultBusyTimeout   = 5
	DefaultOutput        = "table"
)

// Defaults returns the built-in configuration map in koanf key form.
func Defaults() map[string]any {
	return map[string]any{
		"database":       DefaultDatabase,
		"migrations_dir": DefaultMigrationsDir,
		"encryption_key": "",
		"busy_timeout":   DefaultBusyTimeout,
		"verbose":        false,
		"output":         DefaultOutput,
	}
}
