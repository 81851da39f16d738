package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	// DBName names the database file inside DataDir. One DataDir holds the
	// databases of a single profile; DBName defaults to DefaultDBName.
	DBName string `json:"db_name" yaml:"db_name"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDBName is the database name used when Config.DBName is empty.
const DefaultDBName = "crm-ignis"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDBNameInvalid  = errors.New("db name must not contain path separators")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	for _, r := range c.DBName {
		if r == '/' || r == '\\' {
			return ErrDBNameInvalid
		}
	}
	return nil
}

// EffectiveDBName returns DBName or DefaultDBName when it is empty.
func (c Config) EffectiveDBName() string {
	if c.DBName == "" {
		return DefaultDBName
	}
	return c.DBName
}
