package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend   = "backend"
	cfgKeyDataDir   = "data_dir"
	cfgKeyDBName    = "db_name"
	cfgKeyWorkspace = "workspace"

	defaultBackend   = "sqlite"
	defaultWorkspace = "default"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# ignis configuration

# Storage backend
backend: sqlite

# Workspace used when --workspace is not given
workspace: default

# Data directory (optional; overridable by --data-dir and IGNIS_DATA_DIR)
# data_dir:

# Database name inside the data directory (optional)
# db_name: crm-ignis
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. IGNIS_BACKEND, IGNIS_DB_NAME and
// IGNIS_WORKSPACE override the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyWorkspace, defaultWorkspace)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("IGNIS")
	for _, key := range []string{cfgKeyBackend, cfgKeyDBName, cfgKeyWorkspace} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates config.yaml unless it exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
