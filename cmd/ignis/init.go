package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend   string `yaml:"backend"`
	Workspace string `yaml:"workspace"`
	DataDir   string `yaml:"data_dir,omitempty"`
	DBName    string `yaml:"db_name,omitempty"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration and the database",
	Long: `Init records the resolved data directory, database name and workspace
in config.yaml and creates the database, applying any pending migrations.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}

		cfg := configFile{
			Backend:   config.GetString(cfgKeyBackend),
			Workspace: workspace(),
			DataDir:   dataDir,
			DBName:    dbName(),
		}
		if err := writeConfig(filepath.Join(configDir, configFileExt), cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Detach(); err != nil {
			return fmt.Errorf("finalize storage: %w", err)
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		name := cfg.DBName
		if name == "" {
			name = types.DefaultDBName
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s in %s (workspace %s)\n", name, dataDir, cfg.Workspace)
		return nil
	},
}

// writeConfig replaces config.yaml with cfg.
func writeConfig(path string, cfg configFile) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte("# ignis configuration\n"), data...), 0o644)
}
