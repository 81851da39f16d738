package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/ignis/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagDBName    string
	flagWorkspace string
	flagJSON      bool
	flagVerbose   bool
)

// Set by PersistentPreRunE for all subcommands.
var (
	config *viper.Viper
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

var rootCmd = &cobra.Command{
	Use:           "ignis",
	Short:         "ignis is a local-first outreach CRM",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		config = cfg
		logger.Debug("config loaded", "dir", configDir, "file", cfg.ConfigFileUsed())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.ignis-db)")
	pf.StringVar(&flagDBName, "db-name", "", "database name inside the data directory")
	pf.StringVarP(&flagWorkspace, "workspace", "w", "", "workspace id (default from config)")
	pf.BoolVar(&flagJSON, "json", false, "output as JSON")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug messages to stderr")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(leadCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(backupCmd)
}

// resolveDataDir applies --data-dir > config.yaml data_dir > IGNIS_DATA_DIR
// > $(CWD)/.ignis-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, config.GetString(cfgKeyDataDir))
}

// resolveConfigDir applies --config-dir > IGNIS_CONFIG_DIR > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
