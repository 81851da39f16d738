// Package paths resolves where ignis keeps its configuration, its
// database and its exported backups.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName names the per-user application directory.
const AppDirName = "ignis"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".ignis"
	DefaultDataDirName   = ".ignis-db"
	BackupDirName        = "backups"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "IGNIS_CONFIG_DIR"
	EnvDataDir   = "IGNIS_DATA_DIR"
	EnvBackupDir = "IGNIS_BACKUP_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns <base>/ignis where base is the XDG variable xdgEnv, or
// ~/<homeRel...> when it is unset. Off linux both config and data live
// under os.UserConfigDir.
func userDir(xdgEnv string, homeRel ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppDirName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppDirName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, homeRel...)
	return filepath.Join(append(parts, AppDirName)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/ignis (fallback ~/.config/ignis)
// macOS:   ~/Library/Application Support/ignis
// Windows: %APPDATA%/ignis
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/ignis (fallback ~/.local/share/ignis)
// macOS and Windows: same as DefaultConfigDir
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the first non-empty candidate made absolute.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir returns the configuration directory:
// flag > IGNIS_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the directory holding the database:
// flag > data_dir from config.yaml > IGNIS_DATA_DIR > $(CWD)/.ignis-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configYAMLValue, os.Getenv(EnvDataDir)); ok {
		return dir, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveBackupDir returns where exports are written:
// flag > IGNIS_BACKUP_DIR > <dataDir>/backups.
func ResolveBackupDir(flag, dataDir string) (string, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvBackupDir)); ok {
		return dir, err
	}
	return filepath.Join(dataDir, BackupDirName), nil
}
