package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the state directory drover keeps under the work directory.
const HomeDirName = ".drover"

// GetDroverHome returns the directory where drover keeps its run state.
// Priority order:
//  1. DROVER_HOME environment variable (if set)
//  2. .drover under the given work directory
//
// The directory is created if it doesn't exist
func GetDroverHome(workDir string) (string, error) {
	home := os.Getenv("DROVER_HOME")
	if home == "" {
		if workDir == "" {
			return "", fmt.Errorf("drover home not resolvable: DROVER_HOME unset and no work directory given")
		}
		home = filepath.Join(workDir, HomeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create drover home directory: %w", err)
	}

	return home, nil
}

// GetHistoryDBPath returns the path to the run-history database
// Always returns: $DROVER_HOME/history.db
func GetHistoryDBPath(workDir string) (string, error) {
	home, err := GetDroverHome(workDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, "history.db"), nil
}

// ResolveLogDir resolves the configured log directory, joining a relative
// log_dir onto the work directory.
func (c *Config) ResolveLogDir(workDir string) string {
	if filepath.IsAbs(c.LogDir) {
		return c.LogDir
	}
	return filepath.Join(workDir, c.LogDir)
}
