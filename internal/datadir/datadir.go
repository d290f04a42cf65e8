// Package datadir resolves where tether keeps its config, logs, SSH keys and
// the file-backed credential store.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default data directory name under $HOME.
	DefaultDirName = ".tether"

	// EnvVar is the environment variable that overrides the data directory.
	EnvVar = "TETHER_DATA_DIR"

	// ConfigFileName is the default config file inside the root.
	ConfigFileName = "config.json"

	// LogFileName is the diagnostic log inside the logs subdirectory.
	LogFileName = "tether.log"

	sshSubdir     = "ssh"
	keyringSubdir = "keyring"
	logsSubdir    = "logs"
)

// DataDir is the single source of truth for data-directory paths.
type DataDir struct {
	root string
}

// New returns a DataDir rooted at the resolved data directory.
// It does NOT create anything; call EnsureDirs for that.
//
// Resolution priority:
//  1. TETHER_DATA_DIR environment variable
//  2. configValue argument (--data-dir flag)
//  3. ~/.tether/
func New(configValue string) (*DataDir, error) {
	root, err := resolveRoot(configValue)
	if err != nil {
		return nil, err
	}
	return &DataDir{root: root}, nil
}

// Root returns the base data directory path.
func (d *DataDir) Root() string { return d.root }

// SSHDir returns {root}/ssh/.
func (d *DataDir) SSHDir() string { return filepath.Join(d.root, sshSubdir) }

// KeyringDir returns {root}/keyring/, used by the encrypted file backend.
func (d *DataDir) KeyringDir() string { return filepath.Join(d.root, keyringSubdir) }

// LogsDir returns {root}/logs/.
func (d *DataDir) LogsDir() string { return filepath.Join(d.root, logsSubdir) }

// ConfigPath returns {root}/config.json.
func (d *DataDir) ConfigPath() string { return filepath.Join(d.root, ConfigFileName) }

// LogPath returns {root}/logs/tether.log.
func (d *DataDir) LogPath() string { return filepath.Join(d.LogsDir(), LogFileName) }

// SSHFilePath returns the full path to a file inside the ssh subdirectory.
func (d *DataDir) SSHFilePath(filename string) string {
	return filepath.Join(d.SSHDir(), filename)
}

// EnsureDirs creates the root and all subdirectories with 0700 permissions.
func (d *DataDir) EnsureDirs() error {
	for _, dir := range []string{d.root, d.SSHDir(), d.KeyringDir(), d.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Resolve returns the data directory path, creating it with 0700 permissions
// if it doesn't already exist.
func Resolve(configValue string) (string, error) {
	root, err := resolveRoot(configValue)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", root, err)
	}
	return root, nil
}

// resolveRoot determines the root path without creating it.
func resolveRoot(configValue string) (string, error) {
	dir := os.Getenv(EnvVar)
	if dir == "" {
		dir = configValue
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	return dir, nil
}
