package datadir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EnvVarWins(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "env-dir")
	t.Setenv(EnvVar, envDir)

	got, err := Resolve("/should/be/ignored")
	require.NoError(t, err)
	assert.Equal(t, envDir, got)

	info, err := os.Stat(envDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestResolve_ConfigValueFallback(t *testing.T) {
	cfgDir := filepath.Join(t.TempDir(), "cfg-dir")
	t.Setenv(EnvVar, "")

	got, err := Resolve(cfgDir)
	require.NoError(t, err)
	assert.Equal(t, cfgDir, got)
}

func TestNew_DefaultHome(t *testing.T) {
	t.Setenv(EnvVar, "")
	home, _ := os.UserHomeDir()

	dd, err := New("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultDirName), dd.Root())
}

func TestNew_EnvVarWins(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "env-root")
	t.Setenv(EnvVar, envDir)

	dd, err := New("ignored-config-value")
	require.NoError(t, err)
	assert.Equal(t, envDir, dd.Root())
}

func TestDataDir_Paths(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvVar, root)

	dd, err := New("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "ssh"), dd.SSHDir())
	assert.Equal(t, filepath.Join(root, "keyring"), dd.KeyringDir())
	assert.Equal(t, filepath.Join(root, "logs"), dd.LogsDir())
	assert.Equal(t, filepath.Join(root, "config.json"), dd.ConfigPath())
	assert.Equal(t, filepath.Join(root, "logs", "tether.log"), dd.LogPath())
	assert.Equal(t, filepath.Join(root, "ssh", "host_key"), dd.SSHFilePath("host_key"))
}

func TestDataDir_EnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fresh")
	t.Setenv(EnvVar, root)

	dd, err := New("")
	require.NoError(t, err)

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, dd.EnsureDirs())
	for _, dir := range []string{dd.Root(), dd.SSHDir(), dd.KeyringDir(), dd.LogsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "dir should exist: %s", dir)
		assert.True(t, info.IsDir(), "should be directory: %s", dir)
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm(), "permissions of %s", dir)
	}

	// idempotent and non-destructive
	require.NoError(t, os.WriteFile(dd.LogPath(), []byte("data"), 0600))
	require.NoError(t, dd.EnsureDirs())
	data, err := os.ReadFile(dd.LogPath())
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}
