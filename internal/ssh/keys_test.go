package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func newAuthorizedKey(t *testing.T, comment string) (string, gossh.Signer) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	line := strings.TrimSpace(string(gossh.MarshalAuthorizedKey(signer.PublicKey())))
	return line + " " + comment, signer
}

func TestInitAuthorizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh", "authorized_keys")

	created, err := InitAuthorizedKeys(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	created, err = InitAuthorizedKeys(path)
	require.NoError(t, err)
	assert.False(t, created, "existing file is left alone")

	keys, err := LoadAuthorizedKeys(path)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAuthorizedKeys_AddListRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	_, err := InitAuthorizedKeys(path)
	require.NoError(t, err)

	first, _ := newAuthorizedKey(t, "ada@laptop")
	second, _ := newAuthorizedKey(t, "bob@desktop")
	require.NoError(t, AddAuthorizedKey(path, first))
	require.NoError(t, AddAuthorizedKey(path, "  "+second+"\n"))

	entries, err := ListAuthorizedKeys(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ada@laptop", entries[0].Comment)
	assert.True(t, strings.HasPrefix(entries[0].Fingerprint, "SHA256:"))

	require.NoError(t, RemoveAuthorizedKey(path, entries[0].Fingerprint))

	entries, err = ListAuthorizedKeys(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob@desktop", entries[0].Comment)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# tether authorized SSH keys\n"), "comments survive removal")

	err = RemoveAuthorizedKey(path, "SHA256:missing")
	assert.ErrorContains(t, err, "not found")
}

func TestAuthorizedKeys_SkipsInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	valid, _ := newAuthorizedKey(t, "ok")
	content := "# header\n\nnot-a-key at all\n" + valid + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	keys, err := LoadAuthorizedKeys(path)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAuthorizedKeys_Errors(t *testing.T) {
	_, err := LoadAuthorizedKeys("")
	assert.ErrorIs(t, err, ErrNoKeysPath)
	assert.ErrorIs(t, AddAuthorizedKey("", "x"), ErrNoKeysPath)

	_, err = LoadAuthorizedKeys(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to open authorized keys")

	err = AddAuthorizedKey(filepath.Join(t.TempDir(), "authorized_keys"), "ssh-ed25519 garbage")
	assert.ErrorContains(t, err, "invalid public key")
}
