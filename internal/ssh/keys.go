package ssh

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmssh "github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// ErrNoKeysPath is returned when no authorized_keys path was given.
var ErrNoKeysPath = errors.New("no authorized keys path available")

// KeyEntry represents an authorized public key with metadata
type KeyEntry struct {
	PublicKey   charmssh.PublicKey
	Comment     string
	Fingerprint string
}

// authorizedLine is one line of an authorized_keys file. Entry is nil for
// blank lines, comments and lines that do not parse.
type authorizedLine struct {
	Raw   string
	Entry *KeyEntry
}

func readAuthorizedKeys(path string) ([]authorizedLine, error) {
	if path == "" {
		return nil, ErrNoKeysPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	var lines []authorizedLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := authorizedLine{Raw: scanner.Text()}
		trimmed := strings.TrimSpace(line.Raw)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if pubKey, comment, _, _, err := gossh.ParseAuthorizedKey([]byte(trimmed)); err == nil {
				line.Entry = &KeyEntry{
					PublicKey:   pubKey,
					Comment:     comment,
					Fingerprint: gossh.FingerprintSHA256(pubKey),
				}
			}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading authorized keys: %w", err)
	}
	return lines, nil
}

// LoadAuthorizedKeys loads SSH public keys from an authorized_keys file.
// Invalid lines are skipped.
func LoadAuthorizedKeys(path string) ([]charmssh.PublicKey, error) {
	entries, err := ListAuthorizedKeys(path)
	if err != nil {
		return nil, err
	}
	keys := make([]charmssh.PublicKey, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.PublicKey)
	}
	return keys, nil
}

// ListAuthorizedKeys returns all authorized keys with fingerprints
func ListAuthorizedKeys(path string) ([]KeyEntry, error) {
	lines, err := readAuthorizedKeys(path)
	if err != nil {
		return nil, err
	}
	var entries []KeyEntry
	for _, l := range lines {
		if l.Entry != nil {
			entries = append(entries, *l.Entry)
		}
	}
	return entries, nil
}

// AddAuthorizedKey validates keyData and appends it to the authorized_keys file
func AddAuthorizedKey(path string, keyData string) error {
	if path == "" {
		return ErrNoKeysPath
	}

	keyData = strings.TrimSpace(keyData)
	if _, _, _, _, err := gossh.ParseAuthorizedKey([]byte(keyData)); err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open authorized keys: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(keyData + "\n"); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	return nil
}

// RemoveAuthorizedKey removes a key by fingerprint, keeping every other line
// (comments included) as it was.
func RemoveAuthorizedKey(path string, fingerprint string) error {
	lines, err := readAuthorizedKeys(path)
	if err != nil {
		return err
	}

	var kept []string
	found := false
	for _, l := range lines {
		if l.Entry != nil && l.Entry.Fingerprint == fingerprint {
			found = true
			continue
		}
		kept = append(kept, l.Raw)
	}
	if !found {
		return fmt.Errorf("key with fingerprint %s not found", fingerprint)
	}

	content := strings.Join(kept, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// InitAuthorizedKeys creates an empty authorized_keys file if none exists.
// It reports whether a file was created. The host key is generated by wish
// on first start.
func InitAuthorizedKeys(path string) (bool, error) {
	if path == "" {
		return false, ErrNoKeysPath
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte("# tether authorized SSH keys\n"), 0600); err != nil {
		return false, fmt.Errorf("failed to create authorized_keys: %w", err)
	}
	return true, nil
}
