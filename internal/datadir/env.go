package datadir

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvFileEnvVar names an extra .env file read before {datadir}/.env.
const EnvFileEnvVar = "TETHER_ENV_FILE"

// Env records what LoadEnv applied to the process environment.
type Env struct {
	// Files are the .env files that were read, in order.
	Files []string
	// Applied maps each variable set from a file to that file. Variables
	// the process environment already had are not listed.
	Applied map[string]string
}

// Source names where key comes from: a .env path, "environment", or ""
// when it is not set at all.
func (e *Env) Source(key string) string {
	if e != nil {
		if path, ok := e.Applied[key]; ok {
			return path
		}
	}
	if _, ok := os.LookupEnv(key); ok {
		return "environment"
	}
	return ""
}

// LoadEnv applies the gateway's .env files so ${VAR} placeholders in the
// config (usually the token) can stay out of it. The file named by
// TETHER_ENV_FILE is read first, then {dataRoot}/.env; the first file to
// set a key wins and the process environment beats both. A missing
// TETHER_ENV_FILE is an error, a missing data-root .env is not.
func LoadEnv(dataRoot string) (*Env, error) {
	env := &Env{Applied: map[string]string{}}

	if override := os.Getenv(EnvFileEnvVar); override != "" {
		if err := env.apply(override, true); err != nil {
			return nil, err
		}
	}
	if dataRoot != "" {
		if err := env.apply(filepath.Join(dataRoot, ".env"), false); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (e *Env) apply(path string, required bool) error {
	for _, f := range e.Files {
		if filepath.Clean(f) == filepath.Clean(path) {
			return nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	e.Files = append(e.Files, path)

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		key, value, ok, err := parseEnvLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
		if !ok {
			continue
		}
		if _, done := e.Applied[key]; done {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
		e.Applied[key] = path
	}
	return scanner.Err()
}

// parseEnvLine parses one line. ok is false for blanks and comments.
// Accepted forms: KEY=value, export KEY=value, KEY="escaped\n" and
// KEY='literal'. Unquoted values end at " #".
func parseEnvLine(line string) (key, value string, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false, nil
	}
	line = strings.TrimPrefix(line, "export ")

	key, rest, found := strings.Cut(line, "=")
	if !found {
		return "", "", false, fmt.Errorf("expected KEY=value")
	}
	key = strings.TrimSpace(key)
	if !validEnvKey(key) {
		return "", "", false, fmt.Errorf("invalid variable name %q", key)
	}

	rest = strings.TrimSpace(rest)
	switch {
	case strings.HasPrefix(rest, `"`):
		end := closingQuote(rest)
		if end < 0 {
			return "", "", false, fmt.Errorf("unterminated quote for %s", key)
		}
		value, err = strconv.Unquote(rest[:end+1])
		if err != nil {
			return "", "", false, fmt.Errorf("bad quoted value for %s: %w", key, err)
		}
	case strings.HasPrefix(rest, "'"):
		end := strings.IndexByte(rest[1:], '\'')
		if end < 0 {
			return "", "", false, fmt.Errorf("unterminated quote for %s", key)
		}
		value = rest[1 : end+1]
	default:
		if i := strings.Index(rest, " #"); i >= 0 {
			rest = rest[:i]
		}
		value = strings.TrimSpace(rest)
	}
	return key, value, true, nil
}

// closingQuote returns the index of the double quote ending s[0]'s string.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func validEnvKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
