// Package credentials resolves the API tokens publishing requires.
// Environment variables always win; a per-user credentials file is the
// fallback so tokens survive shell sessions.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/pypi"
)

// Token is a resolved credential.
type Token struct {
	Value string
	// Source describes where the token came from, e.g. "env:PYPI_TOKEN"
	// or "credentials file".
	Source string
}

// storeFile is the on-disk layout of the credentials file.
type storeFile struct {
	// Tokens maps index names to API tokens.
	Tokens map[string]string `json:"tokens"`
}

func readStore() (storeFile, error) {
	var sf storeFile
	path, err := config.CredentialsPath()
	if err != nil {
		return sf, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sf, nil
		}
		return sf, err
	}
	if err := json.Unmarshal(b, &sf); err != nil {
		return sf, fmt.Errorf("parse %s: %w", path, err)
	}
	return sf, nil
}

func writeStore(sf storeFile) error {
	if _, err := config.EnsureDataDir(); err != nil {
		return err
	}
	path, err := config.CredentialsPath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	// Tokens are secrets: keep the file private.
	return os.WriteFile(path, append(b, '\n'), 0o600)
}

// Set persists a token for idx in the credentials file.
func Set(idx pypi.Index, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	sf, err := readStore()
	if err != nil {
		return err
	}
	if sf.Tokens == nil {
		sf.Tokens = map[string]string{}
	}
	sf.Tokens[idx.Name] = token
	return writeStore(sf)
}

// Clear removes the stored token for idx. Clearing an absent token is not an
// error.
func Clear(idx pypi.Index) error {
	sf, err := readStore()
	if err != nil {
		return err
	}
	if _, ok := sf.Tokens[idx.Name]; !ok {
		return nil
	}
	delete(sf.Tokens, idx.Name)
	return writeStore(sf)
}

// Stored returns the token persisted for idx, if any.
func Stored(idx pypi.Index) (string, bool, error) {
	sf, err := readStore()
	if err != nil {
		return "", false, err
	}
	tok, ok := sf.Tokens[idx.Name]
	return tok, ok && tok != "", nil
}

// Resolve returns the token for idx: the TokenEnv environment variable when
// set, the credentials file otherwise. A missing token returns ok=false, not
// an error.
func Resolve(idx pypi.Index) (Token, bool, error) {
	if v := strings.TrimSpace(os.Getenv(idx.TokenEnv)); v != "" {
		return Token{Value: v, Source: "env:" + idx.TokenEnv}, true, nil
	}
	tok, ok, err := Stored(idx)
	if err != nil {
		return Token{}, false, err
	}
	if !ok {
		return Token{}, false, nil
	}
	return Token{Value: tok, Source: "credentials file"}, true, nil
}

// Redact returns a display form that reveals only the token prefix.
func Redact(token string) string {
	const keep = 10
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "..." + strings.Repeat("*", 4)
}

// MissingMessage explains how to provide a token for idx.
func MissingMessage(idx pypi.Index) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No %s token found.\n\n", idx.Display)
	fmt.Fprintf(&b, "Create an API token at %s then either:\n\n", idx.TokenURL)
	fmt.Fprintf(&b, "  export %s=pypi-...\n\n", idx.TokenEnv)
	fmt.Fprintf(&b, "or store it with:\n\n")
	fmt.Fprintf(&b, "  pyship token set %s\n", idx.Name)
	return b.String()
}
