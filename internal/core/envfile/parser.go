// Package envfile contains pure functions for parsing and validating the
// key=value settings file that configures a stack deployment.
// This is part of the Functional Core - no I/O, no side effects. The caller
// reads the file; nothing here ever touches the process environment.
package envfile

import (
	"fmt"
	"strings"
)

// =============================================================================
// Settings
// =============================================================================

// Well-known settings keys.
const (
	// KeyTraefikHost is the public host name the reverse proxy answers on.
	KeyTraefikHost = "traefikhost"
	// KeyUserEmail is the contact address used for ACME registration.
	KeyUserEmail = "useremail"
)

// RequiredKeys are the keys that must be present and non-empty before a
// deployment is allowed to proceed.
var RequiredKeys = []string{KeyTraefikHost, KeyUserEmail}

// Settings is the parsed contents of a settings file. Values stay in an
// explicit map passed to whoever needs them; nothing is exported to the
// process environment.
type Settings map[string]string

// Get returns the value for key, or "" if unset.
func (s Settings) Get(key string) string {
	return s[key]
}

// TraefikHost returns the configured reverse-proxy host name.
func (s Settings) TraefikHost() string {
	return s[KeyTraefikHost]
}

// UserEmail returns the configured contact address.
func (s Settings) UserEmail() string {
	return s[KeyUserEmail]
}

// =============================================================================
// Parsing
// =============================================================================

// Parse parses key=value settings content.
//
// Accepted syntax per line:
//   - blank lines and lines starting with # are ignored
//   - an optional "export " prefix is stripped
//   - KEY=VALUE with VALUE optionally single- or double-quoted
//
// Later assignments win, matching shell sourcing semantics.
func Parse(content string) (Settings, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}

	settings := make(Settings)

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, NewParseError(
				fmt.Sprintf("line %d", i+1),
				fmt.Sprintf("expected KEY=VALUE, got %q", line),
				ErrMalformedLine,
			)
		}

		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, NewParseError(
				fmt.Sprintf("line %d", i+1),
				fmt.Sprintf("invalid key %q", key),
				ErrMalformedLine,
			)
		}

		settings[key] = unquote(strings.TrimSpace(value))
	}

	return settings, nil
}

// unquote strips one level of matching single or double quotes.
func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks that all required keys are present and non-empty.
// The returned error names the first missing key.
func Validate(settings Settings) error {
	for _, key := range RequiredKeys {
		if strings.TrimSpace(settings[key]) == "" {
			return NewParseError(
				key,
				fmt.Sprintf("%s is not set in the settings file", key),
				ErrMissingKey,
			)
		}
	}
	return nil
}
