// Package ignore reads .ddlpatchignore files naming declared objects that a
// plan should skip.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pgschema/ddlpatch/internal/diff"
	"github.com/pgschema/ddlpatch/internal/ir"
)

const (
	// IgnoreFileName is the default name of the ignore file
	IgnoreFileName = ".ddlpatchignore"
)

// Config holds glob patterns per object kind. Patterns support * wildcards and
// ! negation; a negation takes precedence over every inclusion.
type Config struct {
	Tables    []string
	Functions []string
}

// tomlConfig represents the TOML structure of the ignore file
type tomlConfig struct {
	Tables    patternConfig `toml:"tables,omitempty"`
	Functions patternConfig `toml:"functions,omitempty"`
}

type patternConfig struct {
	Patterns []string `toml:"patterns,omitempty"`
}

// LoadFile loads an ignore file from path.
// Returns nil if the file doesn't exist (ignore functionality is optional)
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var raw tomlConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, err
	}
	return &Config{
		Tables:    raw.Tables.Patterns,
		Functions: raw.Functions.Patterns,
	}, nil
}

// ShouldIgnore reports whether an object of kind named n is ignored. Patterns
// match either the bare object name or schema.name.
func (c *Config) ShouldIgnore(kind diff.Kind, n ir.QualifiedName) bool {
	if c == nil {
		return false
	}
	switch kind {
	case diff.KindTable:
		return shouldIgnore(n, c.Tables)
	case diff.KindFunction:
		return shouldIgnore(n, c.Functions)
	}
	return false
}

// Filter returns objects without the ignored ones, preserving order.
func (c *Config) Filter(objects []diff.Object) (kept, ignored []diff.Object) {
	for _, obj := range objects {
		if c.ShouldIgnore(obj.Kind(), obj.Identifier()) {
			ignored = append(ignored, obj)
			continue
		}
		kept = append(kept, obj)
	}
	return kept, ignored
}

func shouldIgnore(n ir.QualifiedName, patterns []string) bool {
	matched := false
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			continue
		}
		if matchName(pattern, n) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") && matchName(pattern[1:], n) {
			return false
		}
	}
	return true
}

func matchName(pattern string, n ir.QualifiedName) bool {
	if strings.Contains(pattern, ".") {
		return matchPattern(pattern, n.String())
	}
	return matchPattern(pattern, n.Name)
}

// matchPattern matches a glob-style pattern against a string.
// An invalid pattern only matches itself.
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return matched
}
