// Package fixtures loads sample users and audit entries for the seed command.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/upb/audit-trail/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Set is the content of a fixture file
type Set struct {
	Users  []User  `yaml:"users"`
	Audits []Audit `yaml:"audits"`
}

// User is a user to register
type User struct {
	ID           string          `yaml:"id"`
	Username     string          `yaml:"username"`
	Email        string          `yaml:"email"`
	Role         models.UserRole `yaml:"role"`
	Organization string          `yaml:"organization"`
	Permissions  []string        `yaml:"permissions"`
}

// Audit is an audit entry whose JSON payloads are written as YAML strings
type Audit struct {
	models.AuditEntry `yaml:",inline"`

	OldValue string `yaml:"oldValue"`
	NewValue string `yaml:"newValue"`
	Metadata string `yaml:"metadata"`
}

// Default returns the built-in sample set
func Default() (*Set, error) {
	return Parse(defaultYAML)
}

// Load reads a fixture file, or the built-in set when path is empty
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, a := range set.Audits {
		if a.ID == "" {
			return nil, fmt.Errorf("audit fixture %d: id is required", i)
		}
		if !a.Action.Valid() {
			return nil, fmt.Errorf("audit fixture %s: invalid action %q", a.ID, a.Action)
		}
		for field, raw := range map[string]string{"oldValue": a.OldValue, "newValue": a.NewValue, "metadata": a.Metadata} {
			if raw != "" && !json.Valid([]byte(raw)) {
				return nil, fmt.Errorf("audit fixture %s: %s is not valid JSON", a.ID, field)
			}
		}
	}
	return &set, nil
}

// Entries converts the audit fixtures to model entries
func (s *Set) Entries() []*models.AuditEntry {
	entries := make([]*models.AuditEntry, 0, len(s.Audits))
	for _, a := range s.Audits {
		entry := a.AuditEntry
		entry.OldValue = rawJSON(a.OldValue)
		entry.NewValue = rawJSON(a.NewValue)
		entry.Metadata = rawJSON(a.Metadata)
		entries = append(entries, &entry)
	}
	return entries
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
