// Package toolspec loads the tool bundle describing the hosted agent's
// tool catalog. Agents name their file tools differently
// ("str_replace_editor", "write_file", ...); the bundle maps those names
// onto the canonical kinds the snapshot pipeline understands.
package toolspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Canonical tool kinds. Only edit and create mutate files in place.
const (
	KindEdit   = "edit"
	KindCreate = "create"
	KindRead   = "read"
	KindShell  = "shell"
	KindOther  = "other"
)

type Bundle struct {
	SchemaVersion string           `json:"schema_version"`
	BundleVersion string           `json:"bundle_version"`
	GeneratedAt   string           `json:"generated_at"`
	Tools         []ToolDefinition `json:"tools"`
}

type ToolDefinition struct {
	// Name is the tool name exactly as the agent reports it in its
	// event stream.
	Name string `json:"name"`
	// Kind is the canonical kind the name maps to.
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

var bundleVersionRe = regexp.MustCompile(`^v[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
var schemaVersionRe = regexp.MustCompile(`^20[0-9]{2}-[0-9]{2}-[0-9]{2}$`)
var toolNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func LoadBundleFromEnv(envKey string) (*Bundle, error) {
	if envKey == "" {
		envKey = "AGENTPANE_TOOL_SPEC"
	}
	path := os.Getenv(envKey)
	if path == "" {
		return nil, fmt.Errorf("%s not set", envKey)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return LoadBundle(abs)
}

func (b *Bundle) Validate() error {
	if b.SchemaVersion == "" {
		return errors.New("schema_version is required")
	}
	if !schemaVersionRe.MatchString(b.SchemaVersion) {
		return fmt.Errorf("schema_version must match YYYY-MM-DD, got %s", b.SchemaVersion)
	}
	if b.BundleVersion == "" {
		return errors.New("bundle_version is required")
	}
	if !bundleVersionRe.MatchString(b.BundleVersion) {
		return fmt.Errorf("bundle_version must match vYYYY-MM-DD, got %s", b.BundleVersion)
	}
	if b.GeneratedAt == "" {
		return errors.New("generated_at is required")
	}
	if _, err := time.Parse(time.RFC3339, b.GeneratedAt); err != nil {
		return fmt.Errorf("generated_at must be RFC3339: %w", err)
	}
	if len(b.Tools) == 0 {
		return errors.New("tools must contain at least one entry")
	}
	seen := make(map[string]struct{})
	for idx, tool := range b.Tools {
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tool[%d]: %w", idx, err)
		}
		if _, ok := seen[tool.Name]; ok {
			return fmt.Errorf("duplicate tool name %s", tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}
	return nil
}

func (t *ToolDefinition) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if !toolNameRe.MatchString(t.Name) {
		return fmt.Errorf("name must match [A-Za-z0-9_-]{1,64}, got %s", t.Name)
	}
	switch t.Kind {
	case KindEdit, KindCreate, KindRead, KindShell, KindOther:
	default:
		return fmt.Errorf("kind must be one of edit, create, read, shell, other, got %s", t.Kind)
	}
	if t.Description != "" && len(strings.TrimSpace(t.Description)) < 8 {
		return errors.New("description must be at least 8 characters when present")
	}
	return nil
}

// KindFor maps an agent tool name to its canonical kind. Names the bundle
// does not know pass through unchanged, so agents that already speak
// canonical kinds need no bundle at all.
func (b *Bundle) KindFor(name string) string {
	if b == nil {
		return name
	}
	for _, tool := range b.Tools {
		if tool.Name == name {
			return tool.Kind
		}
	}
	return name
}
