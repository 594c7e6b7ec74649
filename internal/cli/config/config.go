package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models the agentpane config file.
type Config struct {
	// Agent is how the hosted coding agent is launched.
	Agent AgentConfig `yaml:"agent"`

	// WorkspaceRoot is the directory the agent mutates. Empty means the
	// current working directory at launch.
	WorkspaceRoot string `yaml:"workspaceRoot"`

	// MaxDiffLines bounds the inline diff shown per mutation (default 10).
	MaxDiffLines int `yaml:"maxDiffLines"`

	// EmitPatch additionally renders full unified patches per change.
	EmitPatch bool `yaml:"emitPatch"`

	// SessionsDir overrides where session transcripts are stored.
	SessionsDir string `yaml:"sessionsDir"`

	// Relay optionally mirrors events to NATS JetStream.
	Relay *RelayConfig `yaml:"relay"`
}

// AgentConfig describes the agent subprocess.
type AgentConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	UsePTY  bool              `yaml:"usePty"`

	// ToolSpec points at a JSON bundle mapping the agent's tool names to
	// canonical kinds. Empty when the agent already emits canonical kinds.
	ToolSpec string `yaml:"toolSpec"`
}

// RelayConfig describes the optional JetStream mirror.
type RelayConfig struct {
	URL           string `yaml:"url"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// ErrAgentCommandMissing indicates the config names no agent to launch.
var ErrAgentCommandMissing = errors.New("agent command is not configured")

// Load decodes the config file. Missing files return (nil, nil).
func Load(path string) (*Config, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	expanded, err := expandPath(trimmed)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating parent directories if needed.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return err
	}
	return os.WriteFile(expanded, data, 0o600)
}

// Validate checks the fields the chat loop cannot run without.
func (c *Config) Validate() error {
	if c == nil || strings.TrimSpace(c.Agent.Command) == "" {
		return ErrAgentCommandMissing
	}
	return nil
}

func expandPath(path string) (string, error) {
	switch {
	case strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	case path == "~":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	case filepath.IsAbs(path):
		return path, nil
	default:
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(cwd, path), nil
	}
}
