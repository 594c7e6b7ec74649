package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsNil(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != nil {
		t.Fatalf("cfg=%+v, want nil", cfg)
	}
}

func TestLoadEmptyPathReturnsNil(t *testing.T) {
	cfg, err := Load("  ")
	if err != nil || cfg != nil {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	in := &Config{
		Agent: AgentConfig{
			Command: "fakeagent",
			Args:    []string{"--stream"},
			Env:     map[string]string{"AGENT_MODE": "jsonl"},
			UsePTY:  true,
		},
		WorkspaceRoot: "/ws",
		MaxDiffLines:  20,
		EmitPatch:     true,
		Relay: &RelayConfig{
			URL:    "nats://localhost:4222",
			Stream: "test_events",
		},
	}
	if err := in.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out == nil {
		t.Fatalf("nil config after save")
	}
	if out.Agent.Command != "fakeagent" || !out.Agent.UsePTY {
		t.Fatalf("agent=%+v", out.Agent)
	}
	if out.MaxDiffLines != 20 || !out.EmitPatch {
		t.Fatalf("cfg=%+v", out)
	}
	if out.Relay == nil || out.Relay.URL != "nats://localhost:4222" {
		t.Fatalf("relay=%+v", out.Relay)
	}
}

func TestValidate(t *testing.T) {
	var nilCfg *Config
	if err := nilCfg.Validate(); !errors.Is(err, ErrAgentCommandMissing) {
		t.Fatalf("err=%v", err)
	}
	if err := (&Config{}).Validate(); !errors.Is(err, ErrAgentCommandMissing) {
		t.Fatalf("err=%v", err)
	}
	if err := (&Config{Agent: AgentConfig{Command: "fakeagent"}}).Validate(); err != nil {
		t.Fatalf("err=%v", err)
	}
}
