package toolspec

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func validBundle() Bundle {
	return Bundle{
		SchemaVersion: "2026-08-01",
		BundleVersion: "v2026-08-01",
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Tools: []ToolDefinition{
			{Name: "str_replace_editor", Kind: KindEdit, Description: "Edit an existing file"},
			{Name: "write_file", Kind: KindCreate, Description: "Create a new file"},
			{Name: "bash", Kind: KindShell},
		},
	}
}

func TestBundleValidate(t *testing.T) {
	bundle := validBundle()
	if err := bundle.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBundleValidateDuplicateNames(t *testing.T) {
	bundle := validBundle()
	bundle.Tools = append(bundle.Tools, ToolDefinition{Name: "bash", Kind: KindShell})
	if err := bundle.Validate(); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestBundleValidateUnknownKind(t *testing.T) {
	bundle := validBundle()
	bundle.Tools[0].Kind = "mutate"
	if err := bundle.Validate(); err == nil {
		t.Fatalf("expected kind error")
	}
}

func TestKindFor(t *testing.T) {
	bundle := validBundle()
	if got := bundle.KindFor("str_replace_editor"); got != KindEdit {
		t.Fatalf("kind=%q", got)
	}
	if got := bundle.KindFor("write_file"); got != KindCreate {
		t.Fatalf("kind=%q", got)
	}
	// Unknown names pass through so canonical kinds work without a bundle.
	if got := bundle.KindFor("edit"); got != "edit" {
		t.Fatalf("kind=%q", got)
	}
	var nilBundle *Bundle
	if got := nilBundle.KindFor("create"); got != "create" {
		t.Fatalf("kind=%q", got)
	}
}

func TestLoadBundleFromEnv(t *testing.T) {
	bundle := validBundle()
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bundle-*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	envKey := "TEST_TOOL_SPEC"
	t.Setenv(envKey, tmp.Name())
	loaded, err := LoadBundleFromEnv(envKey)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.BundleVersion != bundle.BundleVersion {
		t.Fatalf("expected version %s, got %s", bundle.BundleVersion, loaded.BundleVersion)
	}
}
