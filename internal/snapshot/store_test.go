package snapshot

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCaptureCorrelateGet(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "main.go")
	writeFile(t, target, "package main\n")

	s.CaptureForTool(ToolEdit, target)
	s.CorrelateToToolCall(target, "c1")

	snap, ok := s.Get("c1")
	if !ok {
		t.Fatalf("expected snapshot for c1")
	}
	if snap.OriginalPath != target {
		t.Fatalf("originalPath=%q, want %q", snap.OriginalPath, target)
	}
	if !snap.ExistedBefore {
		t.Fatalf("existedBefore=false, want true")
	}
	got, err := os.ReadFile(snap.TempFilePath)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if string(got) != "package main\n" {
		t.Fatalf("temp content=%q", got)
	}

	// Repeated reads return the same record without touching the file system.
	again, ok := s.Get("c1")
	if !ok || again != snap {
		t.Fatalf("second Get returned a different record")
	}
}

func TestCaptureMissingTargetWritesEmptyFile(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "brand-new.txt")

	s.CaptureForTool(ToolCreate, target)
	s.CorrelateToToolCall(target, "c1")

	snap, ok := s.Get("c1")
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.ExistedBefore {
		t.Fatalf("existedBefore=true for missing target")
	}
	info, err := os.Stat(snap.TempFilePath)
	if err != nil {
		t.Fatalf("stat temp: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("temp size=%d, want 0", info.Size())
	}
}

func TestIneligibleToolKindIsNoop(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, target, "x")

	s.CaptureForTool("read", target)
	s.CorrelateToToolCall(target, "c1")
	if _, ok := s.Get("c1"); ok {
		t.Fatalf("snapshot captured for ineligible tool kind")
	}
}

func TestCollisionKeepsOnlyLatest(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "f.txt")

	writeFile(t, target, "first")
	s.CaptureForTool(ToolEdit, target)

	var firstTemp string
	for _, snap := range s.byPath {
		firstTemp = snap.TempFilePath
	}

	writeFile(t, target, "second")
	s.CaptureForTool(ToolEdit, target)
	s.CorrelateToToolCall(target, "c1")

	if _, err := os.Stat(firstTemp); !os.IsNotExist(err) {
		t.Fatalf("first temp file still present: %v", err)
	}
	snap, ok := s.Get("c1")
	if !ok {
		t.Fatalf("expected snapshot")
	}
	got, err := os.ReadFile(snap.TempFilePath)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("temp content=%q, want %q", got, "second")
	}
}

func TestCorrelateMissIsSilent(t *testing.T) {
	s := newTestStore(t)
	s.CorrelateToToolCall("/no/such/path", "c1")
	if _, ok := s.Get("c1"); ok {
		t.Fatalf("snapshot appeared from nowhere")
	}
}

func TestPathReusableAfterCorrelation(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "f.txt")

	writeFile(t, target, "v1")
	s.CaptureForTool(ToolEdit, target)
	s.CorrelateToToolCall(target, "c1")

	writeFile(t, target, "v2")
	s.CaptureForTool(ToolEdit, target)
	s.CorrelateToToolCall(target, "c2")

	s1, ok1 := s.Get("c1")
	s2, ok2 := s.Get("c2")
	if !ok1 || !ok2 {
		t.Fatalf("expected two independent snapshots")
	}
	b1, _ := os.ReadFile(s1.TempFilePath)
	b2, _ := os.ReadFile(s2.TempFilePath)
	if string(b1) != "v1" || string(b2) != "v2" {
		t.Fatalf("snapshots = %q, %q", b1, b2)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	s := newTestStore(t)
	target := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, target, "x")

	s.CaptureForTool(ToolEdit, target)
	s.CorrelateToToolCall(target, "c1")
	snap, _ := s.Get("c1")

	s.Cleanup("c1")
	s.Cleanup("c1")
	s.Cleanup("never-existed")

	if _, ok := s.Get("c1"); ok {
		t.Fatalf("snapshot survived cleanup")
	}
	if _, err := os.Stat(snap.TempFilePath); !os.IsNotExist(err) {
		t.Fatalf("temp file survived cleanup: %v", err)
	}
}

func TestCleanupAllSweepsPendingToo(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	s.CaptureForTool(ToolEdit, a)
	s.CorrelateToToolCall(a, "c1")
	s.CaptureForTool(ToolEdit, b) // left pending on purpose

	s.CleanupAll()

	if _, ok := s.Get("c1"); ok {
		t.Fatalf("correlated snapshot survived sweep")
	}
	entries, err := os.ReadDir(s.ArenaDir())
	if err != nil {
		t.Fatalf("read arena: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("arena still holds %d files", len(entries))
	}
}

func TestCreateTempAndCleanupTempFile(t *testing.T) {
	s := newTestStore(t)

	path, err := s.CreateTemp("virtual before", "doc.md")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if !strings.HasPrefix(path, s.ArenaDir()) {
		t.Fatalf("temp path %q outside arena %q", path, s.ArenaDir())
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "virtual before" {
		t.Fatalf("temp content=%q err=%v", got, err)
	}

	s.CleanupTempFile(path)
	s.CleanupTempFile(path) // already gone, still fine
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("temp file survived cleanup: %v", err)
	}
}

func TestCleanupTempFileRefusesOutsideArena(t *testing.T) {
	s := newTestStore(t)
	outside := filepath.Join(t.TempDir(), "keep.txt")
	writeFile(t, outside, "keep me")

	s.CleanupTempFile(outside)
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside arena was deleted: %v", err)
	}
}

func TestCloseRemovesArena(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	target := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, target, "x")
	s.CaptureForTool(ToolEdit, target)

	s.Close()
	if _, err := os.Stat(s.ArenaDir()); !os.IsNotExist(err) {
		t.Fatalf("arena still exists after Close: %v", err)
	}
}

func TestUniqueNamesForSamePath(t *testing.T) {
	s := newTestStore(t)
	p1, err := s.CreateTemp("one", "same.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	p2, err := s.CreateTemp("two", "same.txt")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("temp paths collide: %q", p1)
	}
}
