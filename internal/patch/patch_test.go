package patch

import (
	"strings"
	"testing"
)

func TestUnified(t *testing.T) {
	body, oversize := Unified("main.go", "a\nb\nc\n", "a\nx\nc\n", Options{})
	if oversize {
		t.Fatalf("unexpected oversize")
	}
	for _, want := range []string{"--- a/main.go", "+++ b/main.go", "@@", "-b", "+x"} {
		if !strings.Contains(body, want) {
			t.Fatalf("patch missing %q:\n%s", want, body)
		}
	}
}

func TestUnifiedOversize(t *testing.T) {
	big := strings.Repeat("x\n", 1000)
	body, oversize := Unified("big.txt", big, big+"y\n", Options{MaxBytes: 64})
	if !oversize {
		t.Fatalf("expected oversize")
	}
	if !strings.Contains(body, "patch omitted") {
		t.Fatalf("placeholder missing:\n%s", body)
	}
}

func TestAdded(t *testing.T) {
	body, oversize := Added("new.txt", "hello\nworld\n", Options{})
	if oversize {
		t.Fatalf("unexpected oversize")
	}
	for _, want := range []string{"--- /dev/null", "+++ b/new.txt", "+hello", "+world"} {
		if !strings.Contains(body, want) {
			t.Fatalf("patch missing %q:\n%s", want, body)
		}
	}
}
