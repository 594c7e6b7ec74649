package linediff

import (
	"fmt"
	"strings"
	"testing"
)

func TestCompute_IdenticalYieldsEmpty(t *testing.T) {
	for _, content := range []string{"", "a", "a\nb\nc\n", strings.Repeat("line\n", 500)} {
		res := Compute(content, content, 10)
		if len(res.Lines) != 0 {
			t.Fatalf("lines=%d for identical input %q", len(res.Lines), content)
		}
		if res.Truncated {
			t.Fatalf("truncated=true for identical input")
		}
		if res.TotalLines != 0 {
			t.Fatalf("totalLines=%d, want 0", res.TotalLines)
		}
	}
}

func TestCompute_AllNew(t *testing.T) {
	res := Compute("", "a\nb\nc", 10)
	if res.TotalLines != 3 {
		t.Fatalf("totalLines=%d, want 3", res.TotalLines)
	}
	for i, l := range res.Lines {
		if l.Kind != KindAdd {
			t.Fatalf("line %d kind=%s, want add", i, l.Kind)
		}
	}
	if res.Truncated {
		t.Fatalf("unexpected truncation")
	}
}

func TestCompute_AllRemoved(t *testing.T) {
	res := Compute("a\nb", "", 10)
	if res.TotalLines != 2 {
		t.Fatalf("totalLines=%d, want 2", res.TotalLines)
	}
	for i, l := range res.Lines {
		if l.Kind != KindRemove {
			t.Fatalf("line %d kind=%s, want remove", i, l.Kind)
		}
	}
}

func TestCompute_SingleChangeWithContext(t *testing.T) {
	res := Compute("a\nb\nc", "a\nx\nc", 10)
	want := []Line{
		{Kind: KindContext, Text: "a"},
		{Kind: KindRemove, Text: "b"},
		{Kind: KindAdd, Text: "x"},
		{Kind: KindContext, Text: "c"},
	}
	if res.TotalLines != 4 {
		t.Fatalf("totalLines=%d, want 4", res.TotalLines)
	}
	if res.Truncated {
		t.Fatalf("unexpected truncation")
	}
	if len(res.Lines) != len(want) {
		t.Fatalf("lines=%d, want %d", len(res.Lines), len(want))
	}
	for i := range want {
		if res.Lines[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, res.Lines[i], want[i])
		}
	}
}

func TestCompute_ContextBoundedInLargeFile(t *testing.T) {
	var before, after strings.Builder
	for i := 0; i < 5000; i++ {
		line := fmt.Sprintf("line %d\n", i)
		before.WriteString(line)
		if i == 2500 {
			after.WriteString("changed\n")
		} else {
			after.WriteString(line)
		}
	}
	res := Compute(before.String(), after.String(), 10)
	// One context before, remove, add, one context after.
	if res.TotalLines != 4 {
		t.Fatalf("totalLines=%d, want 4", res.TotalLines)
	}
	if res.Lines[0].Kind != KindContext || res.Lines[3].Kind != KindContext {
		t.Fatalf("expected context lines at the edges, got %+v", res.Lines)
	}
}

func TestCompute_Truncation(t *testing.T) {
	var after strings.Builder
	for i := 0; i < 47; i++ {
		fmt.Fprintf(&after, "new %d\n", i)
	}
	res := Compute("", after.String(), 10)
	if !res.Truncated {
		t.Fatalf("expected truncation")
	}
	if len(res.Lines) != 10 {
		t.Fatalf("lines=%d, want 10", len(res.Lines))
	}
	if res.TotalLines != 47 {
		t.Fatalf("totalLines=%d, want 47", res.TotalLines)
	}

	res = Compute("", after.String(), 47)
	if res.Truncated || len(res.Lines) != 47 {
		t.Fatalf("truncated=%v lines=%d, want full result", res.Truncated, len(res.Lines))
	}
}

func TestCompute_DefaultMaxLines(t *testing.T) {
	var after strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&after, "new %d\n", i)
	}
	res := Compute("", after.String(), 0)
	if len(res.Lines) != DefaultMaxLines || !res.Truncated {
		t.Fatalf("lines=%d truncated=%v, want default cap", len(res.Lines), res.Truncated)
	}
}

func TestSplitLines_TrailingTerminator(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\nb", []string{"a", "b"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\n\n", []string{"a", ""}},
		{"\n", []string{""}},
	}
	for _, tc := range cases {
		got := splitLines(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("splitLines(%q)=%q, want %q", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("splitLines(%q)=%q, want %q", tc.in, got, tc.want)
			}
		}
	}
}

func TestCompute_RepeatedLinesDeterministic(t *testing.T) {
	before := "a\na\nb\na"
	after := "a\nb\na\na"
	first := Compute(before, after, 10)
	for i := 0; i < 5; i++ {
		again := Compute(before, after, 10)
		if len(again.Lines) != len(first.Lines) || again.TotalLines != first.TotalLines {
			t.Fatalf("nondeterministic result: %+v vs %+v", again, first)
		}
		for j := range first.Lines {
			if again.Lines[j] != first.Lines[j] {
				t.Fatalf("nondeterministic line %d: %+v vs %+v", j, again.Lines[j], first.Lines[j])
			}
		}
	}
}

func TestCompute_AdjacentChangesShareContext(t *testing.T) {
	res := Compute("a\nb\nc\nd\ne", "a\nB\nc\nD\ne", 10)
	// Every equal line touches a change, so all five positions survive.
	if res.TotalLines != 7 {
		t.Fatalf("totalLines=%d, want 7", res.TotalLines)
	}
	kinds := make([]Kind, len(res.Lines))
	for i, l := range res.Lines {
		kinds[i] = l.Kind
	}
	want := []Kind{KindContext, KindRemove, KindAdd, KindContext, KindRemove, KindAdd, KindContext}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds=%v, want %v", kinds, want)
		}
	}
}
