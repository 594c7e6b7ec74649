// Package linediff computes bounded, line-level inline diffs between two
// file contents. It is a pure function over its inputs: no I/O, no shared
// state, identical inputs always produce identical output.
package linediff

import "strings"

// DefaultMaxLines bounds the rendered diff when the caller passes a
// non-positive maximum.
const DefaultMaxLines = 10

// Kind classifies a single output line.
type Kind string

const (
	// KindContext is an unchanged line kept for readability around a change.
	KindContext Kind = "context"
	// KindRemove is a line present only in the "before" content.
	KindRemove Kind = "remove"
	// KindAdd is a line present only in the "after" content.
	KindAdd Kind = "add"
)

// Line is one rendered diff line. Text is carried verbatim; only the number
// of lines is bounded, never the content of a line.
type Line struct {
	Kind Kind
	Text string
}

// Result is the bounded diff between two contents. TotalLines reports the
// line count before truncation so callers can render
// "showing 10 of 47 changed lines".
type Result struct {
	Lines      []Line
	Truncated  bool
	TotalLines int
}

// Compute diffs before and after content, keeping one line of unchanged
// context on each side of every changed region and truncating the output to
// maxLines (DefaultMaxLines when maxLines <= 0). It is total: every input,
// including two empty strings, yields a well-formed result.
func Compute(before, after string, maxLines int) Result {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	a := splitLines(before)
	b := splitLines(after)

	raw := rawDiff(a, b)
	kept := filterContext(raw)

	res := Result{TotalLines: len(kept)}
	if len(kept) > maxLines {
		kept = kept[:maxLines]
		res.Truncated = true
	}
	res.Lines = make([]Line, len(kept))
	for i, e := range kept {
		kind := KindContext
		switch e.op {
		case opRemove:
			kind = KindRemove
		case opAdd:
			kind = KindAdd
		}
		res.Lines[i] = Line{Kind: kind, Text: e.text}
	}
	return res
}

// splitLines canonicalizes at most one trailing newline as a terminator, so
// "a\nb\n" and "a\nb" both split into ["a","b"] and the empty content splits
// into zero lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

type op int

const (
	opEqual op = iota
	opRemove
	opAdd
)

type entry struct {
	op   op
	text string
}

// rawDiff aligns the two line sequences with an LCS and emits the full
// unfiltered edit script: removes for before-only lines, adds for after-only
// lines, one equal entry per matched pair.
func rawDiff(a, b []string) []entry {
	matches := lcsPairs(a, b)

	out := make([]entry, 0, len(a)+len(b))
	ai, bi := 0, 0
	for _, m := range matches {
		for ; ai < m.a; ai++ {
			out = append(out, entry{op: opRemove, text: a[ai]})
		}
		for ; bi < m.b; bi++ {
			out = append(out, entry{op: opAdd, text: b[bi]})
		}
		out = append(out, entry{op: opEqual, text: a[ai]})
		ai++
		bi++
	}
	for ; ai < len(a); ai++ {
		out = append(out, entry{op: opRemove, text: a[ai]})
	}
	for ; bi < len(b); bi++ {
		out = append(out, entry{op: opAdd, text: b[bi]})
	}
	return out
}

type pair struct {
	a, b int
}

// lcsPairs returns the ordered index pairs of a longest common subsequence of
// a and b, via the standard dynamic-programming table. When both backtrack
// directions score equally the walk steps through the "before" sequence; the
// choice is fixed so repeated-line inputs always align the same way.
func lcsPairs(a, b []string) []pair {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	rev := make([]pair, 0, dp[m][n])
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			rev = append(rev, pair{a: i - 1, b: j - 1})
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return rev
}

// filterContext keeps an equal line only when it is immediately adjacent to a
// changed line; isolated unchanged runs are dropped so output stays bounded
// by "changes plus one line of context" no matter how large the file is.
func filterContext(raw []entry) []entry {
	kept := make([]entry, 0, len(raw))
	for i, e := range raw {
		if e.op != opEqual {
			kept = append(kept, e)
			continue
		}
		if (i > 0 && raw[i-1].op != opEqual) || (i+1 < len(raw) && raw[i+1].op != opEqual) {
			kept = append(kept, e)
		}
	}
	return kept
}
