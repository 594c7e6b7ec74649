// Package patch renders classic unified patches (---/+++ headers, @@ hunks)
// for the "open as patch" view, complementing the bounded inline diff with
// the full change when the user asks for it.
package patch

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Options controls patch generation.
type Options struct {
	// MaxBytes is a guardrail on input size (before+after). When exceeded a
	// minimal placeholder patch is returned and oversize=true. 0 means no limit.
	MaxBytes int

	// Context is the number of unchanged lines kept around each hunk.
	// Defaults to 3.
	Context int
}

// Unified produces a unified patch for before -> after. The second return
// reports that the patch body was omitted because the inputs exceeded
// Options.MaxBytes.
func Unified(path, before, after string, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && len(before)+len(after) > opt.MaxBytes {
		return omitted(path), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 3
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(path), false
	}
	return s, false
}

// Added produces a patch introducing the whole file, for mutations whose
// target did not exist before.
func Added(path, after string, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && len(after) > opt.MaxBytes {
		return omitted(path), true
	}
	u := difflib.UnifiedDiff{
		A:        nil,
		B:        difflib.SplitLines(after),
		FromFile: "/dev/null",
		ToFile:   "b/" + path,
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(path), false
	}
	return s, false
}

func omitted(path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)
	b.WriteString("@@ patch omitted: content too large @@\n")
	return b.String()
}
