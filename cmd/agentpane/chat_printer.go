package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/darthmolen/agentpane/internal/bridge"
	"github.com/darthmolen/agentpane/internal/linediff"
)

// chatPrinter renders presentation events to a terminal. Assistant deltas
// stream onto a single line in interactive terminals; file changes render as
// a gutter-prefixed inline diff.
type chatPrinter struct {
	out         io.Writer
	err         io.Writer
	interactive bool
	showPatch   bool
	mu          *sync.Mutex

	assistantActive bool
	assistantFull   string
}

func newChatPrinter(out, err io.Writer, interactive, showPatch bool, mu *sync.Mutex) *chatPrinter {
	return &chatPrinter{
		out:         out,
		err:         err,
		interactive: interactive,
		showPatch:   showPatch,
		mu:          mu,
	}
}

func (p *chatPrinter) lock() {
	if p.mu != nil {
		p.mu.Lock()
	}
}

func (p *chatPrinter) unlock() {
	if p.mu != nil {
		p.mu.Unlock()
	}
}

// endAssistantLine terminates an in-progress streaming line before any
// non-delta output.
func (p *chatPrinter) endAssistantLine() {
	if p.assistantActive {
		_, _ = fmt.Fprint(p.out, "\n")
		p.assistantActive = false
		p.assistantFull = ""
	}
}

func (p *chatPrinter) AssistantDelta(text string) {
	p.lock()
	defer p.unlock()
	if !p.interactive {
		_, _ = fmt.Fprint(p.out, text)
		return
	}
	if !p.assistantActive {
		_, _ = fmt.Fprint(p.out, "\r\033[2K")
		_, _ = fmt.Fprint(p.out, "assistant: ")
		p.assistantActive = true
	}
	// Some agents stream cumulative text; print only the unseen suffix.
	out := text
	if p.assistantFull != "" && strings.HasPrefix(text, p.assistantFull) {
		out = text[len(p.assistantFull):]
		p.assistantFull = text
	} else if p.assistantFull != "" && strings.HasPrefix(p.assistantFull, text) {
		out = ""
	} else {
		p.assistantFull += text
	}
	_, _ = fmt.Fprint(p.out, out)
}

func (p *chatPrinter) AssistantDone(text string) {
	p.lock()
	defer p.unlock()
	if p.assistantActive {
		p.endAssistantLine()
		return
	}
	if strings.TrimSpace(text) != "" {
		_, _ = fmt.Fprintf(p.out, "assistant: %s\n", text)
	}
}

func (p *chatPrinter) Status(phase, detail string) {
	p.lock()
	defer p.unlock()
	p.endAssistantLine()
	if !p.interactive || phase == "" || phase == "idle" {
		return
	}
	if detail != "" {
		_, _ = fmt.Fprintf(p.err, "[%s] %s\n", phase, detail)
		return
	}
	_, _ = fmt.Fprintf(p.err, "[%s]\n", phase)
}

func (p *chatPrinter) FileChanged(fc bridge.FileChange) {
	p.lock()
	defer p.unlock()
	p.endAssistantLine()

	verb := "edited"
	if fc.Created {
		verb = "created"
	}
	_, _ = fmt.Fprintf(p.out, "%s %s\n", verb, fc.Path)
	if fc.Diff == nil {
		_, _ = fmt.Fprintln(p.out, "  (no before/after view available)")
		return
	}
	for _, line := range fc.Diff.Lines {
		_, _ = fmt.Fprintf(p.out, "  %s %s\n", gutter(line.Kind), line.Text)
	}
	if fc.Diff.Truncated {
		_, _ = fmt.Fprintf(p.out, "  ... showing %d of %d changed lines\n", len(fc.Diff.Lines), fc.Diff.TotalLines)
	}
	if p.showPatch && fc.Patch != "" {
		_, _ = fmt.Fprint(p.out, fc.Patch)
	}
}

func (p *chatPrinter) AgentError(text string) {
	p.lock()
	defer p.unlock()
	p.endAssistantLine()
	_, _ = fmt.Fprintf(p.err, "agent error: %s\n", text)
}

func gutter(kind linediff.Kind) string {
	switch kind {
	case linediff.KindAdd:
		return "+"
	case linediff.KindRemove:
		return "-"
	default:
		return " "
	}
}
