// Package bridge wires the agent runtime's event stream to the snapshot
// store, the diff engine and the presentation layer. The store and the
// engine never call each other; this package is the caller that feeds the
// "before" side from one into the other.
package bridge

import (
	"log/slog"
	"os"

	"github.com/darthmolen/agentpane/internal/agentrt"
	"github.com/darthmolen/agentpane/internal/linediff"
	"github.com/darthmolen/agentpane/internal/patch"
	"github.com/darthmolen/agentpane/internal/snapshot"
)

// FileChange is the presentation event for one completed file mutation.
// Diff is nil when no snapshot was available; the UI then shows the change
// without a before/after view instead of an error.
type FileChange struct {
	Path    string           `json:"path"`
	CallID  string           `json:"call_id"`
	Created bool             `json:"created"`
	Diff    *linediff.Result `json:"diff,omitempty"`
	Patch   string           `json:"patch,omitempty"`
}

// Sink receives presentation events. Implementations render them (CLI, TUI)
// or forward them (session log, relay).
type Sink interface {
	AssistantDelta(text string)
	AssistantDone(text string)
	Status(phase, detail string)
	FileChanged(fc FileChange)
	AgentError(text string)
}

// Options tunes the bridge. MaxDiffLines falls back to the diff engine's
// default when non-positive.
type Options struct {
	MaxDiffLines int

	// EmitPatch additionally renders a full unified patch per change.
	EmitPatch bool
	PatchOpts patch.Options

	// NormalizeTool maps agent-specific tool names onto canonical kinds,
	// usually via a toolspec bundle. Nil means the agent already emits
	// canonical kinds.
	NormalizeTool func(name string) string
}

// Bridge consumes agentrt events in stream order. It must be driven from a
// single goroutine: correlation relies on pre_tool_use arriving before
// tool_start for the same call, which only holds within one event loop.
type Bridge struct {
	snapshots *snapshot.Store
	sink      Sink
	opts      Options
	logger    *slog.Logger

	// tool kind per in-flight call id, recorded at tool_start because
	// tool_done events do not always repeat it.
	inflight map[string]string
}

func New(snapshots *snapshot.Store, sink Sink, opts Options, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		snapshots: snapshots,
		sink:      sink,
		opts:      opts,
		logger:    logger,
		inflight:  make(map[string]string),
	}
}

// HandleEvent dispatches one runtime event. It never fails: diffing is
// diagnostic sugar on top of a mutation that already happened.
func (b *Bridge) HandleEvent(ev agentrt.Event) {
	if ev.ToolKind != "" && b.opts.NormalizeTool != nil {
		ev.ToolKind = b.opts.NormalizeTool(ev.ToolKind)
	}
	switch ev.Kind {
	case agentrt.EventPreToolUse:
		b.snapshots.CaptureForTool(ev.ToolKind, ev.Path)
	case agentrt.EventToolStart:
		b.inflight[ev.CallID] = ev.ToolKind
		b.snapshots.CorrelateToToolCall(ev.Path, ev.CallID)
	case agentrt.EventToolDone:
		b.finishToolCall(ev)
	case agentrt.EventAssistantDelta:
		b.sink.AssistantDelta(ev.Text)
	case agentrt.EventAssistantDone:
		b.sink.AssistantDone(ev.Text)
	case agentrt.EventStatus:
		b.sink.Status(ev.Phase, ev.Detail)
	case agentrt.EventError:
		b.sink.AgentError(ev.Text)
	}
}

// Reset drops all snapshot and correlation state. Called at session
// boundaries so rapid back-to-back sessions never see each other's state.
func (b *Bridge) Reset() {
	b.snapshots.CleanupAll()
	b.inflight = make(map[string]string)
}

func (b *Bridge) finishToolCall(ev agentrt.Event) {
	toolKind := ev.ToolKind
	if toolKind == "" {
		toolKind = b.inflight[ev.CallID]
	}
	delete(b.inflight, ev.CallID)

	snap, haveSnap := b.snapshots.Get(ev.CallID)
	defer func() {
		if haveSnap {
			b.snapshots.Cleanup(ev.CallID)
		}
	}()

	mutating := toolKind == snapshot.ToolEdit || toolKind == snapshot.ToolCreate
	if !mutating && !haveSnap {
		return
	}
	if ev.Path == "" && !haveSnap {
		return
	}

	path := ev.Path
	if path == "" {
		path = snap.OriginalPath
	}

	fc := FileChange{Path: path, CallID: ev.CallID}

	after, haveAfter := b.afterContent(ev, path)
	if haveSnap && haveAfter {
		before, err := os.ReadFile(snap.TempFilePath)
		if err != nil {
			b.logger.Warn("snapshot read failed", "path", snap.TempFilePath, "error", err)
		} else {
			diff := linediff.Compute(string(before), after, b.opts.MaxDiffLines)
			fc.Diff = &diff
			fc.Created = !snap.ExistedBefore
			if b.opts.EmitPatch {
				if fc.Created {
					fc.Patch, _ = patch.Added(path, after, b.opts.PatchOpts)
				} else {
					fc.Patch, _ = patch.Unified(path, string(before), after, b.opts.PatchOpts)
				}
			}
		}
	}

	b.sink.FileChanged(fc)
}

// afterContent prefers the content carried on the event and falls back to
// reading the mutated file. Both sides missing degrades to "no diff".
func (b *Bridge) afterContent(ev agentrt.Event, path string) (string, bool) {
	if ev.After != nil {
		return *ev.After, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		b.logger.Warn("after content unavailable", "path", path, "error", err)
		return "", false
	}
	return string(data), true
}
