// Package agentrt speaks the agent runtime's event protocol: it launches the
// agent CLI as a subprocess and decodes the JSONL event stream it emits.
package agentrt

// EventKind discriminates runtime events.
type EventKind string

const (
	// EventPreToolUse fires before a tool call touches a file. The tool-call
	// identifier is not known yet; only the tool kind and target path are.
	EventPreToolUse EventKind = "pre_tool_use"
	// EventToolStart fires once the runtime has assigned an identifier to the
	// in-flight tool call.
	EventToolStart EventKind = "tool_start"
	// EventToolDone fires when a tool call finished; for file mutations it
	// carries the resulting "after" content when the runtime includes it.
	EventToolDone EventKind = "tool_done"

	EventAssistantDelta EventKind = "assistant_delta"
	EventAssistantDone  EventKind = "assistant_done"
	EventStatus         EventKind = "status"
	EventError          EventKind = "error"
)

// Event is one decoded runtime event. Field population depends on Kind.
type Event struct {
	Kind EventKind `json:"kind"`

	// Tool lifecycle fields.
	ToolKind string `json:"tool_kind,omitempty"`
	Path     string `json:"path,omitempty"`
	CallID   string `json:"call_id,omitempty"`

	// After is the post-mutation content on tool_done events. Nil means the
	// runtime did not include it and the caller reads the file itself.
	After *string `json:"after,omitempty"`

	// Assistant / error text.
	Text string `json:"text,omitempty"`

	// Status fields ("thinking", "idle", ...).
	Phase  string `json:"phase,omitempty"`
	Detail string `json:"detail,omitempty"`
}
