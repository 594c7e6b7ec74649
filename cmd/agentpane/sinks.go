package main

import (
	"log/slog"

	"github.com/darthmolen/agentpane/internal/bridge"
	"github.com/darthmolen/agentpane/internal/relay"
	"github.com/darthmolen/agentpane/internal/session"
)

// multiSink fans presentation events out to every attached sink, printer and
// transcript and relay alike.
type multiSink []bridge.Sink

func (m multiSink) AssistantDelta(text string) {
	for _, s := range m {
		s.AssistantDelta(text)
	}
}

func (m multiSink) AssistantDone(text string) {
	for _, s := range m {
		s.AssistantDone(text)
	}
}

func (m multiSink) Status(phase, detail string) {
	for _, s := range m {
		s.Status(phase, detail)
	}
}

func (m multiSink) FileChanged(fc bridge.FileChange) {
	for _, s := range m {
		s.FileChanged(fc)
	}
}

func (m multiSink) AgentError(text string) {
	for _, s := range m {
		s.AgentError(text)
	}
}

// transcriptSink appends the durable subset of events to the session log.
// Streaming deltas are skipped: the final assistant_done carries the full
// turn, and replay should not stutter through partial lines.
type transcriptSink struct {
	store     *session.Store
	sessionID string
	logger    *slog.Logger
}

func (t *transcriptSink) append(kind string, payload any) {
	if _, err := t.store.Append(t.sessionID, kind, payload); err != nil {
		t.logger.Warn("transcript append failed", "kind", kind, "error", err)
	}
}

func (t *transcriptSink) AssistantDelta(string) {}

func (t *transcriptSink) AssistantDone(text string) {
	t.append("assistant_done", map[string]string{"text": text})
}

func (t *transcriptSink) Status(phase, detail string) {}

func (t *transcriptSink) FileChanged(fc bridge.FileChange) {
	t.append("file_change", fc)
}

func (t *transcriptSink) AgentError(text string) {
	t.append("agent_error", map[string]string{"text": text})
}

// relaySink mirrors events to JetStream for external viewers.
type relaySink struct {
	relay     *relay.Relay
	sessionID string
}

func (r *relaySink) AssistantDelta(string) {}

func (r *relaySink) AssistantDone(text string) {
	r.relay.PublishChat(r.sessionID, map[string]string{"kind": "assistant_done", "text": text})
}

func (r *relaySink) Status(phase, detail string) {
	r.relay.PublishChat(r.sessionID, map[string]string{"kind": "status", "phase": phase, "detail": detail})
}

func (r *relaySink) FileChanged(fc bridge.FileChange) {
	r.relay.PublishChange(r.sessionID, fc)
}

func (r *relaySink) AgentError(text string) {
	r.relay.PublishChat(r.sessionID, map[string]string{"kind": "agent_error", "text": text})
}
