package agentrt

import (
	"strings"
	"testing"
)

func collect(input string) []Event {
	var out []Event
	DecodeStream(strings.NewReader(input), func(ev Event) {
		out = append(out, ev)
	})
	return out
}

func TestDecodeStream_OrderPreserved(t *testing.T) {
	input := `{"kind":"pre_tool_use","tool_kind":"edit","path":"/ws/main.go"}
{"kind":"tool_start","tool_kind":"edit","path":"/ws/main.go","call_id":"c1"}
{"kind":"tool_done","call_id":"c1","path":"/ws/main.go","after":"package main\n"}
`
	evs := collect(input)
	if len(evs) != 3 {
		t.Fatalf("events=%d, want 3", len(evs))
	}
	if evs[0].Kind != EventPreToolUse || evs[1].Kind != EventToolStart || evs[2].Kind != EventToolDone {
		t.Fatalf("kinds=%v %v %v", evs[0].Kind, evs[1].Kind, evs[2].Kind)
	}
	if evs[1].CallID != "c1" || evs[2].CallID != "c1" {
		t.Fatalf("call ids = %q, %q", evs[1].CallID, evs[2].CallID)
	}
	if evs[2].After == nil || *evs[2].After != "package main\n" {
		t.Fatalf("after=%v", evs[2].After)
	}
}

func TestDecodeStream_SynthesizesMissingCallID(t *testing.T) {
	evs := collect(`{"kind":"tool_start","tool_kind":"create","path":"/ws/x"}` + "\n")
	if len(evs) != 1 {
		t.Fatalf("events=%d", len(evs))
	}
	if evs[0].CallID == "" {
		t.Fatalf("call id not synthesized")
	}
}

func TestDecodeStream_PlainTextBecomesAssistantDelta(t *testing.T) {
	evs := collect("not json at all\n{\"kind\":\"assistant_done\"}\n")
	if len(evs) != 2 {
		t.Fatalf("events=%d", len(evs))
	}
	if evs[0].Kind != EventAssistantDelta || evs[0].Text != "not json at all" {
		t.Fatalf("ev=%+v", evs[0])
	}
	if evs[1].Kind != EventAssistantDone {
		t.Fatalf("ev=%+v", evs[1])
	}
}

func TestDecodeStream_SkipsBlankLines(t *testing.T) {
	evs := collect("\n\n{\"kind\":\"status\",\"phase\":\"thinking\"}\n\n")
	if len(evs) != 1 {
		t.Fatalf("events=%d", len(evs))
	}
	if evs[0].Phase != "thinking" {
		t.Fatalf("phase=%q", evs[0].Phase)
	}
}
