package agentrt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// scanner limits for the JSONL stream: tool_done events can carry whole
// files as "after" content.
const (
	scanInitialBuf = 64 * 1024
	scanMaxBuf     = 16 * 1024 * 1024
)

// Runner describes how to launch the agent CLI.
type Runner struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string

	// UsePTY runs the agent under a pseudo-terminal for agents that refuse
	// to stream when stdout is a pipe.
	UsePTY bool

	Logger *slog.Logger
}

// Process is a running agent. Events are delivered in stream order on a
// single channel; the channel closes when the agent exits or the context is
// canceled.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	ptyF   *os.File
	cancel context.CancelFunc
	logger *slog.Logger

	events chan Event

	waitOnce sync.Once
	waitErr  error
}

// Start launches the agent and begins decoding its event stream.
func (r *Runner) Start(ctx context.Context) (*Process, error) {
	if strings.TrimSpace(r.Command) == "" {
		return nil, errors.New("agent command is required")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, r.Command, r.Args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	if len(r.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range r.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	p := &Process{
		cmd:    cmd,
		cancel: cancel,
		logger: logger,
		events: make(chan Event, 64),
	}

	var out io.Reader
	if r.UsePTY {
		f, err := pty.Start(cmd)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("start agent under pty: %w", err)
		}
		p.ptyF = f
		out = f
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			cancel()
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			cancel()
			return nil, err
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			cancel()
			return nil, fmt.Errorf("start agent: %w", err)
		}
		p.stdin = stdin
		out = stdout
	}

	go p.decodeLoop(out)
	return p, nil
}

// Events returns the in-order event stream. The caller must drain it from a
// single goroutine; the snapshot correlation downstream depends on
// pre_tool_use arriving before tool_start for the same call.
func (p *Process) Events() <-chan Event {
	return p.events
}

// Send forwards one user prompt to the agent as a JSON line on stdin.
func (p *Process) Send(prompt string) error {
	line, err := json.Marshal(map[string]string{"kind": "user", "text": prompt})
	if err != nil {
		return err
	}
	w := io.Writer(p.stdin)
	if p.ptyF != nil {
		w = p.ptyF
	}
	if w == nil {
		return errors.New("agent stdin is not available")
	}
	_, err = fmt.Fprintf(w, "%s\n", line)
	return err
}

// Wait blocks until the agent exits and returns its exit error, if any.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

// Close tears the agent down: stdin is closed so well-behaved agents exit on
// EOF, then the process context is canceled.
func (p *Process) Close() {
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	if p.ptyF != nil {
		_ = p.ptyF.Close()
	}
	p.cancel()
	_ = p.Wait()
}

func (p *Process) decodeLoop(out io.Reader) {
	defer close(p.events)
	DecodeStream(out, func(ev Event) {
		p.events <- ev
	})
	if err := p.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("agent exited with error", "error", err)
	}
}

// DecodeStream reads JSONL events from r and invokes handle for each one, in
// order. Non-JSON lines are forwarded as assistant text so agents that mix
// plain output into the stream still render. A tool_start event without a
// call id gets a synthesized one; correlation still works because the same
// id is what downstream consumers see on tool_done only when the runtime
// assigned it, so synthesized ids merely keep the event well-formed.
func DecodeStream(r io.Reader, handle func(Event)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, scanInitialBuf), scanMaxBuf)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Kind == "" {
			handle(Event{Kind: EventAssistantDelta, Text: line})
			continue
		}
		if ev.Kind == EventToolStart && ev.CallID == "" {
			ev.CallID = uuid.NewString()
		}
		handle(ev)
	}
}
