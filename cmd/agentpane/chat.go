package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/darthmolen/agentpane/internal/agentrt"
	"github.com/darthmolen/agentpane/internal/bridge"
	cliconfig "github.com/darthmolen/agentpane/internal/cli/config"
	"github.com/darthmolen/agentpane/internal/relay"
	"github.com/darthmolen/agentpane/internal/session"
	"github.com/darthmolen/agentpane/internal/snapshot"
	"github.com/darthmolen/agentpane/internal/toolspec"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var agentCommand string
	var agentArgs []string
	var usePTY bool
	var workspace string
	var maxDiffLines int
	var showPatch bool
	var promptOnce string
	var promptTimeout time.Duration
	var resume string
	var noRelay bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat loop over the coding agent, with inline diffs per file mutation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.config
			if agentCommand == "" {
				agentCommand = cfg.Agent.Command
			}
			if len(agentArgs) == 0 {
				agentArgs = cfg.Agent.Args
			}
			if !cmd.Flags().Changed("pty") {
				usePTY = cfg.Agent.UsePTY
			}
			if workspace == "" {
				workspace = cfg.WorkspaceRoot
			}
			if workspace == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspace = cwd
			}
			if maxDiffLines <= 0 {
				maxDiffLines = cfg.MaxDiffLines
			}
			if !cmd.Flags().Changed("show-patch") {
				showPatch = cfg.EmitPatch
			}
			if strings.TrimSpace(agentCommand) == "" {
				return cliconfig.ErrAgentCommandMissing
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			sessionsDir := cfg.SessionsDir
			if sessionsDir == "" {
				sessionsDir = cliconfig.DefaultSessionsDir()
			}
			sessions := session.New(sessionsDir)
			defer sessions.Close()

			interactive := term.IsTerminal(int(os.Stdin.Fd())) && strings.TrimSpace(promptOnce) == ""
			var mu sync.Mutex
			printer := newChatPrinter(os.Stdout, os.Stderr, interactive, showPatch, &mu)

			var meta *session.Meta
			var err error
			if strings.TrimSpace(resume) != "" {
				meta, err = sessions.Get(strings.TrimSpace(resume))
				if err != nil {
					return err
				}
				if err := replayTranscript(sessions, meta.SessionID, printer); err != nil {
					return err
				}
			} else {
				meta, err = sessions.Create(workspace, agentCommand)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "session: %s\n", meta.SessionID)

			snapshots, err := snapshot.New(logger)
			if err != nil {
				return err
			}
			defer snapshots.Close()

			sinks := multiSink{printer, &transcriptSink{store: sessions, sessionID: meta.SessionID, logger: logger}}
			if cfg.Relay != nil && !noRelay {
				r, err := relay.Connect(ctx, relay.Options{
					URL:           cfg.Relay.URL,
					User:          cfg.Relay.User,
					Password:      cfg.Relay.Password,
					Stream:        cfg.Relay.Stream,
					SubjectPrefix: cfg.Relay.SubjectPrefix,
				}, logger)
				if err != nil {
					logger.Warn("relay unavailable, continuing without it", "error", err)
				} else {
					defer r.Close()
					sinks = append(sinks, &relaySink{relay: r, sessionID: meta.SessionID})
				}
			}

			bridgeOpts := bridge.Options{
				MaxDiffLines: maxDiffLines,
				EmitPatch:    showPatch,
			}
			if cfg.Agent.ToolSpec != "" {
				bundle, err := toolspec.LoadBundle(cfg.Agent.ToolSpec)
				if err != nil {
					return fmt.Errorf("load tool spec: %w", err)
				}
				bridgeOpts.NormalizeTool = bundle.KindFor
			}

			br := bridge.New(snapshots, sinks, bridgeOpts, logger)
			defer br.Reset()

			runner := agentrt.Runner{
				Command: agentCommand,
				Args:    agentArgs,
				Dir:     workspace,
				Env:     cfg.Agent.Env,
				UsePTY:  usePTY,
				Logger:  logger,
			}
			proc, err := runner.Start(ctx)
			if err != nil {
				return err
			}
			defer proc.Close()

			if text := strings.TrimSpace(promptOnce); text != "" {
				return runOnce(ctx, proc, br, text, promptTimeout)
			}

			go inputLoop(ctx, proc, &mu)

			// The bridge is driven only from this loop: correlation depends
			// on events arriving in stream order on one goroutine.
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-proc.Events():
					if !ok {
						return proc.Wait()
					}
					br.HandleEvent(ev)
				}
			}
		},
	}

	cmd.Flags().StringVar(&agentCommand, "agent", "", "agent executable (overrides config)")
	cmd.Flags().StringArrayVar(&agentArgs, "agent-arg", nil, "argument passed to the agent (repeatable; overrides config)")
	cmd.Flags().BoolVar(&usePTY, "pty", false, "run the agent under a pseudo-terminal")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace root the agent mutates (default cwd)")
	cmd.Flags().IntVar(&maxDiffLines, "max-diff-lines", 0, "inline diff line budget per mutation (default 10)")
	cmd.Flags().BoolVar(&showPatch, "show-patch", false, "also print a full unified patch per change")
	cmd.Flags().StringVar(&promptOnce, "prompt", "", "one-shot prompt: send, print the reply, exit")
	cmd.Flags().DurationVar(&promptTimeout, "prompt-timeout", 2*time.Minute, "give up on a one-shot prompt after this long")
	cmd.Flags().StringVar(&resume, "resume", "", "resume an existing session id")
	cmd.Flags().BoolVar(&noRelay, "no-relay", false, "disable the configured JetStream relay")
	return cmd
}

// runOnce sends a single prompt and drains events until the assistant
// finishes its turn, the agent exits, or the timeout fires.
func runOnce(ctx context.Context, proc *agentrt.Process, br *bridge.Bridge, text string, timeout time.Duration) error {
	if err := proc.Send(text); err != nil {
		return err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return fmt.Errorf("no reply within %s", timeout)
		case ev, ok := <-proc.Events():
			if !ok {
				return proc.Wait()
			}
			br.HandleEvent(ev)
			if ev.Kind == agentrt.EventAssistantDone {
				return nil
			}
		}
	}
}

// inputLoop reads user prompts from stdin and forwards them to the agent.
// It runs beside the event loop; Send is safe to call concurrently with the
// event drain because it only touches the agent's stdin.
func inputLoop(ctx context.Context, proc *agentrt.Process, mu *sync.Mutex) {
	sc := bufio.NewScanner(os.Stdin)
	for {
		mu.Lock()
		fmt.Fprint(os.Stdout, "you > ")
		mu.Unlock()
		if !sc.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			proc.Close()
			return
		}
		if err := proc.Send(line); err != nil {
			if !errors.Is(err, io.ErrClosedPipe) {
				fmt.Fprintf(os.Stderr, "send: %v\n", err)
			}
			return
		}
	}
}

// replayTranscript re-renders the durable events of a resumed session.
func replayTranscript(sessions *session.Store, sessionID string, printer *chatPrinter) error {
	return replayTranscriptAfter(sessions, sessionID, 0, printer)
}

func replayTranscriptAfter(sessions *session.Store, sessionID string, afterEventID int64, printer *chatPrinter) error {
	return sessions.Replay(sessionID, afterEventID, func(evt *session.Event) error {
		switch evt.Kind {
		case "assistant_done":
			var body struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(evt.Payload, &body); err == nil {
				printer.AssistantDone(body.Text)
			}
		case "file_change":
			var fc bridge.FileChange
			if err := json.Unmarshal(evt.Payload, &fc); err == nil {
				printer.FileChanged(fc)
			}
		case "agent_error":
			var body struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(evt.Payload, &body); err == nil {
				printer.AgentError(body.Text)
			}
		}
		return nil
	})
}
