package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cliconfig "github.com/darthmolen/agentpane/internal/cli/config"
	"github.com/darthmolen/agentpane/internal/session"
)

func sessionsStore(opts *rootOptions) *session.Store {
	dir := opts.config.SessionsDir
	if dir == "" {
		dir = cliconfig.DefaultSessionsDir()
	}
	return session.New(dir)
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage recorded chat sessions",
	}
	cmd.AddCommand(newSessionsListCmd(opts))
	cmd.AddCommand(newSessionsShowCmd(opts))
	cmd.AddCommand(newSessionsArchiveCmd(opts))
	cmd.AddCommand(newSessionsDeleteCmd(opts))
	return cmd
}

func newSessionsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := sessionsStore(opts)
			defer store.Close()
			metas, err := store.List()
			if err != nil {
				return err
			}
			sort.Slice(metas, func(i, j int) bool {
				return metas[i].CreatedAt.Before(metas[j].CreatedAt)
			})
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tCREATED\tWORKSPACE\tAGENT")
			for _, m := range metas {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					m.SessionID, m.CreatedAt.Format("2006-01-02 15:04:05"), m.WorkspaceRoot, m.AgentCommand)
			}
			return tw.Flush()
		},
	}
}

func newSessionsShowCmd(opts *rootOptions) *cobra.Command {
	var afterEventID int64
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Replay a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessionsStore(opts)
			defer store.Close()
			printer := newChatPrinter(os.Stdout, os.Stderr, false, false, nil)
			return replayTranscriptAfter(store, args[0], afterEventID, printer)
		},
	}
	cmd.Flags().Int64Var(&afterEventID, "after", 0, "replay only events after this event id")
	return cmd
}

func newSessionsArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <session-id>",
		Short: "Compress a finished session's event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessionsStore(opts)
			defer store.Close()
			return store.Archive(args[0])
		},
	}
}

func newSessionsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sessionsStore(opts)
			defer store.Close()
			return store.Delete(args[0])
		},
	}
}
