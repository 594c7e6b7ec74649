package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	cliconfig "github.com/darthmolen/agentpane/internal/cli/config"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Print local diagnostic information for troubleshooting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, _ := os.Executable()
			fmt.Fprintf(os.Stdout, "agentpane_executable=%s\n", strings.TrimSpace(exe))

			fmt.Fprintf(os.Stdout, "config_path=%s\n", opts.configPath)
			cfg, err := cliconfig.Load(opts.configPath)
			if err != nil {
				fmt.Fprintf(os.Stdout, "config_error=%s\n", err.Error())
				return nil
			}
			if cfg == nil {
				fmt.Fprintln(os.Stdout, "config_present=false")
			} else {
				fmt.Fprintln(os.Stdout, "config_present=true")
				agent := strings.TrimSpace(cfg.Agent.Command)
				fmt.Fprintf(os.Stdout, "agent_command=%s\n", agent)
				if agent != "" {
					if look, err := exec.LookPath(agent); err == nil {
						fmt.Fprintf(os.Stdout, "agent_on_path=%s\n", look)
					} else {
						fmt.Fprintf(os.Stdout, "agent_on_path=not_found\n")
					}
				}
				fmt.Fprintf(os.Stdout, "relay_configured=%t\n", cfg.Relay != nil)
			}

			sessionsDir := cliconfig.DefaultSessionsDir()
			if cfg != nil && cfg.SessionsDir != "" {
				sessionsDir = cfg.SessionsDir
			}
			fmt.Fprintf(os.Stdout, "sessions_dir=%s\n", sessionsDir)
			if info, err := os.Stat(sessionsDir); err == nil && info.IsDir() {
				fmt.Fprintln(os.Stdout, "sessions_dir_present=true")
			} else {
				fmt.Fprintln(os.Stdout, "sessions_dir_present=false")
			}
			return nil
		},
	}
}
