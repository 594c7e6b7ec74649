package main

import (
	"log"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	cliconfig "github.com/darthmolen/agentpane/internal/cli/config"
)

type rootOptions struct {
	configPath string
	config     *cliconfig.Config
}

// prepare loads the config file. A missing file is fine: every setting has a
// flag or a default.
func (r *rootOptions) prepare() error {
	cfg, err := cliconfig.Load(r.configPath)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = &cliconfig.Config{}
	}
	r.config = cfg
	return nil
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "agentpane",
		Short: "Chat front-end over an autonomous coding agent with inline mutation diffs",
	}
	defaultConfig := os.Getenv("AGENTPANE_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to agentpane config file (default $HOME/.agentpane/config)")
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return opts.prepare()
	}

	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newSessionsCmd(opts))
	rootCmd.AddCommand(newDoctorCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			version := "devel"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
			cmd.Printf("agentpane %s\n", version)
		},
	}
}
