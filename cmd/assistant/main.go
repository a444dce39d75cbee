package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"assistant/internal/repl"
	"assistant/internal/tui"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Local-first AI work assistant",
		Long:  "Chat with an AI work assistant, keep a searchable history, and manage favorites, chatbots and the daily briefing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (JSON, JSONC or TOML)")

	cmd.AddCommand(newChatCmd(&configPath))
	cmd.AddCommand(newAskCmd(&configPath))
	cmd.AddCommand(newOnboardCmd(&configPath))
	cmd.AddCommand(newSessionsCmd(&configPath))
	cmd.AddCommand(newBriefingCmd(&configPath))
	cmd.AddCommand(newImportCmd(&configPath))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assistant %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func theme() tui.Theme {
	if repl.UseColor() && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.DarkTheme()
	}
	return tui.PlainTheme()
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
