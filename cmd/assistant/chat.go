package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"assistant/internal/bootstrap"
	"assistant/internal/chat"
	"assistant/internal/config"
	"assistant/internal/repl"
	"assistant/internal/tui"
)

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, *configPath)
		},
	}
}

func runChat(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	th := theme()
	toaster := repl.NewToaster(th)
	res, err := bootstrap.Build(cfg, bootstrap.Options{Notifier: toaster})
	if err != nil {
		return err
	}
	defer res.Close()

	if repl.IsTerminal() {
		if _, stored := res.Settings.Load(); !stored {
			if err := onboard(res, th); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "onboarding failed: %v\n", err)
			}
		}
	}

	in, inErr := repl.NewLineInput(cfg.HistoryFile())
	if inErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "line editor unavailable, fallback to basic input: %v\n", inErr)
	}
	defer in.Close()

	loop := repl.NewLoop(res, in, toaster, repl.Options{
		Markdown: repl.IsTerminal(),
		Width:    terminalWidth(),
		Theme:    th,
	})
	return loop.Run(context.Background())
}

// onboard runs the wizard and stores the settings when it completed.
func onboard(res *bootstrap.BuildResult, th tui.Theme) error {
	outcome, err := tui.RunOnboarding(th)
	if err != nil {
		return err
	}
	if !outcome.Completed {
		res.Logger.Info("onboarding skipped")
		return nil
	}
	return res.Settings.Save(outcome.Settings)
}

func newOnboardCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Run the first-run setup again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !repl.IsTerminal() {
				return fmt.Errorf("onboarding needs an interactive terminal")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			res, err := bootstrap.Build(cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer res.Close()
			return onboard(res, theme())
		},
	}
}

func newAskCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the reply",
		Long:  "Sends the question as a new conversation and prints the reply. Without arguments the question is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				text, err := repl.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = text
			}
			return runAsk(cmd, *configPath, question)
		},
	}
}

func runAsk(cmd *cobra.Command, configPath, question string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	res, err := bootstrap.Build(cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer res.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// a one-shot question must not change which conversation chat resumes
	prev := res.Sessions.ActiveID()
	defer func() {
		if prev == "" || !res.Sessions.SelectSession(prev) {
			res.Sessions.NewChat()
		}
	}()

	res.Sessions.NewChat()
	id, err := res.Sessions.Send(ctx, question)
	if err != nil {
		return err
	}
	res.Sessions.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s, _ := res.Sessions.Get(id)
	last, ok := s.LastMessage()
	if !ok || last.Role != chat.RoleAssistant {
		return fmt.Errorf("no reply")
	}
	fmt.Fprintln(cmd.OutOrStdout(), last.Content)
	for i, src := range last.Sources {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s %s\n", i+1, src.Title, src.URL)
	}
	if last.Unavailable {
		return fmt.Errorf("reply unavailable")
	}
	return nil
}
