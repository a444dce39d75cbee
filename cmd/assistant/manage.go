package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"assistant/internal/bootstrap"
	"assistant/internal/config"
	"assistant/internal/logging"
	"assistant/internal/storage"
)

func build(configPath string) (*bootstrap.BuildResult, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.Build(cfg, bootstrap.Options{})
}

func newSessionsCmd(configPath *string) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := build(*configPath)
			if err != nil {
				return err
			}
			defer res.Close()

			list := res.Sessions.List()
			if archived {
				list = res.Sessions.Archived()
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no sessions")
				return nil
			}
			active := res.Sessions.ActiveID()
			for _, s := range list {
				mark := " "
				switch {
				case s.ID == active:
					mark = "*"
				case s.Pinned:
					mark = "^"
				}
				fmt.Fprintf(out, "%s %s  %s  %d messages  %s\n", mark, s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), len(s.Messages), s.Title)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived conversations instead")
	return cmd
}

func newBriefingCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "briefing",
		Short: "Print today's briefing",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := build(*configPath)
			if err != nil {
				return err
			}
			defer res.Close()

			text := res.Advisor.DailyBriefing(res.Briefing.Load(), time.Now())
			if text == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "daily briefing is disabled")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newImportCmd(configPath *string) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <dump.json>",
		Short: "Import a browser localStorage dump",
		Long:  "Copies keys from a JSON object of localStorage entries into the configured storage. Existing keys are kept unless --overwrite is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
			if err != nil {
				return err
			}
			defer logCloser.Close()

			kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.BaseDir)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer kv.Close()

			keys, err := storage.ImportLocalStorage(args[0], kv, overwrite, logger)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", k)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d keys imported\n", len(keys))
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace keys that already exist")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Project configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write .assistant/config.json in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			path, created, err := config.InitProjectConfigScaffold(cwd)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
			}
			return nil
		},
	})
	return cmd
}
