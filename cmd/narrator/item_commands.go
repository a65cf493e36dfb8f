package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"narrator/internal/config"
	"narrator/internal/daemonrun"
	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/services"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var style string
	var start bool

	cmd := &cobra.Command{
		Use:   "create <topic>",
		Short: "Create a draft item for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" {
				return errors.New("topic is required")
			}
			return ctx.withPipeline(nil, func(cfg *config.Config, store *queue.Store, p daemonrun.Pipeline) error {
				chosen := strings.TrimSpace(style)
				if chosen == "" {
					chosen = cfg.Script.DefaultStyle
				}
				item, err := store.Create(cmd.Context(), topic, chosen)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created item %d (%s, style %s)\n", item.ID, topic, chosen)
				if !start {
					return nil
				}
				if err := p.Controller.Start(cmd.Context(), item.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Item %d queued for a full run\n", item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "Visual style (defaults to script.default_style)")
	cmd.Flags().BoolVar(&start, "start", false, "Queue a full run immediately")
	return cmd
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>...",
		Short: "Queue a full run for draft or failed items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(nil, func(_ *config.Config, _ *queue.Store, p daemonrun.Pipeline) error {
				var errs []error
				for _, id := range ids {
					if err := p.Controller.Start(cmd.Context(), id); err != nil {
						errs = append(errs, err)
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not started: %v\n", id, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %d queued for a full run\n", id)
				}
				return errors.Join(errs...)
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>...",
		Short: "Queue items to continue from their first incomplete stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withPipeline(nil, func(_ *config.Config, _ *queue.Store, p daemonrun.Pipeline) error {
				var errs []error
				for _, id := range ids {
					target, err := p.Controller.Resume(cmd.Context(), id)
					if err != nil {
						errs = append(errs, err)
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not resumed: %v\n", id, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %d queued to resume at %s\n", id, target)
				}
				return errors.Join(errs...)
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>...",
		Short: "Withdraw queued runs that no worker has claimed yet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				for _, id := range ids {
					cancelled, err := store.CancelRun(cmd.Context(), id)
					if err != nil {
						return err
					}
					if cancelled {
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d: queued run cancelled\n", id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d: no queued run\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one item in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			action := queue.RunStart
			if resume {
				action = queue.RunResume
			}
			return ctx.withPipeline(logger, func(_ *config.Config, _ *queue.Store, p daemonrun.Pipeline) error {
				runErr := p.Controller.Run(cmd.Context(), id, action)
				view, err := p.Controller.Inspect(cmd.Context(), id)
				if err != nil {
					return errors.Join(runErr, err)
				}
				out := cmd.OutOrStdout()
				if runErr != nil {
					fmt.Fprintf(out, "Item %d %s: %s\n", id, view.Item.Status, view.Item.ErrorMessage)
					if view.ResumeStage != "" {
						fmt.Fprintf(out, "Resume with `narrator resume %d` (enters at %s)\n", id, view.ResumeStage)
					}
					return runErr
				}
				fmt.Fprintf(out, "Item %d ready: %s\n", id, view.Reference)
				for _, warning := range view.Item.Warnings {
					fmt.Fprintf(out, "  warning: %s\n", warning)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "Continue from the first incomplete stage instead of starting over")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete items and their work directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var errs []error
				for _, id := range ids {
					removed, err := store.Remove(cmd.Context(), id)
					switch {
					case errors.Is(err, services.ErrInvalidState):
						fmt.Fprintf(out, "Item %d is processing; not removed\n", id)
						errs = append(errs, err)
						continue
					case err != nil:
						return err
					case !removed:
						fmt.Fprintf(out, "Item %d not found\n", id)
						continue
					}
					if !keepFiles {
						dir := queue.Item{ID: id}.WorkDir(cfg.Paths.StagingDir)
						if err := os.RemoveAll(dir); err != nil {
							fmt.Fprintf(out, "Item %d removed; work directory %s left behind: %v\n", id, dir, err)
							continue
						}
					}
					fmt.Fprintf(out, "Item %d removed\n", id)
				}
				return errors.Join(errs...)
			})
		},
	}
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep the item's work directory on disk")
	return cmd
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every failed item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				removed, err := store.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
				return nil
			})
		},
	}
}
