package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"narrator/internal/config"
	"narrator/internal/publish"
	"narrator/internal/queue"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		dest      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Copy a ready item's video, thumbnail and captions to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			if dest == "" {
				if dest, err = os.Getwd(); err != nil {
					return err
				}
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				written, err := publish.Export(*item, dest, overwrite)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Exported item %d:\n", id)
				printLines(out, written)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory (defaults to the current directory)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace files that already exist")
	return cmd
}
