package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blurry/internal/config"
	"blurry/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the redaction queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var flags fieldFlags
	var target string

	cmd := &cobra.Command{
		Use:   "add <video>",
		Short: "Queue a video for redaction",
		Long: "Queue a video for redaction. The export filename is built from the field flags,\n" +
			"or given verbatim with --target.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("inspect video %q: %w", source, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory, not a video file", source)
			}

			name := strings.TrimSpace(target)
			if name == "" {
				if name, err = flags.build(); err != nil {
					return err
				}
			}

			return ctx.withStore(func(store *queue.Store) error {
				entry, err := store.Enqueue(cmd.Context(), source, name)
				if err != nil {
					return describeEnqueueError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (%s) as %s\n",
					filepath.Base(source), humanize.Bytes(uint64(info.Size())), entry.TargetFilename)
				fmt.Fprintf(cmd.OutOrStdout(), "Entry ID: %s\n", entry.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&target, "target", "", "Export filename to use instead of building one from flags")
	return cmd
}

func describeEnqueueError(err error) error {
	var dup *queue.DuplicateError
	switch {
	case errors.As(err, &dup):
		if dup.ExistingID != "" {
			return fmt.Errorf("%s %q is already queued (entry %s)", dup.Field, dup.Value, dup.ExistingID)
		}
		return fmt.Errorf("%s %q is already queued", dup.Field, dup.Value)
	case errors.Is(err, queue.ErrFrozen):
		return errors.New("a batch is running; the queue cannot be changed until it finishes")
	default:
		return err
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries in processing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(store *queue.Store) error {
				entries, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeEntriesJSON(cmd.OutOrStdout(), entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"#", "ID", "Target", "Status", "Frames", "Added"},
					buildQueueListRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show entry counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove entries by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					id = strings.TrimSpace(id)
					err := store.Remove(cmd.Context(), id)
					switch {
					case err == nil:
						fmt.Fprintf(out, "Entry %s removed\n", id)
					case errors.Is(err, queue.ErrNotFound):
						fmt.Fprintf(out, "Entry %s not found\n", id)
					default:
						return describeEnqueueError(err)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var doneOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all entries, or only done ones with --done",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var (
					removed int64
					err     error
				)
				label := "queue entries"
				if doneOnly {
					removed, err = store.ClearDone(cmd.Context())
					label = "done entries"
				} else {
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return describeEnqueueError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", removed, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&doneOnly, "done", false, "Only remove entries that finished successfully")
	return cmd
}
