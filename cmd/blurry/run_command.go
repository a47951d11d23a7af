package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blurry/internal/config"
	"blurry/internal/detect"
	"blurry/internal/layout"
	"blurry/internal/logging"
	"blurry/internal/media"
	"blurry/internal/queue"
	"blurry/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var keepDone bool
	var plain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Redact every queued video that is not done",
		Long: "Run a redaction batch. Ctrl-C stops after the current frame; the video in\n" +
			"progress keeps its finalized partial output and is marked partial.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			interactive := !plain && isTerminal(cmd.ErrOrStderr())
			logger, err := ctx.logger(interactive)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var display progressDisplay
			if interactive {
				display = newBarDisplay(cmd.ErrOrStderr())
			} else {
				display = newPlainDisplay(cmd.OutOrStdout())
			}

			result, err := runBatch(runCtx, cfg, logger, !keepDone, display)
			display.close()
			if err != nil {
				return err
			}
			printRunSummary(cmd, result)
			if result.Outcome == workflow.OutcomeCancelled {
				return context.Canceled
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d video(s) failed; see `blurry queue list` and the log", result.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepDone, "keep-done", false, "Keep done entries in the queue after the batch")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of progress bars")
	return cmd
}

// runBatch wires the runner and drives it on its own goroutine.
func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, clearDone bool, display progressDisplay) (workflow.Result, error) {
	policy, err := layout.New(cfg)
	if err != nil {
		return workflow.Result{}, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return workflow.Result{}, fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()

	// Checked here as well so a bad export root fails before the detector
	// model loads.
	if err := policy.Validate(); err != nil {
		return workflow.Result{}, err
	}

	processor, cleanup, err := buildProcessor(ctx, cfg, logger)
	if err != nil {
		return workflow.Result{}, err
	}
	defer cleanup()

	runner := workflow.NewRunner(store, policy, processor, workflow.Options{
		Logger:    logger,
		Progress:  display.handle,
		ClearDone: clearDone,
	})

	type outcome struct {
		result workflow.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := runner.Run(ctx)
		done <- outcome{result: result, err: err}
	}()
	out := <-done
	if errors.Is(out.err, queue.ErrFrozen) {
		return out.result, errors.New("another batch is already running")
	}
	return out.result, out.err
}

// buildProcessor returns the processor for the configured mode. In-process
// runs always start the detector helper.
func buildProcessor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (workflow.Processor, func(), error) {
	noop := func() {}
	if !cfg.InProcess() {
		proc, err := workflow.NewCommandProcessor(cfg, logger)
		return proc, noop, err
	}

	locator, err := detect.StartProcess(ctx, cfg.Detector, logger)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := locator.Close(); err != nil {
			logger.Warn("detector shutdown failed", logging.Error(err))
		}
	}

	codec := media.NewFFmpeg(cfg.Media, logger)
	proc, err := workflow.NewPipelineProcessor(cfg, codec, locator, logger)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return proc, cleanup, nil
}

func printRunSummary(cmd *cobra.Command, result workflow.Result) {
	out := cmd.OutOrStdout()
	if len(result.Entries) == 0 && result.Skipped == 0 {
		fmt.Fprintln(out, "Nothing to do: every queued video is already done")
		return
	}
	rows := make([][]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		note := ""
		if entry.Err != nil {
			note = entry.Err.Error()
		}
		rows = append(rows, []string{entry.TargetFilename, statusLabel(entry.Status), fmt.Sprintf("%d", entry.FramesDone), note})
	}
	if len(rows) > 0 {
		fmt.Fprint(out, renderTable([]string{"Target", "Status", "Frames", "Note"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	}
	fmt.Fprintf(out, "Batch %s %s: %d done, %d failed, %d partial, %d not started\n",
		result.BatchID, result.Outcome, result.Done, result.Failed, result.Partial, result.Skipped)
}
